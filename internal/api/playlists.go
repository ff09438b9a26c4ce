/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gisete/carbon-sub000/internal/models"
)

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	coll, err := a.playlists.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}
	coll.Normalize()
	writeJSON(w, http.StatusOK, coll)
}

func (a *API) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	coll, err := a.playlists.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}
	playlist := coll.FindPlaylist(chi.URLParam(r, "playlistID"))
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

type playlistRequest struct {
	Name      string                `json:"name"`
	Schedule  models.Schedule       `json:"schedule"`
	Items     []models.PlaylistItem `json:"items"`
	IsDefault bool                  `json:"isDefault"`
}

func (a *API) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	playlist := models.Playlist{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Schedule:  req.Schedule,
		Items:     req.Items,
		IsDefault: req.IsDefault,
	}
	for i := range playlist.Items {
		if playlist.Items[i].ID == "" {
			playlist.Items[i].ID = uuid.NewString()
		}
	}

	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		if err := a.validator.ValidateUpsert(coll, &playlist); err != nil {
			return err
		}
		// First playlist becomes the default regardless of the request.
		if len(coll.Playlists) == 0 {
			playlist.IsDefault = true
		}
		if playlist.IsDefault {
			for i := range coll.Playlists {
				coll.Playlists[i].IsDefault = false
			}
		}
		coll.Playlists = append(coll.Playlists, playlist)
		coll.Normalize()
		return nil
	})
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	a.logger.Info().Str("playlist", playlist.ID).Str("name", playlist.Name).Msg("playlist created")
	writeJSON(w, http.StatusCreated, playlist)
}

func (a *API) handlePlaylistUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	var updated models.Playlist
	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		existing := coll.FindPlaylist(id)
		if existing == nil {
			return errNotFound
		}

		candidate := *existing
		candidate.Name = req.Name
		candidate.Schedule = req.Schedule
		candidate.IsDefault = req.IsDefault
		if req.Items != nil {
			candidate.Items = req.Items
			for i := range candidate.Items {
				if candidate.Items[i].ID == "" {
					candidate.Items[i].ID = uuid.NewString()
				}
			}
		}
		if err := a.validator.ValidateUpsert(coll, &candidate); err != nil {
			return err
		}

		// The default flag moves by promotion only: demoting the current
		// default without promoting another keeps it default.
		if existing.IsDefault && !candidate.IsDefault {
			candidate.IsDefault = true
		}
		if candidate.IsDefault {
			for i := range coll.Playlists {
				coll.Playlists[i].IsDefault = coll.Playlists[i].ID == id
			}
		}
		*existing = candidate
		coll.Normalize()
		updated = *coll.FindPlaylist(id)
		return nil
	})
	if err != nil {
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		if writeValidation(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")

	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		if err := a.validator.ValidateDelete(coll, id); err != nil {
			return err
		}
		kept := coll.Playlists[:0]
		for _, p := range coll.Playlists {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		coll.Playlists = kept
		if coll.ActivePlaylistID == id {
			coll.ActivePlaylistID = ""
		}
		coll.Normalize()
		return nil
	})
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	a.logger.Info().Str("playlist", id).Msg("playlist deleted")
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// handlePlaylistActivate sets the manual override to the named playlist.
func (a *API) handlePlaylistActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")

	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		if err := a.validator.ValidateSetActive(coll, id); err != nil {
			return err
		}
		coll.ActivePlaylistID = id
		return nil
	})
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	if err := a.director.ResetCycle(); err != nil {
		a.logger.Warn().Err(err).Msg("cycle reset after activate failed")
	}
	a.generator.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"activePlaylistId": id})
}

// handleClearActive removes the manual override, returning control to the
// weekly schedule.
func (a *API) handleClearActive(w http.ResponseWriter, r *http.Request) {
	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		coll.ActivePlaylistID = ""
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"activePlaylistId": ""})
}
