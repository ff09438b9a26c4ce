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

func (a *API) handleItemAdd(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	var item models.PlaylistItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if item.ContentType == "" {
		writeError(w, http.StatusBadRequest, "content_type_required")
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		playlist := coll.FindPlaylist(playlistID)
		if playlist == nil {
			return errNotFound
		}
		playlist.Items = append(playlist.Items, item)
		return nil
	})
	if err != nil {
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	itemID := chi.URLParam(r, "itemID")

	var patch models.PlaylistItem
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	var updated models.PlaylistItem
	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		playlist := coll.FindPlaylist(playlistID)
		if playlist == nil {
			return errNotFound
		}
		item := playlist.FindItem(itemID)
		if item == nil {
			return errNotFound
		}

		if patch.ContentType != "" {
			item.ContentType = patch.ContentType
		}
		if patch.Title != "" {
			item.Title = patch.Title
		}
		item.Subtitle = patch.Subtitle
		if patch.Config != nil {
			item.Config = patch.Config
		}
		if patch.DurationMinutes > 0 {
			item.DurationMinutes = patch.DurationMinutes
		}
		if patch.Visible != nil {
			item.Visible = patch.Visible
		}
		updated = *item
		return nil
	})
	if err != nil {
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "item_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleItemDelete(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	itemID := chi.URLParam(r, "itemID")

	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		playlist := coll.FindPlaylist(playlistID)
		if playlist == nil {
			return errNotFound
		}
		kept := playlist.Items[:0]
		found := false
		for _, item := range playlist.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return errNotFound
		}
		playlist.Items = kept
		return nil
	})
	if err != nil {
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "item_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"deleted": itemID})
}

type reorderRequest struct {
	ItemIDs []string `json:"itemIds"`
}

// handleItemsReorder rewrites the playlist's item order. The request must
// name every existing item exactly once.
func (a *API) handleItemsReorder(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	badOrder := false
	var items []models.PlaylistItem
	_, err := a.playlists.Update(func(coll *models.PlaylistCollection) error {
		playlist := coll.FindPlaylist(playlistID)
		if playlist == nil {
			return errNotFound
		}
		if len(req.ItemIDs) != len(playlist.Items) {
			badOrder = true
			return errNotFound
		}

		reordered := make([]models.PlaylistItem, 0, len(playlist.Items))
		seen := make(map[string]bool, len(req.ItemIDs))
		for _, id := range req.ItemIDs {
			if seen[id] {
				badOrder = true
				return errNotFound
			}
			seen[id] = true
			item := playlist.FindItem(id)
			if item == nil {
				badOrder = true
				return errNotFound
			}
			reordered = append(reordered, *item)
		}
		playlist.Items = reordered
		items = reordered
		return nil
	})
	if err != nil {
		if badOrder {
			writeError(w, http.StatusBadRequest, "invalid_item_order")
			return
		}
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	a.generator.Invalidate()
	writeJSON(w, http.StatusOK, items)
}
