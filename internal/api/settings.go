/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gisete/carbon-sub000/internal/models"
)

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settings.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}
	settings.Normalize()
	writeJSON(w, http.StatusOK, settings)
}

// handleSettingsUpdate applies a partial settings document: absent fields
// keep their stored values.
func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(raw) {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	updated, err := a.settings.Update(func(s *models.Settings) error {
		if err := json.Unmarshal(raw, s); err != nil {
			return err
		}
		s.Normalize()
		return nil
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_settings")
		return
	}

	// Display parameters changed: cached frames no longer match.
	a.generator.Invalidate()
	a.logger.Info().Msg("settings updated")
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleBatteryHistory(w http.ResponseWriter, r *http.Request) {
	readings, err := a.history.BatterySince(a.since(r, 7*24*time.Hour))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (a *API) handleRotationHistory(w http.ResponseWriter, r *http.Request) {
	events, err := a.history.RotationsSince(a.since(r, 24*time.Hour))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) handleDirectorReset(w http.ResponseWriter, r *http.Request) {
	if err := a.director.ResetCycle(); err != nil {
		writeError(w, http.StatusInternalServerError, "reset_failed")
		return
	}
	a.generator.Invalidate()
	status, err := a.director.Tick(a.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "status_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleDirectorAdvance(w http.ResponseWriter, r *http.Request) {
	if err := a.director.AdvanceCycle(); err != nil {
		writeError(w, http.StatusInternalServerError, "advance_failed")
		return
	}
	status, err := a.director.Tick(a.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "status_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// since reads an optional hours=N query parameter bounding a history
// query, defaulting to def.
func (a *API) since(r *http.Request, def time.Duration) time.Time {
	window := def
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			window = time.Duration(hours) * time.Hour
		}
	}
	return a.now().Add(-window)
}
