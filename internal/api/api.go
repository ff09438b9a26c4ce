/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gisete/carbon-sub000/internal/history"
	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/playout"
	"github.com/gisete/carbon-sub000/internal/render"
	"github.com/gisete/carbon-sub000/internal/scheduling"
	"github.com/gisete/carbon-sub000/internal/storage"
	"github.com/gisete/carbon-sub000/internal/telemetry"
)

// API exposes the device-facing and admin-facing HTTP handlers.
type API struct {
	settings  *storage.Store[models.Settings]
	playlists *storage.Store[models.PlaylistCollection]
	director  *playout.Director
	generator *render.Generator
	validator *scheduling.Validator
	history   *history.Service
	metrics   *telemetry.Metrics
	logger    zerolog.Logger

	now func() time.Time
}

// New creates the API wrapper.
func New(
	settings *storage.Store[models.Settings],
	playlists *storage.Store[models.PlaylistCollection],
	director *playout.Director,
	generator *render.Generator,
	validator *scheduling.Validator,
	historySvc *history.Service,
	metrics *telemetry.Metrics,
	logger zerolog.Logger,
) *API {
	return &API{
		settings:  settings,
		playlists: playlists,
		director:  director,
		generator: generator,
		validator: validator,
		history:   historySvc,
		metrics:   metrics,
		logger:    logger.With().Str("component", "api").Logger(),
		now:       time.Now,
	}
}

// Routes mounts all endpoints on the router.
func (a *API) Routes(r chi.Router) {
	// Device-facing.
	r.Get("/api/display", a.handleDisplayStatus)
	r.Get("/api/display/image", a.handleDisplayImage)
	r.Post("/api/device/battery", a.handleBatteryReport)
	r.Post("/api/device/wake", a.handleDeviceWake)

	// Admin-facing.
	r.Route("/api/playlists", func(r chi.Router) {
		r.Get("/", a.handlePlaylistsList)
		r.Post("/", a.handlePlaylistCreate)
		r.Delete("/active", a.handleClearActive)
		r.Route("/{playlistID}", func(r chi.Router) {
			r.Get("/", a.handlePlaylistGet)
			r.Put("/", a.handlePlaylistUpdate)
			r.Delete("/", a.handlePlaylistDelete)
			r.Post("/activate", a.handlePlaylistActivate)
			r.Post("/items", a.handleItemAdd)
			r.Post("/items/reorder", a.handleItemsReorder)
			r.Put("/items/{itemID}", a.handleItemUpdate)
			r.Delete("/items/{itemID}", a.handleItemDelete)
		})
	})
	r.Get("/api/settings", a.handleSettingsGet)
	r.Put("/api/settings", a.handleSettingsUpdate)
	r.Get("/api/history/battery", a.handleBatteryHistory)
	r.Get("/api/history/rotation", a.handleRotationHistory)
	r.Post("/api/director/reset", a.handleDirectorReset)
	r.Post("/api/director/advance", a.handleDirectorAdvance)

	// Screen pages the headless frame producer captures.
	r.Get("/render/{screen}", a.handleRenderScreen)
}

// errNotFound marks a missing entity inside a store Update callback.
var errNotFound = errors.New("not found")

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeValidation translates scheduling rejections to 422 with the full
// violation list; anything else is an internal error.
func writeValidation(w http.ResponseWriter, err error) bool {
	var verr *scheduling.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation_failed",
			"violations": verr.Violations,
		})
		return true
	}
	return false
}
