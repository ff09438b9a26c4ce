/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/power"
	"github.com/gisete/carbon-sub000/internal/schedule"
)

// displayResponse is the compact device poll answer: what to show plus
// how long to sleep before polling again.
type displayResponse struct {
	NextRefreshSeconds int    `json:"nextRefreshSeconds"`
	CurrentItemID      string `json:"currentItemId,omitempty"`
	IsNightMode        bool   `json:"isNightMode"`
	BatteryLevel       int    `json:"batteryLevel"`
	Sleeping           bool   `json:"sleeping"`
	ImageURL           string `json:"imageUrl,omitempty"`
}

// handleDisplayStatus is the device's main poll. It always answers with a
// usable refresh interval, even when resolution fails, so a battery
// device never spins on errors or sleeps forever.
func (a *API) handleDisplayStatus(w http.ResponseWriter, r *http.Request) {
	a.metrics.DevicePolls.Inc()
	now := a.now()

	status, err := a.director.Tick(now)
	if err != nil {
		a.logger.Error().Err(err).Msg("display status tick failed")
		writeJSON(w, http.StatusOK, displayResponse{
			NextRefreshSeconds: 60,
			Sleeping:           true,
		})
		return
	}

	settings, serr := a.settings.Load()
	if serr != nil {
		settings = models.DefaultSettings()
	}
	settings.Normalize()

	night, nerr := schedule.IsNightMode(settings.DayStartTime, settings.DayEndTime, now)
	if nerr != nil {
		night = false
	}

	refresh := power.CalculateSleepSeconds(
		now, status.NextSwitchTime, status.BatteryLevel, night, settings.DayStartTime)
	if refresh < 10 {
		refresh = 10
	}

	resp := displayResponse{
		NextRefreshSeconds: refresh,
		IsNightMode:        night,
		BatteryLevel:       status.BatteryLevel,
		Sleeping:           status.Sleeping,
	}
	if status.CurrentItem != nil {
		resp.CurrentItemID = status.CurrentItem.ID
		resp.ImageURL = "/api/display/image"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDisplayImage serves the current item as a device-ready indexed
// PNG.
func (a *API) handleDisplayImage(w http.ResponseWriter, r *http.Request) {
	now := a.now()

	status, err := a.director.Tick(now)
	if err != nil {
		a.logger.Error().Err(err).Msg("display image tick failed")
		writeError(w, http.StatusInternalServerError, "status_unavailable")
		return
	}
	if status.Sleeping || status.CurrentItem == nil {
		writeError(w, http.StatusNotFound, "display_sleeping")
		return
	}

	settings, err := a.settings.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "settings_unavailable")
		return
	}
	settings.Normalize()

	frame, err := a.generator.Generate(r.Context(), *status.CurrentItem, settings)
	if err != nil {
		a.logger.Error().Err(err).Str("item", status.CurrentItem.ID).Msg("frame generation failed")
		writeError(w, http.StatusBadGateway, "frame_generation_failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.PNG)))
	w.Header().Set("X-Item-ID", frame.ItemID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.PNG)
}

type batteryReport struct {
	Level int `json:"level"`
}

func (a *API) handleBatteryReport(w http.ResponseWriter, r *http.Request) {
	var report batteryReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := a.director.UpdateBatteryLevel(report.Level); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_level")
		return
	}

	a.metrics.BatteryLevel.Set(float64(report.Level))
	a.history.RecordBattery(report.Level, a.now())
	writeJSON(w, http.StatusOK, map[string]int{"level": report.Level})
}

// handleDeviceWake advances the rotation immediately. The device calls
// this when its physical button wakes it ahead of schedule. The switch
// itself is recorded by the director's switch listener.
func (a *API) handleDeviceWake(w http.ResponseWriter, r *http.Request) {
	if err := a.director.AdvanceCycle(); err != nil {
		a.logger.Error().Err(err).Msg("wake advance failed")
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
