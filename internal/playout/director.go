/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/schedule"
	"github.com/gisete/carbon-sub000/internal/storage"
)

const (
	// recheckInterval is the re-poll horizon reported while sleeping or
	// when nothing resolves to a showable item.
	recheckInterval = 60 * time.Second

	// staleAfter bounds how old a persisted switch timestamp may be
	// before it is treated as corrupt (dead process, clock skew).
	staleAfter = 24 * time.Hour
)

// SwitchListener observes item switches after the new position is
// persisted. Scheduled advances report forced=false, early-wake and
// admin advances forced=true.
type SwitchListener func(playlistID, itemID string, cycleIndex int, forced bool, at time.Time)

// Director is the rotation state machine. There is no background loop:
// the machine is re-derived from persisted state plus wall-clock time on
// every call, so it survives process restarts without drift and tests
// just inject now.
type Director struct {
	states    *storage.Store[models.DirectorState]
	playlists *storage.Store[models.PlaylistCollection]
	settings  *storage.Store[models.Settings]
	logger    zerolog.Logger

	mu       sync.Mutex
	now      func() time.Time
	onSwitch SwitchListener
}

// OnSwitch registers the switch observer. The listener runs with the
// director lock held and must not call back into the Director.
func (d *Director) OnSwitch(fn SwitchListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSwitch = fn
}

func (d *Director) notifySwitchLocked(playlistID, itemID string, cycleIndex int, forced bool, at time.Time) {
	if d.onSwitch != nil {
		d.onSwitch(playlistID, itemID, cycleIndex, forced, at)
	}
}

// NewDirector creates the rotation state machine over the given stores.
func NewDirector(
	states *storage.Store[models.DirectorState],
	playlists *storage.Store[models.PlaylistCollection],
	settings *storage.Store[models.Settings],
	logger zerolog.Logger,
) *Director {
	return &Director{
		states:    states,
		playlists: playlists,
		settings:  settings,
		logger:    logger.With().Str("component", "director").Logger(),
		now:       time.Now,
	}
}

// resolution is the outcome of steps 1-4 of a tick.
type resolution struct {
	settings models.Settings
	state    models.DirectorState
	playlist *models.Playlist
	visible  []models.PlaylistItem
	changed  bool
	sleeping bool
}

// Tick is the core step function: it answers "what to show now" and
// "when next", advancing and persisting the cycle when the current item
// has run out. Given identical persisted state, collection and now, Tick
// is idempotent while no advance boundary is crossed.
func (d *Director) Tick(now time.Time) (models.DirectorStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.resolveLocked(now)
	if err != nil {
		return sleepStatus(now, 0), err
	}
	if res.sleeping || res.playlist == nil {
		if res.changed {
			d.persistLocked(res.state)
		}
		return sleepStatus(now, res.state.BatteryLevel), nil
	}

	defaultMinutes := res.settings.DefaultDurationMinutes
	item := res.visible[res.state.CurrentCycleIndex]
	itemEnd := res.state.LastSwitchTime + item.Duration(defaultMinutes).Milliseconds()

	if now.UnixMilli() >= itemEnd {
		res.state.CurrentCycleIndex = (res.state.CurrentCycleIndex + 1) % len(res.visible)
		res.state.LastSwitchTime = now.UnixMilli()
		res.changed = true

		item = res.visible[res.state.CurrentCycleIndex]
		itemEnd = res.state.LastSwitchTime + item.Duration(defaultMinutes).Milliseconds()
		d.notifySwitchLocked(res.playlist.ID, item.ID, res.state.CurrentCycleIndex, false, now)
		d.logger.Debug().
			Str("playlist", res.playlist.ID).
			Int("cycle", res.state.CurrentCycleIndex).
			Str("item", item.ID).
			Msg("advanced rotation")
	}

	if res.changed {
		d.persistLocked(res.state)
	}

	return models.DirectorStatus{
		CurrentItem:    &item,
		NextSwitchTime: itemEnd,
		CycleIndex:     res.state.CurrentCycleIndex,
		VisibleCount:   len(res.visible),
		PlaylistID:     res.playlist.ID,
		PlaylistName:   res.playlist.Name,
		BatteryLevel:   res.state.BatteryLevel,
	}, nil
}

// CurrentItem answers "what to show" without rotation timing. Read-only
// except for reset-on-change repair persistence.
func (d *Director) CurrentItem(now time.Time) (*models.PlaylistItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.resolveLocked(now)
	if err != nil {
		return nil, err
	}
	if res.changed {
		d.persistLocked(res.state)
	}
	if res.sleeping || res.playlist == nil {
		return nil, nil
	}
	item := res.visible[res.state.CurrentCycleIndex]
	return &item, nil
}

// AdvanceCycle force-advances one step regardless of elapsed time. Used
// when the device wakes early (physical button press inferred from a poll
// far ahead of its expected sleep interval).
func (d *Director) AdvanceCycle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	res, err := d.resolveLocked(now)
	if err != nil {
		return err
	}
	if res.playlist == nil || len(res.visible) == 0 {
		if res.changed {
			d.persistLocked(res.state)
		}
		return nil
	}

	res.state.CurrentCycleIndex = (res.state.CurrentCycleIndex + 1) % len(res.visible)
	res.state.LastSwitchTime = now.UnixMilli()
	d.persistLocked(res.state)
	item := res.visible[res.state.CurrentCycleIndex]
	d.notifySwitchLocked(res.playlist.ID, item.ID, res.state.CurrentCycleIndex, true, now)
	d.logger.Info().Int("cycle", res.state.CurrentCycleIndex).Msg("forced advance")
	return nil
}

// ResetCycle forces the rotation back to the first visible item of
// whatever playlist currently resolves.
func (d *Director) ResetCycle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	res, err := d.resolveLocked(now)
	if err != nil {
		return err
	}
	res.state.CurrentCycleIndex = 0
	res.state.LastSwitchTime = now.UnixMilli()
	if res.playlist != nil {
		res.state.ActivePlaylistID = res.playlist.ID
	}
	d.persistLocked(res.state)
	return nil
}

// UpdateBatteryLevel records the device-reported battery percentage,
// persisting only on change to avoid redundant writes.
func (d *Director) UpdateBatteryLevel(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("battery level %d outside 0-100", level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.states.Load()
	if err != nil {
		return err
	}
	if state.BatteryLevel == level {
		return nil
	}
	state.BatteryLevel = level
	d.persistLocked(state)
	return nil
}

// BatteryLevel returns the last reported battery percentage.
func (d *Director) BatteryLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.states.Load()
	if err != nil {
		return 0
	}
	return state.BatteryLevel
}

// resolveLocked performs steps 1-4 of the tick: night check, playlist
// resolution, staleness repair and playlist-change repair.
func (d *Director) resolveLocked(now time.Time) (resolution, error) {
	settings, err := d.settings.Load()
	if err != nil {
		return resolution{}, fmt.Errorf("load settings: %w", err)
	}
	settings.Normalize()

	state, err := d.states.Load()
	if err != nil {
		return resolution{}, fmt.Errorf("load director state: %w", err)
	}
	if state.LastSwitchTime == 0 {
		// First use: seed the switch clock, keep any reported battery.
		state.CurrentCycleIndex = 0
		state.LastSwitchTime = now.UnixMilli()
	}

	res := resolution{settings: settings, state: state}

	night, err := schedule.IsNightMode(settings.DayStartTime, settings.DayEndTime, now)
	if err != nil {
		return res, fmt.Errorf("night window: %w", err)
	}
	if night {
		res.sleeping = true
		return res, nil
	}

	coll, err := d.playlists.Load()
	if err != nil {
		return res, fmt.Errorf("load playlists: %w", err)
	}
	coll.Normalize()

	playlist := schedule.ResolveActivePlaylist(&coll, now)
	if playlist == nil {
		res.sleeping = true
		return res, nil
	}
	visible := playlist.VisibleItems()
	if len(visible) == 0 {
		res.sleeping = true
		return res, nil
	}

	// Staleness repair: negative or ancient switch timestamps mean clock
	// skew or a long-dead process.
	delta := now.UnixMilli() - res.state.LastSwitchTime
	if delta < 0 || delta > staleAfter.Milliseconds() {
		d.logger.Warn().Int64("delta_ms", delta).Msg("stale switch timestamp, resetting")
		res.state.LastSwitchTime = now.UnixMilli()
		res.changed = true
	}

	// Playlist-change repair: a different resolved playlist or an index
	// past the end of the item list restarts the rotation.
	if res.state.ActivePlaylistID != playlist.ID ||
		res.state.CurrentCycleIndex < 0 ||
		res.state.CurrentCycleIndex >= len(visible) {
		res.state.ActivePlaylistID = playlist.ID
		res.state.CurrentCycleIndex = 0
		res.state.LastSwitchTime = now.UnixMilli()
		res.changed = true
	}

	res.playlist = playlist
	res.visible = visible
	return res, nil
}

func (d *Director) persistLocked(state models.DirectorState) {
	if err := d.states.Save(state); err != nil {
		d.logger.Error().Err(err).Msg("persist director state failed")
	}
}

func sleepStatus(now time.Time, battery int) models.DirectorStatus {
	return models.DirectorStatus{
		Sleeping:       true,
		NextSwitchTime: now.Add(recheckInterval).UnixMilli(),
		BatteryLevel:   battery,
	}
}
