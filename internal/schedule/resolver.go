/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/gisete/carbon-sub000/internal/models"
)

// ResolveActivePlaylist picks the single playlist that should be driving
// the display at now. Priority: manual override, then the most specific
// matching weekly window, then the default, then the first playlist.
// Returns nil only for an empty collection. Pure: never mutates the
// collection or any persisted state.
func ResolveActivePlaylist(c *models.PlaylistCollection, now time.Time) *models.Playlist {
	if c == nil || len(c.Playlists) == 0 {
		return nil
	}

	if c.ActivePlaylistID != "" {
		if p := c.FindPlaylist(c.ActivePlaylistID); p != nil {
			return p
		}
	}

	if p := mostSpecificMatch(c, now); p != nil {
		return p
	}

	if p := c.DefaultPlaylist(); p != nil {
		return p
	}

	// The single-default invariant should make this unreachable, but a
	// collection written by an older build may violate it.
	return &c.Playlists[0]
}

// mostSpecificMatch returns the scheduled non-default playlist whose window
// contains now, preferring the smallest window. Equal durations tie-break
// on the smaller playlist ID: list order shifts under admin edits, the ID
// does not.
func mostSpecificMatch(c *models.PlaylistCollection, now time.Time) *models.Playlist {
	var best *models.Playlist
	bestDuration := 0

	weekday := int(now.Weekday())
	for i := range c.Playlists {
		p := &c.Playlists[i]
		if p.IsDefault || p.Schedule.Type != models.ScheduleWeekly {
			continue
		}
		if !p.Schedule.HasDay(weekday) {
			continue
		}
		start, err := ParseClock(p.Schedule.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseClock(p.Schedule.EndTime)
		if err != nil {
			continue
		}
		if !WindowContains(start, end, minuteOfDay(now)) {
			continue
		}
		dur := WindowDuration(start, end)
		switch {
		case best == nil, dur < bestDuration:
			best, bestDuration = p, dur
		case dur == bestDuration && p.ID < best.ID:
			best = p
		}
	}
	return best
}
