/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling validates playlist mutations before they are
// committed. Every admin-facing create/update/delete/set-active call runs
// through a Validator so that a conflicting schedule never reaches disk.
package scheduling

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/schedule"
)

// Rule identifiers attached to violations.
const (
	RuleOverlap       = "schedule_overlap"
	RuleDefaultDelete = "default_delete"
	RuleUnknownID     = "unknown_playlist"
	RuleBadClock      = "invalid_clock"
	RuleBadWeekday    = "invalid_weekday"
)

// Violation describes one rejected condition in novice-facing terms.
type Violation struct {
	Rule        string   `json:"rule"`
	Message     string   `json:"message"`
	AffectedIDs []string `json:"affectedIds,omitempty"`
}

// ValidationError aggregates violations for one rejected mutation.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "schedule validation failed: " + strings.Join(msgs, "; ")
}

// Validator validates playlist mutations against the scheduling rules.
type Validator struct {
	logger zerolog.Logger
}

// NewValidator creates a schedule validator.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger.With().Str("component", "schedule_validator").Logger()}
}

// ValidateUpsert checks candidate against every other playlist in the
// collection. Default playlists are exempt from overlap checks: the
// default is the fallback and may overlap anything.
func (v *Validator) ValidateUpsert(c *models.PlaylistCollection, candidate *models.Playlist) error {
	var violations []Violation

	violations = append(violations, checkSchedule(candidate)...)

	if !candidate.IsDefault && candidate.Schedule.Type == models.ScheduleWeekly && len(violations) == 0 {
		for i := range c.Playlists {
			other := &c.Playlists[i]
			if other.ID == candidate.ID || other.IsDefault {
				continue
			}
			if other.Schedule.Type != models.ScheduleWeekly {
				continue
			}
			if vio := checkOverlap(candidate, other); vio != nil {
				violations = append(violations, *vio)
			}
		}
	}

	if len(violations) > 0 {
		v.logger.Debug().Str("playlist", candidate.ID).Int("violations", len(violations)).Msg("mutation rejected")
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateDelete rejects deleting the default playlist while other
// playlists remain; the admin must hand the default flag to another
// playlist first. Deleting the last playlist empties the collection,
// which the single-default invariant permits.
func (v *Validator) ValidateDelete(c *models.PlaylistCollection, id string) error {
	target := c.FindPlaylist(id)
	if target == nil {
		return &ValidationError{Violations: []Violation{{
			Rule:        RuleUnknownID,
			Message:     fmt.Sprintf("playlist %q does not exist", id),
			AffectedIDs: []string{id},
		}}}
	}
	if target.IsDefault && len(c.Playlists) > 1 {
		return &ValidationError{Violations: []Violation{{
			Rule:        RuleDefaultDelete,
			Message:     fmt.Sprintf("playlist %q is the default; mark another playlist as default before deleting it", target.Name),
			AffectedIDs: []string{id},
		}}}
	}
	return nil
}

// ValidateSetActive rejects a manual override naming a nonexistent
// playlist. An empty id clears the override and is always valid.
func (v *Validator) ValidateSetActive(c *models.PlaylistCollection, id string) error {
	if id == "" {
		return nil
	}
	if c.FindPlaylist(id) == nil {
		return &ValidationError{Violations: []Violation{{
			Rule:        RuleUnknownID,
			Message:     fmt.Sprintf("playlist %q does not exist", id),
			AffectedIDs: []string{id},
		}}}
	}
	return nil
}

func checkSchedule(p *models.Playlist) []Violation {
	if p.Schedule.Type != models.ScheduleWeekly {
		return nil
	}
	var violations []Violation
	for _, clock := range []string{p.Schedule.StartTime, p.Schedule.EndTime} {
		if _, err := schedule.ParseClock(clock); err != nil {
			violations = append(violations, Violation{
				Rule:        RuleBadClock,
				Message:     fmt.Sprintf("playlist %q has an invalid time %q, expected HH:MM", p.Name, clock),
				AffectedIDs: []string{p.ID},
			})
		}
	}
	for _, d := range p.Schedule.Days {
		if d < 0 || d > 6 {
			violations = append(violations, Violation{
				Rule:        RuleBadWeekday,
				Message:     fmt.Sprintf("playlist %q has weekday %d outside 0-6", p.Name, d),
				AffectedIDs: []string{p.ID},
			})
		}
	}
	return violations
}

// checkOverlap returns a violation when the two playlists share a weekday
// and their windows intersect.
func checkOverlap(a, b *models.Playlist) *Violation {
	shared := -1
	for _, d := range a.Schedule.Days {
		if b.Schedule.HasDay(d) {
			shared = d
			break
		}
	}
	if shared < 0 {
		return nil
	}

	a0, err := schedule.ParseClock(a.Schedule.StartTime)
	if err != nil {
		return nil
	}
	a1, err := schedule.ParseClock(a.Schedule.EndTime)
	if err != nil {
		return nil
	}
	b0, err := schedule.ParseClock(b.Schedule.StartTime)
	if err != nil {
		return nil
	}
	b1, err := schedule.ParseClock(b.Schedule.EndTime)
	if err != nil {
		return nil
	}

	if !schedule.WindowsOverlap(a0, a1, b0, b1) {
		return nil
	}
	return &Violation{
		Rule: RuleOverlap,
		Message: fmt.Sprintf("playlist %q overlaps %q (%s-%s vs %s-%s on day %d); adjust one window so only one plays at a time",
			a.Name, b.Name, a.Schedule.StartTime, a.Schedule.EndTime, b.Schedule.StartTime, b.Schedule.EndTime, shared),
		AffectedIDs: []string{a.ID, b.ID},
	}
}
