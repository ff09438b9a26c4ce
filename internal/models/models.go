package models

import "time"

// ContentType enumerates the renderable screen kinds.
type ContentType string

const (
	ContentWeather    ContentType = "weather"
	ContentCalendar   ContentType = "calendar"
	ContentCustomText ContentType = "custom-text"
	ContentLogo       ContentType = "logo"
	ContentImage      ContentType = "image"
	ContentSystem     ContentType = "system"
	ContentComic      ContentType = "comic"
)

// ScheduleType selects how a playlist window is interpreted.
type ScheduleType string

const (
	ScheduleManual ScheduleType = "manual"
	ScheduleWeekly ScheduleType = "weekly"
)

// PlaylistItem is one displayable screen within a playlist.
type PlaylistItem struct {
	ID          string         `json:"id"`
	ContentType ContentType    `json:"contentType"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle,omitempty"`
	// Config carries content-type specific parameters, including the
	// optional per-item "bitDepth" palette override.
	Config          map[string]any `json:"config,omitempty"`
	DurationMinutes int            `json:"durationMinutes,omitempty"`
	Visible         *bool          `json:"visible,omitempty"`
}

// IsVisible reports whether the item participates in rotation.
// The flag defaults to visible when absent.
func (i PlaylistItem) IsVisible() bool {
	return i.Visible == nil || *i.Visible
}

// Duration returns the item duration, falling back to def when unset.
func (i PlaylistItem) Duration(def int) time.Duration {
	minutes := i.DurationMinutes
	if minutes <= 0 {
		minutes = def
	}
	return time.Duration(minutes) * time.Minute
}

// BitDepthOverride returns the per-item palette depth override, or 0 when
// the item has none configured.
func (i PlaylistItem) BitDepthOverride() int {
	if i.Config == nil {
		return 0
	}
	switch v := i.Config["bitDepth"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Schedule is a weekly time window. EndTime before StartTime means the
// window crosses midnight.
type Schedule struct {
	Type      ScheduleType `json:"type"`
	Days      []int        `json:"days,omitempty"`
	StartTime string       `json:"startTime,omitempty"`
	EndTime   string       `json:"endTime,omitempty"`
}

// HasDay reports whether weekday (0=Sunday) is active.
func (s Schedule) HasDay(weekday int) bool {
	for _, d := range s.Days {
		if d == weekday {
			return true
		}
	}
	return false
}

// Playlist is an ordered, schedulable group of display items.
type Playlist struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Schedule  Schedule       `json:"schedule"`
	Items     []PlaylistItem `json:"items"`
	IsDefault bool           `json:"isDefault"`
}

// VisibleItems returns the items that participate in rotation, in order.
func (p Playlist) VisibleItems() []PlaylistItem {
	out := make([]PlaylistItem, 0, len(p.Items))
	for _, item := range p.Items {
		if item.IsVisible() {
			out = append(out, item)
		}
	}
	return out
}

// FindItem returns a pointer to the item with the given id, or nil.
func (p *Playlist) FindItem(id string) *PlaylistItem {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// PlaylistCollection is the full persisted set of playlists plus the
// optional manual-override pointer.
type PlaylistCollection struct {
	Playlists        []Playlist `json:"playlists"`
	ActivePlaylistID string     `json:"activePlaylistId,omitempty"`
}

// FindPlaylist returns a pointer into the collection, or nil.
func (c *PlaylistCollection) FindPlaylist(id string) *Playlist {
	for i := range c.Playlists {
		if c.Playlists[i].ID == id {
			return &c.Playlists[i]
		}
	}
	return nil
}

// DefaultPlaylist returns the playlist flagged as default, or nil.
func (c *PlaylistCollection) DefaultPlaylist() *Playlist {
	for i := range c.Playlists {
		if c.Playlists[i].IsDefault {
			return &c.Playlists[i]
		}
	}
	return nil
}

// Normalize enforces the single-default invariant: with a non-empty
// collection exactly one playlist is default. Zero defaults promote the
// first playlist; extra defaults are demoted in list order.
func (c *PlaylistCollection) Normalize() {
	if len(c.Playlists) == 0 {
		return
	}
	seen := false
	for i := range c.Playlists {
		if !c.Playlists[i].IsDefault {
			continue
		}
		if seen {
			c.Playlists[i].IsDefault = false
			continue
		}
		seen = true
	}
	if !seen {
		c.Playlists[0].IsDefault = true
	}
}

// DirectorState is the persisted rotation position. Only the Director
// mutates it.
type DirectorState struct {
	CurrentCycleIndex int    `json:"currentCycleIndex"`
	LastSwitchTime    int64  `json:"lastSwitchTime"`
	ActivePlaylistID  string `json:"activePlaylistId,omitempty"`
	BatteryLevel      int    `json:"batteryLevel,omitempty"`
}

// NewDirectorState seeds first-run state at the given instant.
func NewDirectorState(now time.Time) DirectorState {
	return DirectorState{CurrentCycleIndex: 0, LastSwitchTime: now.UnixMilli()}
}

// DirectorStatus is the derived answer to "what is on screen right now".
// It is recomputed on every query and never persisted.
type DirectorStatus struct {
	CurrentItem    *PlaylistItem `json:"currentItem,omitempty"`
	NextSwitchTime int64         `json:"nextSwitchTime"`
	CycleIndex     int           `json:"cycleIndex"`
	VisibleCount   int           `json:"visibleCount"`
	PlaylistID     string        `json:"playlistId,omitempty"`
	PlaylistName   string        `json:"playlistName,omitempty"`
	Sleeping       bool          `json:"sleeping"`
	BatteryLevel   int           `json:"batteryLevel,omitempty"`
}
