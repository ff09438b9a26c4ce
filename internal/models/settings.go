package models

// DitherKernel selects the error-diffusion kernel.
type DitherKernel string

const (
	KernelFloydSteinberg DitherKernel = "floyd-steinberg"
	KernelAtkinson       DitherKernel = "atkinson"
)

// Settings is the persisted global device configuration.
type Settings struct {
	PanelWidth             int          `json:"panelWidth"`
	PanelHeight            int          `json:"panelHeight"`
	DefaultDurationMinutes int          `json:"defaultDurationMinutes"`
	DayStartTime           string       `json:"dayStartTime"`
	DayEndTime             string       `json:"dayEndTime"`
	BitDepth               int          `json:"bitDepth"`
	Dither                 bool         `json:"dither"`
	DitherKernel           DitherKernel `json:"ditherKernel"`
	Invert                 bool         `json:"invert"`
	Timezone               string       `json:"timezone"`
}

// DefaultSettings are used on first run and whenever the settings file is
// missing or unreadable.
func DefaultSettings() Settings {
	return Settings{
		PanelWidth:             800,
		PanelHeight:            480,
		DefaultDurationMinutes: 10,
		DayStartTime:           "06:00",
		DayEndTime:             "22:00",
		BitDepth:               1,
		Dither:                 true,
		DitherKernel:           KernelFloydSteinberg,
		Invert:                 false,
		Timezone:               "UTC",
	}
}

// Normalize repairs incoherent fields in place, mirroring
// PlaylistCollection.Normalize: a bad settings document degrades to
// defaults instead of failing.
func (s *Settings) Normalize() {
	if s.PanelWidth <= 0 || s.PanelHeight <= 0 {
		def := DefaultSettings()
		s.PanelWidth, s.PanelHeight = def.PanelWidth, def.PanelHeight
	}
	if s.DefaultDurationMinutes <= 0 {
		s.DefaultDurationMinutes = DefaultSettings().DefaultDurationMinutes
	}
	if s.BitDepth != 1 && s.BitDepth != 2 {
		s.BitDepth = 1
	}
	if s.DitherKernel != KernelFloydSteinberg && s.DitherKernel != KernelAtkinson {
		s.DitherKernel = KernelFloydSteinberg
	}
	if s.DayStartTime == "" {
		s.DayStartTime = DefaultSettings().DayStartTime
	}
	if s.DayEndTime == "" {
		s.DayEndTime = DefaultSettings().DayEndTime
	}
}
