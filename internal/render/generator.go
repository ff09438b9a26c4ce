/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package render runs the capture, quantize and encode pipeline under a
// single-flight guard: at most one generation runs at a time per frame
// key, concurrent callers wait for the in-flight result, and a cached
// frame younger than the freshness threshold is served without
// regenerating.
package render

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gisete/carbon-sub000/internal/capture"
	"github.com/gisete/carbon-sub000/internal/epd"
	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/telemetry"
)

// Frame is one generated, device-ready image.
type Frame struct {
	PNG         []byte
	ItemID      string
	BitDepth    int
	Width       int
	Height      int
	GeneratedAt time.Time
}

// Generator owns the generation pipeline and its frame cache.
type Generator struct {
	producer capture.Producer
	metrics  *telemetry.Metrics
	logger   zerolog.Logger

	// maxAge is the freshness threshold below which a cached frame is
	// reused instead of regenerated.
	maxAge time.Duration

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*Frame
	now   func() time.Time
}

// NewGenerator creates the generation service.
func NewGenerator(producer capture.Producer, metrics *telemetry.Metrics, maxAge time.Duration, logger zerolog.Logger) *Generator {
	if maxAge <= 0 {
		maxAge = 15 * time.Second
	}
	return &Generator{
		producer: producer,
		metrics:  metrics,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "render").Logger(),
		cache:    make(map[string]*Frame),
		now:      time.Now,
	}
}

// Generate produces the device image for one playlist item. Concurrent
// calls for the same item share a single capture; failures release the
// guard and leave no cache entry behind.
func (g *Generator) Generate(ctx context.Context, item models.PlaylistItem, settings models.Settings) (*Frame, error) {
	bitDepth := settings.BitDepth
	if override := item.BitDepthOverride(); override == 1 || override == 2 {
		bitDepth = override
	}
	key := fmt.Sprintf("%s|%dx%d|%d|%v|%v", item.ID, settings.PanelWidth, settings.PanelHeight, bitDepth, settings.Dither, settings.Invert)

	if frame := g.cachedFresh(key); frame != nil {
		return frame, nil
	}

	result, err, _ := g.group.Do(key, func() (any, error) {
		// Re-check under the guard: a waiter that lost the race may find
		// the winner's frame already cached.
		if frame := g.cachedFresh(key); frame != nil {
			return frame, nil
		}
		return g.generate(ctx, key, item, settings, bitDepth)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Frame), nil
}

// Invalidate drops every cached frame, forcing the next request to
// regenerate. Called when settings or playlists change.
func (g *Generator) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[string]*Frame)
}

func (g *Generator) cachedFresh(key string) *Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	frame, ok := g.cache[key]
	if !ok || g.now().Sub(frame.GeneratedAt) > g.maxAge {
		return nil
	}
	return frame
}

func (g *Generator) generate(ctx context.Context, key string, item models.PlaylistItem, settings models.Settings, bitDepth int) (*Frame, error) {
	started := g.now()

	params := url.Values{}
	params.Set("item", item.ID)

	raw, err := g.producer.Capture(ctx, capture.Request{
		Screen: string(item.ContentType),
		Params: params,
		Width:  settings.PanelWidth,
		Height: settings.PanelHeight,
	})
	if err != nil {
		g.metrics.CaptureFailures.Inc()
		g.metrics.Generations.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("capture frame for %s: %w", item.ID, err)
	}

	gray := epd.ToGray(raw)
	indices, err := epd.Quantize(gray, epd.QuantizeOptions{
		BitDepth: bitDepth,
		Dither:   settings.Dither,
		Kernel:   settings.DitherKernel,
		Invert:   settings.Invert,
	})
	if err != nil {
		g.metrics.Generations.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("quantize frame: %w", err)
	}

	palette, err := epd.GrayPalette(bitDepth)
	if err != nil {
		g.metrics.Generations.WithLabelValues("failure").Inc()
		return nil, err
	}

	bounds := gray.Bounds()
	png, err := epd.EncodeIndexedPNG(indices, bounds.Dx(), bounds.Dy(), bitDepth, palette)
	if err != nil {
		g.metrics.Generations.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	frame := &Frame{
		PNG:         png,
		ItemID:      item.ID,
		BitDepth:    bitDepth,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		GeneratedAt: g.now(),
	}

	g.mu.Lock()
	g.cache[key] = frame
	g.mu.Unlock()

	g.metrics.Generations.WithLabelValues("success").Inc()
	g.metrics.GenerationDuration.Observe(g.now().Sub(started).Seconds())
	g.logger.Debug().Str("item", item.ID).Int("bytes", len(png)).Dur("took", g.now().Sub(started)).Msg("frame generated")
	return frame, nil
}
