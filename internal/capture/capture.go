/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package capture produces frames by driving a headless browser against
// the local render pages. It is the only external collaborator of the
// generation pipeline and every call is bounded by a timeout.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// ErrTimeout reports that the frame producer exceeded its deadline.
var ErrTimeout = errors.New("frame capture timed out")

// Request identifies one frame to produce.
type Request struct {
	// Screen is the logical screen identifier (content type or item id)
	// rendered at /render/{screen}.
	Screen string
	// Params are passed through to the render page.
	Params url.Values
	// Width and Height fix the capture viewport to the panel size.
	Width  int
	Height int
}

// Producer yields a fixed-size raster for a logical screen within a
// bounded time.
type Producer interface {
	Capture(ctx context.Context, req Request) (image.Image, error)
}

// Config configures the browser producer.
type Config struct {
	// RenderBaseURL is the origin serving the render pages, normally the
	// process's own HTTP listener.
	RenderBaseURL string
	// Timeout bounds one capture end to end.
	Timeout time.Duration
}

// BrowserProducer drives a shared headless Chromium instance. The
// browser is launched lazily on first capture and reused.
type BrowserProducer struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserProducer creates the producer without launching a browser.
func NewBrowserProducer(cfg Config, logger zerolog.Logger) *BrowserProducer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &BrowserProducer{
		cfg:    cfg,
		logger: logger.With().Str("component", "capture").Logger(),
	}
}

// Capture navigates to the screen's render page, waits for it to settle
// and screenshots the viewport. Timeouts and render failures come back
// as typed errors, never a partial frame.
func (p *BrowserProducer) Capture(ctx context.Context, req Request) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	browser, err := p.ensureBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	target := fmt.Sprintf("%s/render/%s", p.cfg.RenderBaseURL, url.PathEscape(req.Screen))
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, p.translate(fmt.Errorf("open render page: %w", err), ctx)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             req.Width,
		Height:            req.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, p.translate(fmt.Errorf("set viewport: %w", err), ctx)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, p.translate(fmt.Errorf("wait for render page: %w", err), ctx)
	}

	shot, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, p.translate(fmt.Errorf("screenshot: %w", err), ctx)
	}

	frame, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	p.logger.Debug().Str("screen", req.Screen).Int("w", req.Width).Int("h", req.Height).Msg("frame captured")
	return frame, nil
}

// Close shuts down the shared browser if one was launched.
func (p *BrowserProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}

func (p *BrowserProducer) ensureBrowser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return p.browser, nil
	}

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, err
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	p.browser = browser
	p.logger.Info().Msg("headless browser launched")
	return browser, nil
}

// translate maps a context deadline into the typed timeout error.
func (p *BrowserProducer) translate(err error, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
