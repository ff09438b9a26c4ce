/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gisete/carbon-sub000/internal/models"
)

// renderPage is the self-hosted screen the frame producer captures. It is
// intentionally monochrome-friendly: black on white, large type, no
// chrome.
var renderPage = template.Must(template.New("render").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; width: {{.Width}}px; height: {{.Height}}px;
    background: #fff; color: #000; font-family: sans-serif; overflow: hidden; }
  .screen { display: flex; flex-direction: column; justify-content: center;
    align-items: center; height: 100%; text-align: center; }
  h1 { font-size: 64px; margin: 0 0 16px; }
  h2 { font-size: 32px; font-weight: normal; margin: 0; }
  .meta { position: absolute; bottom: 12px; right: 16px; font-size: 18px; }
</style>
</head>
<body>
<div class="screen">
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<h2>{{.Subtitle}}</h2>{{end}}
</div>
<div class="meta">{{.Clock}}</div>
</body>
</html>
`))

type renderPageData struct {
	Title    string
	Subtitle string
	Width    int
	Height   int
	Clock    string
}

// handleRenderScreen serves the HTML page for one screen kind. The frame
// producer navigates here with ?item=<id>; unknown items still render a
// usable placeholder so a stale capture request cannot blank the panel.
func (a *API) handleRenderScreen(w http.ResponseWriter, r *http.Request) {
	screen := chi.URLParam(r, "screen")

	settings, err := a.settings.Load()
	if err != nil {
		settings = models.DefaultSettings()
	}
	settings.Normalize()

	data := renderPageData{
		Title:  screen,
		Width:  settings.PanelWidth,
		Height: settings.PanelHeight,
		Clock:  a.now().Format("15:04"),
	}

	if itemID := r.URL.Query().Get("item"); itemID != "" {
		if coll, err := a.playlists.Load(); err == nil {
			for i := range coll.Playlists {
				if item := coll.Playlists[i].FindItem(itemID); item != nil {
					if item.Title != "" {
						data.Title = item.Title
					}
					data.Subtitle = item.Subtitle
					break
				}
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage.Execute(w, data); err != nil {
		a.logger.Error().Err(err).Str("screen", screen).Msg("render page failed")
	}
}
