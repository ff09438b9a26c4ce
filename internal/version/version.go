/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries the build version.
package version

// Version is the current release. Set at build time via ldflags:
//
//	-X github.com/gisete/carbon-sub000/internal/version.Version=X.Y.Z
var Version = "0.3.0"
