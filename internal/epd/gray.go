/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package epd converts rendered frames into the panel's native format:
// an 8-bit grayscale raster is quantized to a 1- or 2-bit palette and
// encoded as an indexed PNG with an exact, caller-controlled palette
// order and no per-row filtering.
package epd

import (
	"image"
	"image/color"
)

// ToGray converts any frame to 8-bit single-channel using Rec.601 luma
// weights. A *image.Gray input is returned as-is.
func ToGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}

	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			// Channels are 16-bit here; same integer luma as the stdlib
			// gray color model.
			lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
			dst.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return dst
}
