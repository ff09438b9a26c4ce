/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package epd

import (
	"fmt"
	"image"

	"github.com/gisete/carbon-sub000/internal/models"
)

// QuantizeOptions control the grayscale-to-palette mapping.
type QuantizeOptions struct {
	// BitDepth is 1 (2 levels) or 2 (4 levels).
	BitDepth int
	// Dither enables error-diffusion instead of plain thresholding.
	Dither bool
	// Kernel selects the diffusion kernel when dithering.
	Kernel models.DitherKernel
	// Invert negates samples before quantization. This is the single
	// inversion point; indices are never flipped downstream.
	Invert bool
}

// Levels returns the evenly spaced target levels for a bit depth:
// {0,255} for 1-bit, {0,85,170,255} for 2-bit.
func Levels(bitDepth int) ([]uint8, error) {
	switch bitDepth {
	case 1:
		return []uint8{0, 255}, nil
	case 2:
		return []uint8{0, 85, 170, 255}, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

// nearestLevel maps a clamped sample to its nearest level index.
func nearestLevel(v int, levelCount int) int {
	// Levels are evenly spaced over [0,255], so rounding the scaled
	// sample lands on the nearest bucket.
	idx := (v*(levelCount-1) + 127) / 255
	if idx < 0 {
		return 0
	}
	if idx > levelCount-1 {
		return levelCount - 1
	}
	return idx
}

// Quantize converts an 8-bit grayscale raster into palette indices, one
// byte per pixel in raster order, values 0..levels-1 with index 0 the
// darkest level.
func Quantize(src *image.Gray, opts QuantizeOptions) ([]uint8, error) {
	levels, err := Levels(opts.BitDepth)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty raster %dx%d", w, h)
	}

	// Working copy as signed values: diffusion pushes samples outside
	// [0,255] before clamping.
	work := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride:]
		for x := 0; x < w; x++ {
			v := int32(row[x+bounds.Min.X-src.Rect.Min.X])
			if opts.Invert {
				v = 255 - v
			}
			work[y*w+x] = v
		}
	}

	out := make([]uint8, w*h)
	if !opts.Dither {
		for i, v := range work {
			out[i] = uint8(nearestLevel(int(v), len(levels)))
		}
		return out, nil
	}

	diffuse := diffuseFloydSteinberg
	if opts.Kernel == models.KernelAtkinson {
		diffuse = diffuseAtkinson
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := clamp255(work[y*w+x])
			work[y*w+x] = v
			idx := nearestLevel(int(v), len(levels))
			out[y*w+x] = uint8(idx)
			qerr := v - int32(levels[idx])
			diffuse(work, w, h, x, y, qerr)
		}
	}
	return out, nil
}

func clamp255(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// diffuseFloydSteinberg spreads the quantization error to not-yet-visited
// neighbors: right 7/16, lower-left 3/16, lower 5/16, lower-right 1/16.
func diffuseFloydSteinberg(work []int32, w, h, x, y int, qerr int32) {
	if x+1 < w {
		work[y*w+x+1] += qerr * 7 / 16
	}
	if y+1 < h {
		if x-1 >= 0 {
			work[(y+1)*w+x-1] += qerr * 3 / 16
		}
		work[(y+1)*w+x] += qerr * 5 / 16
		if x+1 < w {
			work[(y+1)*w+x+1] += qerr * 1 / 16
		}
	}
}

// diffuseAtkinson spreads 1/8 of the error to each of six neighbors,
// deliberately losing 2/8 for a lighter, less wormy result on e-ink.
func diffuseAtkinson(work []int32, w, h, x, y int, qerr int32) {
	eighth := qerr / 8
	if x+1 < w {
		work[y*w+x+1] += eighth
	}
	if x+2 < w {
		work[y*w+x+2] += eighth
	}
	if y+1 < h {
		if x-1 >= 0 {
			work[(y+1)*w+x-1] += eighth
		}
		work[(y+1)*w+x] += eighth
		if x+1 < w {
			work[(y+1)*w+x+1] += eighth
		}
	}
	if y+2 < h {
		work[(y+2)*w+x] += eighth
	}
}
