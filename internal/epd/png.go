/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package epd

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// The encoder is hand-rolled because the panel needs two properties
// general-purpose PNG encoders do not guarantee: the PLTE entries in
// exactly the order the quantizer's indices assume, and filter-type-none
// on every scanline (adaptive filtering shows up as streaking on the
// hardware).

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// PaletteEntry is one RGB triple of the PLTE chunk.
type PaletteEntry [3]uint8

// GrayPalette builds the palette matching Quantize's index semantics:
// index 0 is black, ascending to white.
func GrayPalette(bitDepth int) ([]PaletteEntry, error) {
	levels, err := Levels(bitDepth)
	if err != nil {
		return nil, err
	}
	palette := make([]PaletteEntry, len(levels))
	for i, v := range levels {
		palette[i] = PaletteEntry{v, v, v}
	}
	return palette, nil
}

// EncodeIndexedPNG packs the index buffer into a bit-packed, CRC-correct,
// zlib-deflated indexed PNG. The palette order must match the index
// semantics exactly; that coupling is the contract with Quantize.
func EncodeIndexedPNG(indices []uint8, width, height, bitDepth int, palette []PaletteEntry) ([]byte, error) {
	if bitDepth != 1 && bitDepth != 2 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if len(indices) != width*height {
		return nil, fmt.Errorf("index buffer length %d does not match %dx%d", len(indices), width, height)
	}
	maxEntries := 1 << bitDepth
	if len(palette) == 0 || len(palette) > maxEntries {
		return nil, fmt.Errorf("palette size %d invalid for bit depth %d", len(palette), bitDepth)
	}
	for i, idx := range indices {
		if int(idx) >= len(palette) {
			return nil, fmt.Errorf("index %d at pixel %d outside palette of %d entries", idx, i, len(palette))
		}
	}

	var out bytes.Buffer
	out.Write(pngSignature)

	// IHDR: width, height, bit depth, color type 3 (indexed), default
	// compression/filter/interlace.
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = byte(bitDepth)
	ihdr[9] = 3
	writeChunk(&out, "IHDR", ihdr)

	plte := make([]byte, 0, len(palette)*3)
	for _, entry := range palette {
		plte = append(plte, entry[0], entry[1], entry[2])
	}
	writeChunk(&out, "PLTE", plte)

	idat, err := deflateScanlines(indices, width, height, bitDepth)
	if err != nil {
		return nil, err
	}
	writeChunk(&out, "IDAT", idat)

	writeChunk(&out, "IEND", nil)
	return out.Bytes(), nil
}

// deflateScanlines packs indices MSB-first, 8/bitDepth pixels per byte,
// each scanline prefixed with the filter-type-none marker and zero-padded
// to a whole byte, then zlib-compresses the stream.
func deflateScanlines(indices []uint8, width, height, bitDepth int) ([]byte, error) {
	pixelsPerByte := 8 / bitDepth
	rowBytes := (width + pixelsPerByte - 1) / pixelsPerByte

	raw := make([]byte, 0, height*(rowBytes+1))
	for y := 0; y < height; y++ {
		raw = append(raw, 0x00) // filter type none
		var acc byte
		bits := 0
		for x := 0; x < width; x++ {
			acc = acc<<bitDepth | indices[y*width+x]
			bits += bitDepth
			if bits == 8 {
				raw = append(raw, acc)
				acc, bits = 0, 0
			}
		}
		if bits > 0 {
			raw = append(raw, acc<<(8-bits))
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("deflate scanlines: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close deflate stream: %w", err)
	}
	return compressed.Bytes(), nil
}

// writeChunk emits one length-prefixed chunk with the CRC-32 of its
// type+data appended, per the PNG spec.
func writeChunk(out *bytes.Buffer, chunkType string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	out.Write(length[:])

	crc := crc32.NewIEEE()
	out.WriteString(chunkType)
	crc.Write([]byte(chunkType))
	out.Write(data)
	crc.Write(data)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	out.Write(sum[:])
}
