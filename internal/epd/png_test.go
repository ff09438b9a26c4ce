package epd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestGrayPaletteOrder(t *testing.T) {
	t.Parallel()

	p, err := GrayPalette(2)
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	want := []PaletteEntry{{0, 0, 0}, {85, 85, 85}, {170, 170, 170}, {255, 255, 255}}
	if len(p) != len(want) {
		t.Fatalf("palette length = %d", len(p))
	}
	for i := range want {
		if p[i] != want[i] {
			t.Fatalf("palette[%d] = %v, want %v", i, p[i], want[i])
		}
	}
}

func TestEncodeRoundTrip1Bit(t *testing.T) {
	t.Parallel()

	// Width 10 forces a partial trailing byte per scanline.
	const w, h = 10, 4
	indices := make([]uint8, w*h)
	for i := range indices {
		indices[i] = uint8((i + i/w) % 2) // checkerboard
	}
	palette, _ := GrayPalette(1)

	raw, err := EncodeIndexedPNG(indices, w, h, 1, palette)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("stdlib decode rejected our PNG: %v", err)
	}
	paletted, ok := decoded.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded as %T, want *image.Paletted", decoded)
	}
	if paletted.Bounds().Dx() != w || paletted.Bounds().Dy() != h {
		t.Fatalf("dimensions = %v", paletted.Bounds())
	}
	if len(paletted.Palette) != 2 {
		t.Fatalf("palette entries = %d, want 2", len(paletted.Palette))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := paletted.ColorIndexAt(x, y); got != indices[y*w+x] {
				t.Fatalf("pixel (%d,%d): index %d, want %d", x, y, got, indices[y*w+x])
			}
		}
	}
}

func TestEncodeRoundTrip2Bit(t *testing.T) {
	t.Parallel()

	const w, h = 7, 3
	indices := []uint8{
		0, 1, 2, 3, 0, 1, 2,
		3, 2, 1, 0, 3, 2, 1,
		1, 1, 1, 1, 1, 1, 1,
	}
	palette, _ := GrayPalette(2)

	raw, err := EncodeIndexedPNG(indices, w, h, 2, palette)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	paletted, ok := decoded.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded as %T", decoded)
	}
	if len(paletted.Palette) != 4 {
		t.Fatalf("palette entries = %d, want 4", len(paletted.Palette))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := paletted.ColorIndexAt(x, y); got != indices[y*w+x] {
				t.Fatalf("pixel (%d,%d): index %d, want %d", x, y, got, indices[y*w+x])
			}
		}
	}
	// Palette colors survive in order.
	r, g, b, _ := paletted.Palette[1].RGBA()
	if r>>8 != 85 || g>>8 != 85 || b>>8 != 85 {
		t.Fatalf("palette[1] = %d,%d,%d, want 85,85,85", r>>8, g>>8, b>>8)
	}
}

func TestEncodeSignatureAndHeader(t *testing.T) {
	t.Parallel()

	palette, _ := GrayPalette(1)
	raw, err := EncodeIndexedPNG([]uint8{0, 1, 1, 0}, 2, 2, 1, palette)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		t.Fatal("missing PNG signature")
	}
	// IHDR: 4 len + 4 type + 13 data; bit depth and color type live at
	// data offsets 8 and 9.
	ihdrData := raw[16 : 16+13]
	if ihdrData[8] != 1 {
		t.Fatalf("IHDR bit depth = %d, want 1", ihdrData[8])
	}
	if ihdrData[9] != 3 {
		t.Fatalf("IHDR color type = %d, want 3 (indexed)", ihdrData[9])
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	palette, _ := GrayPalette(1)
	if _, err := EncodeIndexedPNG([]uint8{0}, 2, 2, 1, palette); err == nil {
		t.Fatal("short index buffer accepted")
	}
	if _, err := EncodeIndexedPNG([]uint8{0, 0, 0, 0}, 2, 2, 8, palette); err == nil {
		t.Fatal("bit depth 8 accepted")
	}
	if _, err := EncodeIndexedPNG([]uint8{0, 3, 0, 0}, 2, 2, 1, palette); err == nil {
		t.Fatal("out-of-palette index accepted")
	}
}

// End-to-end: quantize then encode, decode with the stdlib, and verify
// the panel sees exactly what the quantizer produced.
func TestQuantizeEncodePipeline(t *testing.T) {
	t.Parallel()

	const w, h = 32, 16
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*8) + uint8(y)})
		}
	}
	indices, err := Quantize(img, QuantizeOptions{BitDepth: 2})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	palette, _ := GrayPalette(2)
	raw, err := EncodeIndexedPNG(indices, w, h, 2, palette)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	paletted := decoded.(*image.Paletted)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if paletted.ColorIndexAt(x, y) != indices[y*w+x] {
				t.Fatalf("pipeline corrupted pixel (%d,%d)", x, y)
			}
		}
	}
}
