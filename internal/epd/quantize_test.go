package epd

import (
	"image"
	"testing"

	"github.com/gisete/carbon-sub000/internal/models"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestLevels(t *testing.T) {
	t.Parallel()

	one, err := Levels(1)
	if err != nil || len(one) != 2 || one[0] != 0 || one[1] != 255 {
		t.Fatalf("Levels(1) = %v, %v", one, err)
	}
	two, err := Levels(2)
	if err != nil || len(two) != 4 || two[1] != 85 || two[2] != 170 {
		t.Fatalf("Levels(2) = %v, %v", two, err)
	}
	if _, err := Levels(4); err == nil {
		t.Fatal("Levels(4) should be rejected")
	}
}

func TestThresholdMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		sample   uint8
		want     uint8
	}{
		{1, 0, 0},
		{1, 127, 0},
		{1, 128, 1},
		{1, 255, 1},
		{2, 0, 0},
		{2, 42, 0},
		{2, 43, 1},
		{2, 127, 1},
		{2, 128, 2},
		{2, 212, 2},
		{2, 213, 3},
		{2, 255, 3},
	}
	for _, tt := range tests {
		img := uniformGray(1, 1, tt.sample)
		got, err := Quantize(img, QuantizeOptions{BitDepth: tt.bitDepth})
		if err != nil {
			t.Fatalf("quantize: %v", err)
		}
		if got[0] != tt.want {
			t.Errorf("bitDepth=%d sample=%d: index = %d, want %d", tt.bitDepth, tt.sample, got[0], tt.want)
		}
	}
}

// Negating the sample before quantization must be equivalent to flipping
// the resulting index; both conventions are in circulation and the code
// must stay consistent with one.
func TestInvertEquivalentToIndexFlip(t *testing.T) {
	t.Parallel()

	for _, bitDepth := range []int{1, 2} {
		levels, _ := Levels(bitDepth)
		n := uint8(len(levels) - 1)
		for v := 0; v < 256; v++ {
			img := uniformGray(1, 1, uint8(v))
			plain, err := Quantize(img, QuantizeOptions{BitDepth: bitDepth})
			if err != nil {
				t.Fatal(err)
			}
			inverted, err := Quantize(img, QuantizeOptions{BitDepth: bitDepth, Invert: true})
			if err != nil {
				t.Fatal(err)
			}
			if inverted[0] != n-plain[0] {
				t.Fatalf("bitDepth=%d v=%d: invert index %d, plain index %d", bitDepth, v, inverted[0], plain[0])
			}
		}
	}
}

// Error diffusion over a large uniform mid-gray field must conserve the
// total: the mean reconstructed level converges on the input value.
func TestFloydSteinbergConservesError(t *testing.T) {
	t.Parallel()

	const size = 256
	img := uniformGray(size, size, 128)
	indices, err := Quantize(img, QuantizeOptions{BitDepth: 1, Dither: true, Kernel: models.KernelFloydSteinberg})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}

	levels, _ := Levels(1)
	var sum int64
	for _, idx := range indices {
		sum += int64(levels[idx])
	}
	mean := float64(sum) / float64(size*size)
	if mean < 124 || mean > 133 {
		t.Fatalf("mean reconstructed level = %.2f, want ~128 (error not conserved)", mean)
	}
}

func TestFloydSteinberg2BitConservesError(t *testing.T) {
	t.Parallel()

	const size = 256
	img := uniformGray(size, size, 200)
	indices, err := Quantize(img, QuantizeOptions{BitDepth: 2, Dither: true, Kernel: models.KernelFloydSteinberg})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}

	levels, _ := Levels(2)
	var sum int64
	for _, idx := range indices {
		sum += int64(levels[idx])
	}
	mean := float64(sum) / float64(size*size)
	if mean < 195 || mean > 205 {
		t.Fatalf("mean reconstructed level = %.2f, want ~200", mean)
	}
}

// Atkinson deliberately sheds a quarter of the error, so the mean drifts
// toward the nearest level; it must still land in a sane band and clamp
// correctly.
func TestAtkinsonStaysInRange(t *testing.T) {
	t.Parallel()

	const size = 128
	img := uniformGray(size, size, 128)
	indices, err := Quantize(img, QuantizeOptions{BitDepth: 1, Dither: true, Kernel: models.KernelAtkinson})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	for i, idx := range indices {
		if idx > 1 {
			t.Fatalf("index %d at pixel %d outside 1-bit range", idx, i)
		}
	}
	levels, _ := Levels(1)
	var sum int64
	for _, idx := range indices {
		sum += int64(levels[idx])
	}
	mean := float64(sum) / float64(size*size)
	if mean < 90 || mean > 166 {
		t.Fatalf("mean = %.2f, far outside plausible Atkinson band", mean)
	}
}

func TestQuantizeGradientMonotonic(t *testing.T) {
	t.Parallel()

	// A left-to-right ramp thresholded at 2-bit must yield monotonically
	// non-decreasing indices.
	img := image.NewGray(image.Rect(0, 0, 256, 1))
	for x := 0; x < 256; x++ {
		img.Pix[x] = uint8(x)
	}
	indices, err := Quantize(img, QuantizeOptions{BitDepth: 2})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	for x := 1; x < 256; x++ {
		if indices[x] < indices[x-1] {
			t.Fatalf("indices not monotonic at x=%d: %d < %d", x, indices[x], indices[x-1])
		}
	}
	if indices[0] != 0 || indices[255] != 3 {
		t.Fatalf("ramp endpoints = %d..%d, want 0..3", indices[0], indices[255])
	}
}

func TestQuantizeRejectsEmptyRaster(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 0, 0))
	if _, err := Quantize(img, QuantizeOptions{BitDepth: 1}); err == nil {
		t.Fatal("expected empty raster rejection")
	}
}
