package render

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gisete/carbon-sub000/internal/capture"
	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/telemetry"
)

// fakeProducer counts captures and can be made slow or failing.
type fakeProducer struct {
	captures atomic.Int64
	delay    time.Duration
	fail     error
	release  chan struct{}
}

func (f *fakeProducer) Capture(ctx context.Context, req capture.Request) (image.Image, error) {
	f.captures.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, capture.ErrTimeout
		}
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return image.NewGray(image.Rect(0, 0, req.Width, req.Height)), nil
}

func testItem() models.PlaylistItem {
	return models.PlaylistItem{ID: "item-1", ContentType: models.ContentWeather}
}

func testSettings() models.Settings {
	s := models.DefaultSettings()
	s.PanelWidth, s.PanelHeight = 16, 8
	s.Dither = false
	return s
}

func TestGenerateProducesDecodablePNG(t *testing.T) {
	t.Parallel()

	g := NewGenerator(&fakeProducer{}, telemetry.NewMetrics(), time.Minute, zerolog.Nop())
	frame, err := g.Generate(context.Background(), testItem(), testSettings())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if frame.Width != 16 || frame.Height != 8 || frame.BitDepth != 1 {
		t.Fatalf("frame meta = %+v", frame)
	}
	if len(frame.PNG) == 0 {
		t.Fatal("empty png")
	}
}

func TestGenerateServesFreshCache(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	g := NewGenerator(producer, telemetry.NewMetrics(), time.Minute, zerolog.Nop())

	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	if got := producer.captures.Load(); got != 1 {
		t.Fatalf("captures = %d, want 1 (second call should hit cache)", got)
	}
}

func TestGenerateRegeneratesStaleCache(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	g := NewGenerator(producer, telemetry.NewMetrics(), time.Minute, zerolog.Nop())

	current := time.Unix(1000, 0)
	g.now = func() time.Time { return current }

	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	if got := producer.captures.Load(); got != 2 {
		t.Fatalf("captures = %d, want 2 (stale frame must regenerate)", got)
	}
}

func TestGenerateSingleFlight(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{release: make(chan struct{})}
	g := NewGenerator(producer, telemetry.NewMetrics(), time.Minute, zerolog.Nop())

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Generate(context.Background(), testItem(), testSettings())
		}(i)
	}

	// Let the callers pile onto the guard, then release the capture.
	time.Sleep(50 * time.Millisecond)
	close(producer.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := producer.captures.Load(); got != 1 {
		t.Fatalf("captures = %d, want 1 (concurrent callers must share one generation)", got)
	}
}

func TestGenerateFailureLeavesNoCacheAndReleasesGuard(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{fail: errors.New("navigation timeout")}
	g := NewGenerator(producer, telemetry.NewMetrics(), time.Minute, zerolog.Nop())

	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err == nil {
		t.Fatal("expected capture failure to propagate")
	}

	// The guard released and no stale frame was published: a recovered
	// producer serves a fresh generation.
	producer.fail = nil
	frame, err := g.Generate(context.Background(), testItem(), testSettings())
	if err != nil {
		t.Fatalf("generate after recovery: %v", err)
	}
	if frame == nil || len(frame.PNG) == 0 {
		t.Fatal("no frame after recovery")
	}
	if got := producer.captures.Load(); got != 2 {
		t.Fatalf("captures = %d, want 2", got)
	}
}

func TestGenerateHonorsItemBitDepthOverride(t *testing.T) {
	t.Parallel()

	g := NewGenerator(&fakeProducer{}, telemetry.NewMetrics(), time.Minute, zerolog.Nop())
	item := testItem()
	item.Config = map[string]any{"bitDepth": float64(2)}

	frame, err := g.Generate(context.Background(), item, testSettings())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if frame.BitDepth != 2 {
		t.Fatalf("bit depth = %d, want override 2", frame.BitDepth)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	g := NewGenerator(producer, telemetry.NewMetrics(), time.Minute, zerolog.Nop())

	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	g.Invalidate()
	if _, err := g.Generate(context.Background(), testItem(), testSettings()); err != nil {
		t.Fatal(err)
	}
	if got := producer.captures.Load(); got != 2 {
		t.Fatalf("captures = %d, want 2 after invalidate", got)
	}
}
