package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewBrowserProducerDefaultsTimeout(t *testing.T) {
	t.Parallel()

	p := NewBrowserProducer(Config{RenderBaseURL: "http://127.0.0.1:8080"}, zerolog.Nop())
	if p.cfg.Timeout != 30*time.Second {
		t.Fatalf("default timeout = %v", p.cfg.Timeout)
	}
}

func TestTranslateMapsDeadline(t *testing.T) {
	t.Parallel()

	p := NewBrowserProducer(Config{Timeout: time.Second}, zerolog.Nop())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	<-ctx.Done()

	err := p.translate(errors.New("screenshot: connection reset"), ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	live := context.Background()
	plain := errors.New("navigation failed")
	if err := p.translate(plain, live); errors.Is(err, ErrTimeout) {
		t.Fatalf("live context must not map to timeout: %v", err)
	}
}

func TestCloseWithoutLaunchIsNoop(t *testing.T) {
	t.Parallel()

	p := NewBrowserProducer(Config{}, zerolog.Nop())
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
