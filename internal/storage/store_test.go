package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fixture struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

func newFixtureStore(t *testing.T) (*Store[fixture], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	s := NewStore(path, func() fixture { return fixture{Name: "default"} }, zerolog.Nop())
	return s, path
}

func TestLoadMissingFileSynthesizesDefaults(t *testing.T) {
	t.Parallel()

	s, path := newFixtureStore(t)
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "default" {
		t.Fatalf("got %+v, want defaults", got)
	}
	// First run persists the defaults.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newFixtureStore(t)
	if err := s.Save(fixture{Count: 42, Name: "answer"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Count != 42 || got.Name != "answer" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadCorruptFileRecoversToDefaults(t *testing.T) {
	t.Parallel()

	s, path := newFixtureStore(t)
	if err := os.WriteFile(path, []byte("{\"count\": 1, truncated"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "default" {
		t.Fatalf("corrupt file did not degrade to defaults: %+v", got)
	}
	// The corrupt bytes are preserved for postmortem.
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt file was not set aside: %v", err)
	}
}

func TestSaveIsAtomicNoPartialFileVisible(t *testing.T) {
	t.Parallel()

	s, path := newFixtureStore(t)
	if err := s.Save(fixture{Count: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Hammer writes while a reader re-parses the file; every observed
	// state must be valid JSON.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 2; i < 50; i++ {
			if err := s.Save(fixture{Count: i}); err != nil {
				t.Errorf("save: %v", err)
				return
			}
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f fixture
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("observed partial write: %v (%q)", err, raw)
		}
	}
}

func TestUpdateSerializesReadModifyWrite(t *testing.T) {
	t.Parallel()

	s, _ := newFixtureStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(func(f *fixture) error {
				f.Count++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Count != 20 {
		t.Fatalf("count = %d, want 20 (lost update)", got.Count)
	}
}

func TestUpdateErrorDoesNotPersist(t *testing.T) {
	t.Parallel()

	s, _ := newFixtureStore(t)
	if err := s.Save(fixture{Count: 7}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := s.Update(func(f *fixture) error {
		f.Count = 999
		return os.ErrPermission
	})
	if err == nil {
		t.Fatal("expected update error to propagate")
	}
	got, _ := s.Load()
	if got.Count != 7 {
		t.Fatalf("failed update leaked a write: %+v", got)
	}
}
