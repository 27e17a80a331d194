package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRun_IsolatesFailures(t *testing.T) {
	files := []string{"a.xmf", "b.xmf", "c.xmf"}
	errBad := errors.New("bad magic")

	for _, workers := range []int{0, 1, 3} {
		results := Run(context.Background(), files, workers, func(_ context.Context, path string) error {
			if path == "b.xmf" {
				return errBad
			}
			return nil
		}, nil)

		if len(results) != len(files) {
			t.Fatalf("workers=%d: got %d results", workers, len(results))
		}
		for i, r := range results {
			if r.Path != files[i] {
				t.Errorf("workers=%d: result %d path = %s, want %s", workers, i, r.Path, files[i])
			}
		}
		if !results[0].OK() || results[1].OK() || !results[2].OK() {
			t.Errorf("workers=%d: unexpected outcomes %+v", workers, results)
		}
		if !errors.Is(results[1].Err, errBad) {
			t.Errorf("workers=%d: err = %v", workers, results[1].Err)
		}

		s := Summarize(results)
		if s.Total != 3 || s.Succeeded != 2 || len(s.Failed) != 1 || s.Failed[0] != "b.xmf" {
			t.Errorf("workers=%d: summary = %+v", workers, s)
		}
		if !strings.Contains(s.String(), "b.xmf") {
			t.Errorf("summary %q does not name the failed file", s)
		}
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	results := Run(context.Background(), []string{"x", "y"}, 1, func(_ context.Context, path string) error {
		if path == "x" {
			panic("index out of range")
		}
		return nil
	}, nil)
	if results[0].OK() || !strings.Contains(results[0].Err.Error(), "panic") {
		t.Errorf("panic not captured: %+v", results[0])
	}
	if !results[1].OK() {
		t.Errorf("second file affected by first: %+v", results[1])
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Run(ctx, []string{"a", "b"}, 2, func(context.Context, string) error {
		calls.Add(1)
		return nil
	}, nil)
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancel", calls.Load())
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: err = %v", r.Path, r.Err)
		}
	}
}

func TestSummary_String(t *testing.T) {
	if got := (Summary{Total: 2, Succeeded: 2}).String(); got != "2/2 converted" {
		t.Errorf("got %q", got)
	}
	got := Summary{Total: 3, Succeeded: 1, Failed: []string{"a", "b"}}.String()
	if got != "1/3 converted, 2 failed: a, b" {
		t.Errorf("got %q", got)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		"assets/units/size_s/ship_arg_s_fighter_01_data/ship_arg_s_fighter_01_part_main-lod0.xmf",
		"assets/units/size_s/ship_arg_s_fighter_01_data/ship_arg_s_fighter_01_cockpit-lod0.xmf",
		"assets/units/size_m/ship_tel_m_trans_01_data/ship_tel_m_trans_01_anim_main-lod0.xmf",
		"assets/units/size_m/ship_tel_m_trans_01_data/ship_tel_m_trans_01_part_main-lod1.xmf",
		"assets/units/size_m/station_data/station_part_main-lod0.xmf",
	}
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := Discover(root, "assets/units/*/ship_*_data/*_main-lod0.xmf", []string{"part_main", "anim_main"})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{
		filepath.Join(root, filepath.FromSlash(paths[2])),
		filepath.Join(root, filepath.FromSlash(paths[0])),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d = %s, want %s", i, files[i], want[i])
		}
	}

	all, err := Discover(root, "assets/units/*/*/*.xmf", nil)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(all) != len(paths) {
		t.Errorf("got %d files without filters, want %d", len(all), len(paths))
	}

	if _, err := Discover(root, "[", nil); err == nil {
		t.Error("expected error for malformed pattern")
	}
}
