package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected blank command to be reported, got %#v", results[2])
	}
}

func TestHasASSFilter(t *testing.T) {
	listing := []byte(`Filters:
  T.. = Timeline support
 ... abench            A->A       Benchmark part of a filtergraph.
 ... ass               V->V       Render ASS subtitles onto input video using the libass library.
 ... subtitles         V->V       Render text subtitles onto input video using the libass library.
`)
	if !HasASSFilter(listing) {
		t.Fatal("expected ass filter to be detected")
	}
	if HasASSFilter([]byte(" ... assfake  V->V  nope\n ... bass  A->A  x\n")) {
		t.Fatal("expected partial names to be ignored")
	}
}

func TestCheckLibassWithStub(t *testing.T) {
	dir := t.TempDir()
	withASS := filepath.Join(dir, "ffmpeg-ass")
	body := "#!/bin/sh\necho ' ... ass               V->V       Render ASS subtitles'\n"
	if err := os.WriteFile(withASS, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	without := filepath.Join(dir, "ffmpeg-plain")
	if err := os.WriteFile(without, []byte("#!/bin/sh\necho ' ... scale  V->V  Scale'\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	if status := CheckLibass(context.Background(), withASS); !status.Available {
		t.Fatalf("expected libass available, got %#v", status)
	}
	status := CheckLibass(context.Background(), without)
	if status.Available || status.Detail == "" {
		t.Fatalf("expected libass missing, got %#v", status)
	}
	if status := CheckLibass(context.Background(), filepath.Join(dir, "absent")); status.Available {
		t.Fatal("expected missing binary to be unavailable")
	}
}
