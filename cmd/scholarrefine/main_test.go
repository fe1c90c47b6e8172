package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
)

func runRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRefine_RequiresPDF(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runRoot(t, "refine", "--pdf", notes, "Cats are mammals.")
	if err == nil || !strings.Contains(err.Error(), "at least one PDF") {
		t.Fatalf("expected missing PDF error, got %v", err)
	}
	if !strings.Contains(stderr, "skipping notes.txt") {
		t.Errorf("rejected file not reported: %q", stderr)
	}
}

func TestRefine_RequiresAPIKey(t *testing.T) {
	for _, k := range []string{"API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "SCHOLARREFINE_API_KEY"} {
		t.Setenv(k, "")
	}
	pdf := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := runRoot(t, "refine", "--pdf", pdf, "Cats are mammals.")
	if err == nil || !strings.Contains(err.Error(), "no API key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestRefine_BlankSentence(t *testing.T) {
	_, _, err := runRoot(t, "refine", "   ")
	if err == nil || !strings.Contains(err.Error(), "blank") {
		t.Fatalf("expected blank sentence error, got %v", err)
	}
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	_, _, err := runRoot(t, "serve", "--max-upload-mb", "0")
	if err == nil || !strings.Contains(err.Error(), "max_upload_mb") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	res := ai.RefinementResult{Segments: []ai.Segment{
		{Text: "Cats ", Type: ai.SegmentOriginal},
		{Text: "are obligate carnivores", Type: ai.SegmentSource, OriginalSource: "obligate carnivores"},
		{Text: ".", Type: ai.SegmentOriginal},
	}}
	var buf bytes.Buffer
	if err := writeJSON(&buf, "Cats eat meat.", res); err != nil {
		t.Fatal(err)
	}

	var got refineOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := refineOutput{
		Original: "Cats eat meat.",
		Refined:  "Cats are obligate carnivores.",
		Segments: res.Segments,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}
