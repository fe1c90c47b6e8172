package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/intake"
)

type stubRefiner struct {
	release chan struct{}
	started chan context.Context
	res     ai.RefinementResult
	err     error
}

func newStub(res ai.RefinementResult, err error) *stubRefiner {
	return &stubRefiner{release: make(chan struct{}), started: make(chan context.Context, 1), res: res, err: err}
}

func (r *stubRefiner) Refine(ctx context.Context, docs []intake.Document, sentence, instruction string) (ai.RefinementResult, error) {
	r.started <- ctx
	select {
	case <-r.release:
	case <-ctx.Done():
		return ai.RefinementResult{}, ctx.Err()
	}
	return r.res, r.err
}

var pdf = intake.Document{Name: "paper.pdf", MediaType: intake.PDFMediaType}

func newTestSession(t *testing.T) (*Store, *Session) {
	t.Helper()
	st := NewStore(Options{Dir: t.TempDir()})
	t.Cleanup(st.Close)
	return st, st.Create()
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestSession_BeginPreconditions(t *testing.T) {
	_, s := newTestSession(t)

	if _, err := s.Begin("Cats are mammals.", ""); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
	s.AddFiles(pdf)
	if _, err := s.Begin("   \n", ""); !errors.Is(err, ErrBlankSentence) {
		t.Errorf("expected ErrBlankSentence, got %v", err)
	}
	if got := s.Snapshot().State; got != StateIdle {
		t.Errorf("failed Begin must not change state, got %s", got)
	}
}

func TestSession_SuccessFlow(t *testing.T) {
	_, s := newTestSession(t)
	s.AddFiles(pdf)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	want := ai.RefinementResult{Segments: []ai.Segment{{Text: "Cats are mammals.", Type: ai.SegmentOriginal}}}
	r := newStub(want, nil)

	job, err := s.Begin("Cats are mammals.", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if e := waitEvent(t, events); e.State != StateRequesting {
		t.Errorf("expected requesting event, got %s", e.State)
	}

	go job.Run(r)
	<-r.started
	if _, err := s.Begin("again", ""); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy while requesting, got %v", err)
	}
	close(r.release)

	if err := s.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, events); e.State != StateSuccess {
		t.Errorf("expected success event, got %s", e.State)
	}
	snap := s.Snapshot()
	if snap.State != StateSuccess || snap.Result == nil || len(snap.Result.Segments) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.LastInput != "Cats are mammals." {
		t.Errorf("LastInput = %q", snap.LastInput)
	}
}

func TestSession_ErrorKeepsNoResult(t *testing.T) {
	_, s := newTestSession(t)
	s.AddFiles(pdf)

	ok := newStub(ai.RefinementResult{Segments: []ai.Segment{{Text: "A.", Type: ai.SegmentOriginal}}}, nil)
	close(ok.release)
	job, _ := s.Begin("A.", "")
	job.Run(ok)

	// A new request clears the previous result as soon as it starts.
	job, err := s.Begin("B.", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if snap := s.Snapshot(); snap.Result != nil || snap.State != StateRequesting {
		t.Errorf("entering requesting must clear the result, got %+v", snap)
	}

	bad := newStub(ai.RefinementResult{}, &ai.Error{Kind: ai.KindParse, Message: "Failed to parse Gemini response"})
	close(bad.release)
	if err := job.Run(bad); ai.KindOf(err) != ai.KindParse {
		t.Errorf("Run should return the refiner error, got %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateError || snap.Error != "Failed to parse Gemini response" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Result != nil {
		t.Error("error state must not carry a result")
	}
	if snap.LastInput != "A." {
		t.Errorf("LastInput should still be the last successful draft, got %q", snap.LastInput)
	}

	if _, err := s.Begin("C.", ""); err != nil {
		t.Errorf("error state must allow a new request, got %v", err)
	}
	if snap := s.Snapshot(); snap.Error != "" {
		t.Errorf("entering requesting must clear the error, got %q", snap.Error)
	}
}

func TestSession_ResetCancelsInFlight(t *testing.T) {
	_, s := newTestSession(t)
	s.AddFiles(pdf)
	r := newStub(ai.RefinementResult{}, nil)

	job, err := s.Begin("A.", "")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- job.Run(r) }()
	ctx := <-r.started

	s.Reset()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not cancel the request context")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateIdle || snap.Error != "" || len(snap.Documents) != 0 {
		t.Errorf("stale outcome leaked into reset session: %+v", snap)
	}
}

func TestSession_RequestTimeout(t *testing.T) {
	st := NewStore(Options{Dir: t.TempDir(), RequestTimeout: 20 * time.Millisecond})
	defer st.Close()
	s := st.Create()
	s.AddFiles(pdf)

	job, _ := s.Begin("A.", "")
	job.Run(newStub(ai.RefinementResult{}, nil))

	snap := s.Snapshot()
	if snap.State != StateError || snap.Error == "" {
		t.Errorf("expected timeout error, got %+v", snap)
	}
}

func TestSession_RemoveFile(t *testing.T) {
	_, s := newTestSession(t)
	s.AddFiles(
		intake.Document{Name: "a.pdf", MediaType: intake.PDFMediaType},
		intake.Document{Name: "b.pdf", MediaType: intake.PDFMediaType},
	)
	if err := s.RemoveFile(0); err != nil {
		t.Fatal(err)
	}
	docs := s.Documents()
	if len(docs) != 1 || docs[0].Name != "b.pdf" {
		t.Errorf("unexpected documents %+v", docs)
	}
	if err := s.RemoveFile(3); !errors.Is(err, intake.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

type openingRefiner struct{}

func (openingRefiner) Refine(ctx context.Context, docs []intake.Document, sentence, instruction string) (ai.RefinementResult, error) {
	for _, d := range docs {
		f, err := d.Open()
		if err != nil {
			return ai.RefinementResult{}, err
		}
		f.Close()
	}
	return ai.RefinementResult{Segments: []ai.Segment{{Text: sentence, Type: ai.SegmentOriginal}}}, nil
}

func spool(t *testing.T, s *Session, name string) intake.Document {
	t.Helper()
	if err := os.MkdirAll(s.Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(s.Dir(), name)
	if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err := intake.FromPath(p)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSession_RemoveFileDuringRequest(t *testing.T) {
	_, s := newTestSession(t)
	a, b := spool(t, s, "a.pdf"), spool(t, s, "b.pdf")
	s.AddFiles(a, b)

	job, err := s.Begin("Cats are mammals.", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.RemoveFile(0); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(a.Path()); err != nil {
		t.Fatalf("file removed while the request may still read it: %v", err)
	}

	if err := job.Run(openingRefiner{}); err != nil {
		t.Fatalf("request should keep the documents it started with: %v", err)
	}
	if snap := s.Snapshot(); snap.State != StateSuccess {
		t.Errorf("state = %s, error = %q", snap.State, snap.Error)
	}
	if _, err := os.Stat(a.Path()); !os.IsNotExist(err) {
		t.Errorf("removed file should be deleted once the request finished, stat err = %v", err)
	}
	if _, err := os.Stat(b.Path()); err != nil {
		t.Errorf("remaining file must be kept: %v", err)
	}
	if docs := s.Documents(); len(docs) != 1 || docs[0].Name != "b.pdf" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestSession_BusyKeepsDraft(t *testing.T) {
	_, s := newTestSession(t)
	s.AddFiles(pdf)
	if _, err := s.Begin("First.", "be brief"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Begin("Second.", "other"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Draft != "First." || snap.Instruction != "be brief" {
		t.Errorf("rejected Begin changed the draft: %q / %q", snap.Draft, snap.Instruction)
	}
}

func TestStore_SweepEvictsIdle(t *testing.T) {
	st := NewStore(Options{Dir: t.TempDir(), TTL: time.Hour})
	defer st.Close()

	idle := st.Create()
	os.MkdirAll(idle.Dir(), 0o700)
	busy := st.Create()
	busy.AddFiles(pdf)
	if _, err := busy.Begin("A.", ""); err != nil {
		t.Fatal(err)
	}

	if n := st.Sweep(time.Now()); n != 0 {
		t.Errorf("fresh sessions evicted: %d", n)
	}
	if n := st.Sweep(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, ok := st.Get(idle.ID()); ok {
		t.Error("idle session should be gone")
	}
	if _, err := os.Stat(idle.Dir()); !os.IsNotExist(err) {
		t.Errorf("idle session dir should be removed, err=%v", err)
	}
	if _, ok := st.Get(busy.ID()); !ok {
		t.Error("session with a request in flight must be kept")
	}
}

func TestStore_CloseDisconnectsSubscribers(t *testing.T) {
	st := NewStore(Options{Dir: t.TempDir()})
	s := st.Create()
	events, _ := s.Subscribe()

	st.Close()

	for range events {
	}
	if st.Len() != 0 {
		t.Errorf("expected empty store, got %d", st.Len())
	}
}
