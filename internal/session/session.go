// Package session holds the per-user state of the refinement page: the
// document list, the last draft, the last result and the request state
// machine idle → requesting → success | error.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/intake"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

var (
	ErrBusy          = errors.New("a refinement is already in progress")
	ErrNoDocuments   = errors.New("upload at least one PDF first")
	ErrBlankSentence = errors.New("enter a sentence to refine")
)

// Event is published to subscribers on every state transition.
type Event struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Snapshot is a consistent copy of a session for rendering.
type Snapshot struct {
	ID          string               `json:"id"`
	State       State                `json:"state"`
	Error       string               `json:"error,omitempty"`
	Documents   []intake.Document    `json:"documents"`
	Draft       string               `json:"draft"`
	Instruction string               `json:"instruction"`
	LastInput   string               `json:"lastInput,omitempty"`
	Result      *ai.RefinementResult `json:"result,omitempty"`
}

// Session is disposable: Close cancels any request in flight and deletes
// the spooled uploads.
type Session struct {
	id             string
	dir            string
	base           context.Context
	requestTimeout time.Duration

	mu          sync.Mutex
	files       intake.List
	draft       string
	instruction string
	lastInput   string
	state       State
	errMsg      string
	result      *ai.RefinementResult
	gen         uint64
	removed     []intake.Document
	cancel      context.CancelFunc
	done        chan struct{}
	lastUsed    time.Time
	subs        map[chan Event]struct{}
}

func newSession(base context.Context, id, dir string, requestTimeout time.Duration) *Session {
	return &Session{
		id:             id,
		dir:            dir,
		base:           base,
		requestTimeout: requestTimeout,
		state:          StateIdle,
		lastUsed:       time.Now(),
		subs:           make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Dir is where this session spools its uploads.
func (s *Session) Dir() string { return s.dir }

func (s *Session) AddFiles(docs ...intake.Document) (accepted []intake.Document, rejected []intake.Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.files.Add(docs...)
}

// RemoveFile deletes the document at position i and its spooled copy. While
// a request is in flight the copy is kept until that request finishes.
func (s *Session) RemoveFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	d, err := s.files.Remove(i)
	if err != nil {
		return err
	}
	if s.state == StateRequesting {
		s.removed = append(s.removed, d)
		return nil
	}
	intake.Discard(s.dir, []intake.Document{d})
	return nil
}

func (s *Session) Documents() []intake.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files.Documents()
}

// SetDraft records the form inputs without starting a request.
func (s *Session) SetDraft(sentence, instruction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	s.draft, s.instruction = sentence, instruction
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		Error:       s.errMsg,
		Documents:   s.files.Documents(),
		Draft:       s.draft,
		Instruction: s.instruction,
		LastInput:   s.lastInput,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Job is one refinement started by Begin.
type Job struct {
	s           *Session
	gen         uint64
	ctx         context.Context
	docs        []intake.Document
	sentence    string
	instruction string
}

// Begin moves the session into requesting. The checks mirror a disabled
// trigger: no documents, a blank sentence or a request already in flight.
// Entering requesting clears the previous result and error.
func (s *Session) Begin(sentence, instruction string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.state == StateRequesting {
		return nil, ErrBusy
	}
	if s.files.Len() == 0 {
		return nil, ErrNoDocuments
	}
	if strings.TrimSpace(sentence) == "" {
		return nil, ErrBlankSentence
	}
	s.draft, s.instruction = sentence, instruction

	var ctx context.Context
	var cancel context.CancelFunc
	if s.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.base, s.requestTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.base)
	}

	s.gen++
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRequesting
	s.errMsg = ""
	s.result = nil
	s.publish(Event{State: StateRequesting})

	return &Job{
		s:           s,
		gen:         s.gen,
		ctx:         ctx,
		docs:        s.files.Documents(),
		sentence:    sentence,
		instruction: instruction,
	}, nil
}

// Run performs the request and records its outcome. The outcome is dropped
// if the session was reset in the meantime.
func (j *Job) Run(r ai.Refiner) error {
	res, err := r.Refine(j.ctx, j.docs, j.sentence, j.instruction)
	j.s.finish(j, res, err)
	return err
}

func (j *Job) Context() context.Context { return j.ctx }

func (s *Session) finish(j *Job, res ai.RefinementResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != j.gen || s.state != StateRequesting {
		return
	}
	s.lastUsed = time.Now()
	s.cancel()
	s.cancel = nil
	intake.Discard(s.dir, s.removed)
	s.removed = nil
	if err != nil {
		s.state = StateError
		s.errMsg = ai.UserMessage(err)
		s.publish(Event{State: StateError, Message: s.errMsg})
	} else {
		s.state = StateSuccess
		s.result = &res
		s.lastInput = j.sentence
		s.publish(Event{State: StateSuccess})
	}
	close(s.done)
}

// Wait blocks until no request is in flight or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	requesting := s.state == StateRequesting
	s.mu.Unlock()
	if !requesting || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset cancels any request in flight, discards the uploads and returns
// the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.publish(Event{State: StateIdle})
}

func (s *Session) resetLocked() {
	s.lastUsed = time.Now()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.state == StateRequesting && s.done != nil {
		close(s.done)
	}
	s.done = nil
	intake.Discard(s.dir, s.files.Clear())
	intake.Discard(s.dir, s.removed)
	s.removed = nil
	s.draft, s.instruction, s.lastInput = "", "", ""
	s.state = StateIdle
	s.errMsg = ""
	s.result = nil
}

// Close resets the session and disconnects every subscriber.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

// Subscribe returns a channel of state events. Slow subscribers miss events
// rather than block the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) publish(e Event) {
	e.At = time.Now()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, s.state != StateRequesting
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}
