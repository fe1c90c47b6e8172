package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	// Dir is the parent of each session's upload directory.
	Dir string
	// TTL evicts sessions idle for longer than this. Zero disables eviction.
	TTL time.Duration
	// RequestTimeout bounds each refinement. Zero means no local timeout.
	RequestTimeout time.Duration
}

// Store owns every live session. Closing it cancels all in-flight requests.
type Store struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session

	wg sync.WaitGroup
}

func NewStore(opts Options) *Store {
	if opts.Dir == "" {
		opts.Dir = filepath.Join(os.TempDir(), "scholarrefine")
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &Store{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
	if opts.TTL > 0 {
		st.wg.Add(1)
		go st.sweeper()
	}
	return st
}

func (st *Store) Create() *Session {
	id := uuid.NewString()
	s := newSession(st.ctx, id, filepath.Join(st.opts.Dir, id), st.opts.RequestTimeout)
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Close()
		os.RemoveAll(s.dir)
	}
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle since before now-TTL. Sessions with a request
// in flight are kept.
func (st *Store) Sweep(now time.Time) int {
	if st.opts.TTL <= 0 {
		return 0
	}
	var expired []string
	st.mu.RLock()
	for id, s := range st.sessions {
		last, idle := s.idleSince()
		if idle && now.Sub(last) > st.opts.TTL {
			expired = append(expired, id)
		}
	}
	st.mu.RUnlock()
	for _, id := range expired {
		st.Delete(id)
	}
	return len(expired)
}

func (st *Store) sweeper() {
	defer st.wg.Done()
	interval := st.opts.TTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-st.ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}

// Close cancels every request, deletes every session and stops the sweeper.
func (st *Store) Close() {
	st.cancel()
	st.wg.Wait()
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
		os.RemoveAll(s.dir)
	}
}
