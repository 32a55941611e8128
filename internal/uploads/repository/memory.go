package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cityworks/project-registry/internal/uploads/domain"
)

type memoryEntry struct {
	session domain.Session
	chunks  map[int]struct{}
	claimed bool
}

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*memoryEntry)}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.UploadID] = &memoryEntry{session: *s, chunks: make(map[int]struct{})}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, uploadID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[uploadID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return e.snapshot(), nil
}

func (r *MemoryRepository) AddChunk(_ context.Context, uploadID string, index int) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[uploadID]
	if !ok {
		return false, 0, domain.ErrSessionNotFound
	}
	if _, dup := e.chunks[index]; dup {
		return false, len(e.chunks), nil
	}
	e.chunks[index] = struct{}{}
	return true, len(e.chunks), nil
}

func (r *MemoryRepository) Claim(_ context.Context, uploadID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[uploadID]
	if !ok || e.claimed {
		return false, nil
	}
	e.claimed = true
	return true, nil
}

func (r *MemoryRepository) Release(_ context.Context, uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[uploadID]; ok {
		e.claimed = false
	}
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, uploadID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[uploadID]
	delete(r.sessions, uploadID)
	return ok, nil
}

func (r *MemoryRepository) ListExpired(_ context.Context, cutoff time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Session
	for _, e := range r.sessions {
		if e.session.CreatedAt.Before(cutoff) {
			out = append(out, e.snapshot())
		}
	}
	return out, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), nil
}

func (e *memoryEntry) snapshot() *domain.Session {
	s := e.session
	s.UploadedChunks = make([]int, 0, len(e.chunks))
	for i := range e.chunks {
		s.UploadedChunks = append(s.UploadedChunks, i)
	}
	sort.Ints(s.UploadedChunks)
	return &s
}
