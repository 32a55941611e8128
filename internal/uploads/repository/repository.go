package repository

import (
	"context"
	"time"

	"github.com/cityworks/project-registry/internal/uploads/domain"
)

// SessionRepository stores upload sessions. Chunk indices form a set per
// session; adding the same index twice is a no-op.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	// Get returns domain.ErrSessionNotFound for an unknown id.
	Get(ctx context.Context, uploadID string) (*domain.Session, error)
	// AddChunk reports whether index was new and the resulting chunk count.
	AddChunk(ctx context.Context, uploadID string, index int) (added bool, count int, err error)
	// Claim grants one caller exclusive merge rights; false means someone else holds them.
	Claim(ctx context.Context, uploadID string) (bool, error)
	Release(ctx context.Context, uploadID string) error
	// Delete reports whether the session existed.
	Delete(ctx context.Context, uploadID string) (bool, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]*domain.Session, error)
	Count(ctx context.Context) (int, error)
}
