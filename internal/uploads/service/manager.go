package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/cityworks/project-registry/internal/logging"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	"github.com/cityworks/project-registry/internal/uploads/domain"
	"github.com/cityworks/project-registry/internal/uploads/repository"
	"github.com/cityworks/project-registry/internal/uploads/storage"
)

var hashPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ValidHash reports whether s is a 64 character hex digest.
func ValidHash(s string) bool {
	return hashPattern.MatchString(s)
}

type Config struct {
	MaxFileSize        int64
	AcceptedExtensions []string
	DefaultChunkSize   int64
	ChunkConcurrency   int
	SessionTTL         time.Duration
}

// Manager runs the chunked upload protocol: init, chunk, merge, cancel, sweep.
type Manager struct {
	repo  repository.SessionRepository
	files *storage.FileStore
	cfg   Config
	now   func() time.Time
}

func NewManager(repo repository.SessionRepository, files *storage.FileStore, cfg Config) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	cfg.AcceptedExtensions = spreadsheet.NormalizeExtensions(cfg.AcceptedExtensions)
	return &Manager{repo: repo, files: files, cfg: cfg, now: time.Now}
}

func (m *Manager) Config() Config { return m.cfg }

// Initialize opens a session, or short-circuits when an artifact with the
// same content hash is already stored.
func (m *Manager) Initialize(ctx context.Context, req domain.InitRequest) (*domain.InitResult, error) {
	if err := m.validateInit(req); err != nil {
		return nil, err
	}
	logger := logging.New(ctx)
	hash := strings.ToLower(req.FileHash)

	if path, ok, err := m.files.FindArtifact(hash); err != nil {
		return nil, fmt.Errorf("lookup artifact: %w", err)
	} else if ok {
		incr(&globalMetrics.DedupHits)
		logger.Infof("upload_init", "file=%q hash=%s dedup=true path=%s", req.FileName, hash, path)
		return &domain.InitResult{SkipUpload: true, FileHash: hash, FilePath: path}, nil
	}

	id := uuid.NewString()
	dir, err := m.files.Provision(id)
	if err != nil {
		return nil, err
	}

	s := &domain.Session{
		UploadID:    id,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileHash:    hash,
		ChunkSize:   req.ChunkSize,
		TotalChunks: req.TotalChunks,
		CreatedAt:   m.now().UTC(),
		StagingDir:  dir,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		m.files.Release(dir)
		return nil, fmt.Errorf("create session: %w", err)
	}

	incr(&globalMetrics.SessionsCreated)
	logger.Infof("upload_init", "upload_id=%s file=%q size=%s chunks=%d", id, req.FileName, humanize.IBytes(uint64(req.FileSize)), req.TotalChunks)

	return &domain.InitResult{
		UploadID:         id,
		FileHash:         hash,
		ChunkSize:        req.ChunkSize,
		TotalChunks:      req.TotalChunks,
		ChunkConcurrency: m.cfg.ChunkConcurrency,
	}, nil
}

func (m *Manager) validateInit(req domain.InitRequest) error {
	switch {
	case strings.TrimSpace(req.FileName) == "":
		return fmt.Errorf("%w: file_name is required", domain.ErrInvalidRequest)
	case req.FileSize <= 0:
		return fmt.Errorf("%w: file_size must be positive", domain.ErrInvalidRequest)
	case req.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidRequest)
	case req.TotalChunks <= 0:
		return fmt.Errorf("%w: total_chunks must be positive", domain.ErrInvalidRequest)
	case !ValidHash(req.FileHash):
		return fmt.Errorf("%w: file_hash must be 64 hex characters", domain.ErrInvalidRequest)
	}

	if want := (req.FileSize + req.ChunkSize - 1) / req.ChunkSize; int64(req.TotalChunks) != want {
		return fmt.Errorf("%w: total_chunks is %d but file_size/chunk_size needs %d", domain.ErrInvalidRequest, req.TotalChunks, want)
	}

	if len(m.cfg.AcceptedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(req.FileName))
		if !slices.Contains(m.cfg.AcceptedExtensions, ext) {
			return fmt.Errorf("%w: file format not supported, accepted formats: %s", domain.ErrInvalidRequest, strings.Join(m.cfg.AcceptedExtensions, ", "))
		}
	}

	if m.cfg.MaxFileSize > 0 && req.FileSize > m.cfg.MaxFileSize {
		return fmt.Errorf("%w (max %s)", domain.ErrUploadTooLarge, humanize.IBytes(uint64(m.cfg.MaxFileSize)))
	}
	return nil
}

func (m *Manager) session(ctx context.Context, uploadID string) (*domain.Session, error) {
	// ids are uuids; anything else cannot name a session and must not reach the filesystem
	if _, err := uuid.Parse(uploadID); err != nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.repo.Get(ctx, uploadID)
}

// UploadedChunks lets a client resume by listing the chunks already held.
func (m *Manager) UploadedChunks(ctx context.Context, uploadID string) (*domain.ChunkStatus, error) {
	s, err := m.session(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &domain.ChunkStatus{
		UploadID:       s.UploadID,
		UploadedChunks: s.UploadedChunks,
		TotalChunks:    s.TotalChunks,
	}, nil
}

// AcceptChunk stores chunk index of uploadID. A chunk that is already present
// is acknowledged without reading body. claimedSize < 0 skips the size check.
func (m *Manager) AcceptChunk(ctx context.Context, uploadID string, index int, claimedSize int64, body io.Reader) (*domain.ChunkResult, error) {
	s, err := m.session(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= s.TotalChunks {
		return nil, fmt.Errorf("%w: chunk index %d out of range [0, %d)", domain.ErrInvalidRequest, index, s.TotalChunks)
	}

	res := &domain.ChunkResult{UploadID: uploadID, ChunkIndex: index, TotalChunks: s.TotalChunks}

	if s.HasChunk(index) {
		incr(&globalMetrics.ChunksDuplicate)
		res.Duplicate = true
		res.UploadedCount = len(s.UploadedChunks)
		res.Progress = domain.Progress(res.UploadedCount, s.TotalChunks)
		return res, nil
	}

	logger := logging.New(ctx)

	limit := s.FileSize
	if m.cfg.MaxFileSize > limit {
		limit = m.cfg.MaxFileSize
	}
	n, err := m.files.WriteChunk(s.StagingDir, index, io.LimitReader(body, limit+1))
	if err != nil {
		// staging may have been released by a concurrent cancel or merge
		if _, gerr := m.repo.Get(ctx, uploadID); errors.Is(gerr, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	res.BytesWritten = n

	if claimedSize >= 0 && n != claimedSize {
		incr(&globalMetrics.ChunkSizeWarnings)
		logger.Warnf("upload_chunk", "upload_id=%s chunk=%d claimed=%d received=%d", uploadID, index, claimedSize, n)
	}

	added, count, err := m.repo.AddChunk(ctx, uploadID, index)
	if err != nil {
		return nil, err
	}
	if added {
		incr(&globalMetrics.ChunksAccepted)
	} else {
		incr(&globalMetrics.ChunksDuplicate)
		res.Duplicate = true
	}

	res.UploadedCount = count
	res.Progress = domain.Progress(count, s.TotalChunks)
	return res, nil
}

// Merge concatenates a complete session into its artifact. Only one caller
// can merge a session; a racing second caller sees domain.ErrSessionNotFound.
func (m *Manager) Merge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error) {
	s, err := m.session(ctx, req.UploadID)
	if err != nil {
		return nil, err
	}
	if req.TotalChunks != 0 && req.TotalChunks != s.TotalChunks {
		return nil, fmt.Errorf("%w: total_chunks %d does not match session (%d)", domain.ErrInvalidRequest, req.TotalChunks, s.TotalChunks)
	}
	if len(s.UploadedChunks) < s.TotalChunks {
		return nil, incompleteError(len(s.UploadedChunks), s.TotalChunks)
	}

	claimed, err := m.repo.Claim(ctx, s.UploadID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrSessionNotFound
	}

	// re-read under the claim; the session may have been merged or cancelled meanwhile
	s, err = m.repo.Get(ctx, req.UploadID)
	if err != nil {
		m.repo.Release(ctx, req.UploadID)
		return nil, err
	}

	logger := logging.New(ctx)
	fileName := req.FileName
	if strings.TrimSpace(fileName) == "" {
		fileName = s.FileName
	}
	dst := m.files.ArtifactPath(s.FileHash, fileName)

	tmp, size, err := m.files.Concatenate(s.StagingDir, s.TotalChunks, dst)
	if err != nil {
		// chunks may already be consumed, so the session cannot be retried
		m.destroy(ctx, s)
		logger.Error("upload_merge", err)
		return nil, fmt.Errorf("merge chunks: %w", err)
	}

	if size != s.FileSize {
		m.files.Discard(tmp)
		m.destroy(ctx, s)
		incr(&globalMetrics.IntegrityFailures)
		logger.Errorf("upload_merge", "upload_id=%s size_mismatch declared=%d merged=%d", s.UploadID, s.FileSize, size)
		return nil, fmt.Errorf("%w: merged size %d does not match declared size %d", domain.ErrIntegrity, size, s.FileSize)
	}

	if err := m.files.Commit(tmp, dst); err != nil {
		m.destroy(ctx, s)
		return nil, err
	}
	m.destroy(ctx, s)

	incr(&globalMetrics.Merges)
	atomic.AddInt64(&globalMetrics.BytesMerged, size)
	logger.Infof("upload_merge", "upload_id=%s file=%q size=%s path=%s", s.UploadID, fileName, humanize.IBytes(uint64(size)), dst)

	return &domain.MergeResult{
		UploadID: s.UploadID,
		FileHash: s.FileHash,
		FileName: fileName,
		FilePath: dst,
		FileSize: size,
		State:    domain.StateMerged,
	}, nil
}

func incompleteError(have, total int) error {
	return fmt.Errorf("%w: %d/%d", domain.ErrChunksIncomplete, have, total)
}

// Cancel drops a session and its staging. Unknown sessions are not an error.
func (m *Manager) Cancel(ctx context.Context, uploadID string) error {
	s, err := m.session(ctx, uploadID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	m.destroy(ctx, s)
	incr(&globalMetrics.SessionsCancelled)
	logging.New(ctx).Infof("upload_cancel", "upload_id=%s", uploadID)
	return nil
}

func (m *Manager) Status(ctx context.Context, uploadID string) (*domain.Status, error) {
	s, err := m.session(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	count := len(s.UploadedChunks)
	return &domain.Status{
		UploadID:      s.UploadID,
		FileName:      s.FileName,
		FileSize:      s.FileSize,
		TotalChunks:   s.TotalChunks,
		UploadedCount: count,
		Progress:      domain.Progress(count, s.TotalChunks),
		State:         s.State(),
		CreatedAt:     s.CreatedAt,
	}, nil
}

// Sweep removes every session older than the session TTL, complete or not.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.cfg.SessionTTL)
	expired, err := m.repo.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, s := range expired {
		if s.StagingDir == "" {
			s.StagingDir = m.files.StagingDir(s.UploadID)
		}
		m.destroy(ctx, s)
		removed++
	}

	if removed > 0 {
		atomic.AddInt64(&globalMetrics.SessionsSwept, int64(removed))
	}
	return removed, nil
}

func (m *Manager) ActiveSessions(ctx context.Context) (int, error) {
	return m.repo.Count(ctx)
}

// ArtifactPath returns the stored artifact for a content hash.
func (m *Manager) ArtifactPath(hash string) (string, error) {
	if !ValidHash(hash) {
		return "", fmt.Errorf("%w: file_hash must be 64 hex characters", domain.ErrInvalidRequest)
	}
	path, ok, err := m.files.FindArtifact(hash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrArtifactNotFound
	}
	return path, nil
}

// destroy releases staging before the session record so a crash in between
// leaves a record the sweeper can still find.
func (m *Manager) destroy(ctx context.Context, s *domain.Session) {
	logger := logging.New(ctx)
	if err := m.files.Release(s.StagingDir); err != nil {
		logger.Warnf("upload_release", "upload_id=%s error=%v", s.UploadID, err)
	}
	if _, err := m.repo.Delete(ctx, s.UploadID); err != nil {
		logger.Warnf("upload_release", "upload_id=%s error=%v", s.UploadID, err)
	}
}
