package storage

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const partialSuffix = ".partial"

// FileStore holds per-session chunk staging under tempDir and finished
// artifacts under artifactDir, named by content hash.
type FileStore struct {
	tempDir     string
	artifactDir string
}

func NewFileStore(tempDir, artifactDir string) (*FileStore, error) {
	for _, dir := range []string{tempDir, artifactDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &FileStore{tempDir: tempDir, artifactDir: artifactDir}, nil
}

// StagingDir is where the chunks of uploadID live.
func (s *FileStore) StagingDir(uploadID string) string {
	return filepath.Join(s.tempDir, uploadID)
}

func (s *FileStore) Provision(uploadID string) (string, error) {
	dir := s.StagingDir(uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("provision staging: %w", err)
	}
	return dir, nil
}

func chunkPath(dir string, index int) string {
	return filepath.Join(dir, "chunk_"+strconv.Itoa(index))
}

// WriteChunk stores one chunk. The data lands in a unique temp file first and
// is renamed into place, so readers never see a half written chunk.
func (s *FileStore) WriteChunk(dir string, index int, r io.Reader) (int64, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("staging unavailable: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf("chunk_%d-*%s", index, partialSuffix))
	if err != nil {
		return 0, fmt.Errorf("create chunk: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("write chunk %d: %w", index, err)
	}

	if err := os.Rename(tmp.Name(), chunkPath(dir, index)); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("commit chunk %d: %w", index, err)
	}
	return n, nil
}

func (s *FileStore) ReadChunk(dir string, index int) ([]byte, error) {
	return os.ReadFile(chunkPath(dir, index))
}

// Concatenate appends chunks 0..count-1 in order into a temporary file next to
// dst, deleting each chunk once it has been copied. Every call gets its own
// temp file, so sessions merging the same content never share one. The caller
// either commits or discards the returned temp path.
func (s *FileStore) Concatenate(dir string, count int, dst string) (string, int64, error) {
	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+"-*"+partialSuffix)
	if err != nil {
		return "", 0, fmt.Errorf("create artifact: %w", err)
	}
	tmpPath := out.Name()

	var total int64
	for i := 0; i < count; i++ {
		n, err := appendChunk(out, chunkPath(dir, i))
		total += n
		if err != nil {
			out.Close()
			os.Remove(tmpPath)
			return "", total, fmt.Errorf("append chunk %d: %w", i, err)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return "", total, fmt.Errorf("close artifact: %w", err)
	}
	return tmpPath, total, nil
}

func appendChunk(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, f)
	f.Close()
	if err != nil {
		return n, err
	}
	return n, os.Remove(path)
}

// Commit moves a concatenated temp file to its final location. Artifacts are
// named by content hash, so an artifact already at dst counts as committed and
// the temp file is dropped.
func (s *FileStore) Commit(tmpPath, dst string) error {
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() {
		s.Discard(tmpPath)
		return nil
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		if info, statErr := os.Stat(dst); statErr == nil && info.Mode().IsRegular() {
			s.Discard(tmpPath)
			return nil
		}
		os.Remove(tmpPath)
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

func (s *FileStore) Discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[uploads] discard failed path=%s error=%v", path, err)
	}
}

// Release removes a staging directory and anything left in it.
func (s *FileStore) Release(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// ArtifactPath names the artifact for hash, keeping the original extension.
func (s *FileStore) ArtifactPath(hash, fileName string) string {
	return filepath.Join(s.artifactDir, strings.ToLower(hash)+strings.ToLower(filepath.Ext(fileName)))
}

// FindArtifact returns the committed artifact for hash, if any.
func (s *FileStore) FindArtifact(hash string) (string, bool, error) {
	matches, err := filepath.Glob(filepath.Join(s.artifactDir, strings.ToLower(hash)+".*"))
	if err != nil {
		return "", false, err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, partialSuffix) {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return m, true, nil
		}
	}
	return "", false, nil
}

// ArtifactCount reports how many committed artifacts exist.
func (s *FileStore) ArtifactCount() (int, error) {
	entries, err := os.ReadDir(s.artifactDir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasSuffix(e.Name(), partialSuffix) {
			n++
		}
	}
	return n, nil
}
