package domain

import (
	"math"
	"time"
)

// State is derived from the session's chunk count; the terminal states are
// only ever reported, since a finished session no longer exists.
type State string

const (
	StateCreated   State = "CREATED"
	StateReceiving State = "RECEIVING"
	StateComplete  State = "COMPLETE"
	StateMerged    State = "MERGED"
	StateCancelled State = "CANCELLED"
	StateExpired   State = "EXPIRED"
)

// Session tracks one in-progress chunked upload. It owns its staging directory
// until it is merged, cancelled or swept.
type Session struct {
	UploadID    string    `json:"upload_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	FileHash    string    `json:"file_hash"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	CreatedAt   time.Time `json:"created_at"`
	StagingDir  string    `json:"staging_dir"`

	// UploadedChunks is sorted ascending. It is kept outside the serialized
	// session so chunk arrivals never rewrite the session record.
	UploadedChunks []int `json:"-"`
}

func (s *Session) State() State {
	switch n := len(s.UploadedChunks); {
	case n == 0:
		return StateCreated
	case n < s.TotalChunks:
		return StateReceiving
	default:
		return StateComplete
	}
}

func (s *Session) HasChunk(index int) bool {
	for _, c := range s.UploadedChunks {
		if c == index {
			return true
		}
	}
	return false
}

// Progress is the uploaded share in percent, rounded to two decimals.
func Progress(uploaded, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(uploaded)/float64(total)*10000) / 100
}

type InitRequest struct {
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	FileHash    string `json:"file_hash"`
	ChunkSize   int64  `json:"chunk_size"`
	TotalChunks int    `json:"total_chunks"`
}

// InitResult either names a new session or, when SkipUpload is set, points at
// an artifact that already holds identical content.
type InitResult struct {
	UploadID         string `json:"upload_id,omitempty"`
	SkipUpload       bool   `json:"skip_upload"`
	FileHash         string `json:"file_hash"`
	FilePath         string `json:"file_path,omitempty"`
	ChunkSize        int64  `json:"chunk_size,omitempty"`
	TotalChunks      int    `json:"total_chunks,omitempty"`
	ChunkConcurrency int    `json:"chunk_concurrency,omitempty"`
}

type ChunkStatus struct {
	UploadID       string `json:"upload_id"`
	UploadedChunks []int  `json:"uploaded_chunks"`
	TotalChunks    int    `json:"total_chunks"`
}

type ChunkResult struct {
	UploadID      string  `json:"upload_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Duplicate     bool    `json:"duplicate"`
	BytesWritten  int64   `json:"bytes_written"`
	UploadedCount int     `json:"uploaded_count"`
	TotalChunks   int     `json:"total_chunks"`
	Progress      float64 `json:"progress"`
}

type MergeRequest struct {
	UploadID    string `json:"upload_id"`
	FileName    string `json:"file_name"`
	TotalChunks int    `json:"total_chunks"`
}

type MergeResult struct {
	UploadID string `json:"upload_id"`
	FileHash string `json:"file_hash"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	State    State  `json:"state"`
}

type Status struct {
	UploadID      string    `json:"upload_id"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	TotalChunks   int       `json:"total_chunks"`
	UploadedCount int       `json:"uploaded_count"`
	Progress      float64   `json:"progress"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
}
