package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("upload session not found")
	ErrInvalidRequest  = errors.New("invalid upload request")
	ErrUploadTooLarge  = errors.New("upload exceeds maximum file size")
	// ErrChunksIncomplete is retryable: upload the missing chunks and merge again.
	ErrChunksIncomplete = errors.New("chunks incomplete")
	// ErrIntegrity is terminal for the session; the merged artifact is discarded.
	ErrIntegrity        = errors.New("merged file failed integrity check")
	ErrArtifactNotFound = errors.New("artifact not found")
)
