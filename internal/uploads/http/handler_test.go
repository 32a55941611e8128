package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cityworks/project-registry/internal/ingest"
	projectdomain "github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	"github.com/cityworks/project-registry/internal/uploads/domain"
	"github.com/cityworks/project-registry/internal/uploads/repository"
	"github.com/cityworks/project-registry/internal/uploads/service"
	"github.com/cityworks/project-registry/internal/uploads/storage"
)

type fakeImporter struct {
	got [][]string
}

func (f *fakeImporter) ImportBatch(_ context.Context, names []string) (*projectdomain.ImportResult, error) {
	f.got = append(f.got, names)
	records := make([]projectdomain.Project, len(names))
	for i, n := range names {
		records[i] = projectdomain.Project{ID: int64(i + 1), Name: n}
	}
	return &projectdomain.ImportResult{
		TotalRequested:  len(names),
		InsertedCount:   len(names),
		InsertedRecords: records,
		DuplicateNames:  []string{},
	}, nil
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) (*projectdomain.Stats, bool, error) {
	return &projectdomain.Stats{Total: 12, LastUpdated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, true, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *fakeImporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	files, err := storage.NewFileStore(filepath.Join(root, "temp"), filepath.Join(root, "uploads"))
	require.NoError(t, err)

	validator := spreadsheet.NewValidator(1<<20, nil)
	mgr := service.NewManager(repository.NewMemoryRepository(), files, service.Config{
		MaxFileSize:        validator.MaxBytes,
		AcceptedExtensions: validator.Extensions,
		DefaultChunkSize:   1024,
		ChunkConcurrency:   3,
		SessionTTL:         time.Hour,
	})
	imp := &fakeImporter{}
	pipeline := ingest.NewPipeline(validator, spreadsheet.NewParser(nil, 0), imp)

	r := gin.New()
	New(mgr, pipeline, validator, fakeStats{}).Register(r.Group("/api/v1"))
	return r, imp
}

func workbook(t *testing.T, values ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func serve(r *gin.Engine, req *http.Request) (int, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func jsonReq(method, path string, v any) *http.Request {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartReq(t *testing.T, path string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestChunkedUploadThenImport(t *testing.T) {
	r, imp := setupRouter(t)
	content := workbook(t, "project name", "East Park", "Water Main")
	chunkSize := 1024
	total := (len(content) + chunkSize - 1) / chunkSize
	hash := digest(content)

	code, body := serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/init", domain.InitRequest{
		FileName:    "batch.xlsx",
		FileSize:    int64(len(content)),
		FileHash:    hash,
		ChunkSize:   int64(chunkSize),
		TotalChunks: total,
	}))
	require.Equal(t, http.StatusCreated, code, body)
	uploadID := body["upload"].(map[string]any)["upload_id"].(string)

	code, _ = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/merge", domain.MergeRequest{UploadID: uploadID, TotalChunks: total}))
	require.Equal(t, http.StatusBadRequest, code)

	for i := 0; i < total; i++ {
		end := (i + 1) * chunkSize
		if end > len(content) {
			end = len(content)
		}
		part := content[i*chunkSize : end]
		code, body = serve(r, multipartReq(t, "/api/v1/upload/chunk", map[string]string{
			"upload_id":   uploadID,
			"chunk_index": fmt.Sprint(i),
			"chunk_size":  fmt.Sprint(len(part)),
		}, "chunk", "blob", part))
		require.Equal(t, http.StatusOK, code, body)
	}

	code, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload/chunk/"+uploadID+"/chunks", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["uploaded_chunks"], total)

	code, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload/chunk/"+uploadID+"/status", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(domain.StateComplete), body["status"].(map[string]any)["state"])

	code, body = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/merge", domain.MergeRequest{UploadID: uploadID, FileName: "batch.xlsx", TotalChunks: total}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(len(content)), body["file"].(map[string]any)["file_size"])

	code, _ = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload/chunk/"+uploadID+"/status", nil))
	assert.Equal(t, http.StatusNotFound, code)

	code, body = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/init", domain.InitRequest{
		FileName:    "again.xlsx",
		FileSize:    int64(len(content)),
		FileHash:    hash,
		ChunkSize:   int64(chunkSize),
		TotalChunks: total,
	}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["upload"].(map[string]any)["skip_upload"])

	code, body = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/upload/import/"+hash, nil))
	require.Equal(t, http.StatusOK, code, body)
	require.Len(t, imp.got, 1)
	assert.Equal(t, []string{"East Park", "Water Main"}, imp.got[0])
}

func TestChunkErrors(t *testing.T) {
	r, _ := setupRouter(t)

	code, _ := serve(r, multipartReq(t, "/api/v1/upload/chunk", map[string]string{"chunk_index": "0"}, "chunk", "blob", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(r, multipartReq(t, "/api/v1/upload/chunk", map[string]string{"upload_id": "abc", "chunk_index": "zero"}, "chunk", "blob", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(r, multipartReq(t, "/api/v1/upload/chunk", map[string]string{
		"upload_id":   "6f1c9f5e-3a53-4c8e-9b8f-0f5d2b8a9c11",
		"chunk_index": "0",
	}, "chunk", "blob", []byte("x")))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = serve(r, multipartReq(t, "/api/v1/upload/chunk", map[string]string{"upload_id": "abc", "chunk_index": "0"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInitRejectsOversize(t *testing.T) {
	r, _ := setupRouter(t)

	code, body := serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/init", domain.InitRequest{
		FileName:    "huge.xlsx",
		FileSize:    4 << 20,
		FileHash:    digest([]byte("huge")),
		ChunkSize:   1 << 20,
		TotalChunks: 4,
	}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body["code"])
}

func TestCancel(t *testing.T) {
	r, _ := setupRouter(t)

	code, body := serve(r, jsonReq(http.MethodPost, "/api/v1/upload/chunk/init", domain.InitRequest{
		FileName:    "c.xlsx",
		FileSize:    10,
		FileHash:    digest([]byte("0123456789")),
		ChunkSize:   5,
		TotalChunks: 2,
	}))
	require.Equal(t, http.StatusCreated, code)
	uploadID := body["upload"].(map[string]any)["upload_id"].(string)

	code, _ = serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/upload/chunk/"+uploadID, nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/upload/chunk/"+uploadID, nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload/chunk/"+uploadID+"/chunks", nil))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSingleShotUpload(t *testing.T) {
	r, imp := setupRouter(t)

	code, body := serve(r, multipartReq(t, "/api/v1/upload", nil, "file", "list.xlsx", workbook(t, "name", "Road A", "", "Road B")))
	require.Equal(t, http.StatusOK, code, body)
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(2), result["import"].(map[string]any)["inserted_count"])
	assert.Contains(t, result["message"], "added 2 new projects")
	assert.Equal(t, [][]string{{"Road A", "Road B"}}, imp.got)

	code, body = serve(r, multipartReq(t, "/api/v1/upload", nil, "file", "empty.xlsx", workbook(t, "name", " ")))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "NO_VALID_NAMES", body["code"])
	assert.Equal(t, "row 2: name is empty", body["details"])

	code, _ = serve(r, multipartReq(t, "/api/v1/upload", nil, "file", "notes.csv", []byte("a,b")))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(r, multipartReq(t, "/api/v1/upload", map[string]string{"x": "y"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestValidate(t *testing.T) {
	r, _ := setupRouter(t)

	code, body := serve(r, jsonReq(http.MethodPost, "/api/v1/upload/validate", validateReq{FileName: "a.xlsx", FileSize: 1500}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(2), body["estimated_processing_seconds"])

	code, _ = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/validate", validateReq{FileName: "a.pdf", FileSize: 10}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/validate", validateReq{FileName: "a.xlsx", FileSize: 2 << 20}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	code, _ = serve(r, jsonReq(http.MethodPost, "/api/v1/upload/validate", validateReq{FileName: "a.xlsx"}))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEstimatedSeconds(t *testing.T) {
	assert.Equal(t, int64(0), EstimatedSeconds(0))
	assert.Equal(t, int64(2), EstimatedSeconds(1))
	assert.Equal(t, int64(2), EstimatedSeconds(mib))
	assert.Equal(t, int64(4), EstimatedSeconds(mib+1))
}

func TestUploadStats(t *testing.T) {
	r, _ := setupRouter(t)

	code, body := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload/stats", nil))

	require.Equal(t, http.StatusOK, code)
	projects := body["projects"].(map[string]any)
	assert.Equal(t, float64(12), projects["total"])
	assert.Equal(t, true, projects["cached"])
	assert.Equal(t, float64(0), body["active_sessions"])
	assert.Equal(t, []any{".xlsx", ".xls"}, body["limits"].(map[string]any)["supported_formats"])
}

func TestImportArtifact_Errors(t *testing.T) {
	r, _ := setupRouter(t)

	code, _ := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/upload/import/nothex", nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/upload/import/"+digest([]byte("missing")), nil))
	assert.Equal(t, http.StatusNotFound, code)
}
