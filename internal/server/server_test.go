package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formscan/formscan/internal/config"
	"github.com/formscan/formscan/internal/extraction"
	"github.com/formscan/formscan/internal/ocr"
	"github.com/formscan/formscan/internal/service"
	"github.com/formscan/formscan/internal/upload"
)

type stubOCR struct {
	detections []extraction.Detection
	infoErr    error
}

func (s *stubOCR) Name() string { return "stub" }

func (s *stubOCR) Info(context.Context) (ocr.Info, error) {
	if s.infoErr != nil {
		return ocr.Info{}, s.infoErr
	}
	return ocr.Info{Name: "stub", Version: "1.0", Languages: []string{"eng"}}, nil
}

func (s *stubOCR) Recognize(context.Context, ocr.Input) ([]extraction.Detection, error) {
	return s.detections, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.UploadDirectory = t.TempDir()
	cfg.MaxFileSize = 1 << 20
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, stub *stubOCR) *Server {
	t.Helper()

	engine, err := extraction.NewEngine(extraction.DefaultConfig())
	require.NoError(t, err)
	store, err := upload.NewStore(cfg.UploadDirectory, cfg.MaxFileSize, cfg.KeepUploads)
	require.NoError(t, err)
	svc, err := service.New(service.Config{Engine: engine, OCR: stub, Store: store})
	require.NoError(t, err)

	return New(cfg, svc)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleUploadSingleFile(t *testing.T) {
	stub := &stubOCR{detections: []extraction.Detection{{
		Text:       "Email: ada@example.org",
		Confidence: 0.9,
		Quad:       extraction.Quad{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 20}, {X: 0, Y: 20}},
	}}}
	srv := newTestServer(t, testConfig(t), stub)

	body, contentType := multipartBody(t, map[string]string{"scan.png": "png bytes"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch service.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.True(t, batch.Success)
	assert.Equal(t, 1, batch.TotalProcessed)
	require.Len(t, batch.Results, 1)
	require.True(t, batch.Results[0].Success, batch.Results[0].Error)
	assert.Equal(t, "scan.png", batch.Results[0].Filename)
	assert.Equal(t, "ada@example.org", batch.Results[0].Data.Fields["email"])
}

func TestHandleUploadMixedResults(t *testing.T) {
	stub := &stubOCR{detections: []extraction.Detection{{
		Text:       "hello",
		Confidence: 0.9,
		Quad:       extraction.Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}},
	}}}
	srv := newTestServer(t, testConfig(t), stub)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", "good.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("x"))
	require.NoError(t, err)
	fw, err = w.CreateFormFile("files", "bad.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch service.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Results, 2)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, "good.png", batch.Results[0].Filename)
	assert.False(t, batch.Results[1].Success)
	assert.Equal(t, "bad.txt", batch.Results[1].Filename)
	assert.Contains(t, batch.Results[1].Error, "unsupported")
}

func TestHandleUploadNoFiles(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{})

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadNotMultipart(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{})

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadWrongMethod(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.OCRReady)
	require.NotNil(t, resp.Engine)
	assert.Equal(t, "stub", resp.Engine.Name)
}

func TestHandleHealthDegraded(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{infoErr: assert.AnError})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.OCRReady)
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &stubOCR{})

	doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap metricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.GreaterOrEqual(t, snap.TotalRequests, int64(1))
}

func TestRateLimitRejectsBursts(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	srv := newTestServer(t, cfg, &stubOCR{})

	first := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
