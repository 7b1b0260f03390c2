package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/storage"
	"resume-ats-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	lastReq    processor.AnalysisRequest
	analyzeErr error
	enhanceErr error
	readyErr   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req processor.AnalysisRequest) (*types.AnalysisReport, error) {
	f.lastReq = req
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &types.AnalysisReport{
		Success:         true,
		AnalysisID:      "a-1",
		JobRoleSelected: req.Role,
		ATSScoreGeneral: 58,
		ATSScoreRole:    58,
		AnalysisSummary: "Analysis for " + req.Role + ". Role Match: 58%.",
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *fakeAnalyzer) Enhance(_ context.Context, text, promptOverride string) (string, error) {
	if f.enhanceErr != nil {
		return "", f.enhanceErr
	}
	if text == "" {
		return "", processor.NewMissingInputError("enhance", "No text")
	}
	return "Improved: " + text + promptOverride, nil
}

func (f *fakeAnalyzer) Ready() error { return f.readyErr }

type fakeStore struct {
	reports   map[string]*types.AnalysisReport
	lastQuery storage.AnalysisQuery
	files     map[string][]byte
	listErr   error
}

func (f *fakeStore) GetAnalysis(_ context.Context, id string) (*types.AnalysisReport, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, storage.ErrAnalysisNotFound
	}
	return r, nil
}

func (f *fakeStore) ListAnalyses(_ context.Context, q storage.AnalysisQuery) (*storage.AnalysisPage, error) {
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &storage.AnalysisPage{Items: []storage.AnalysisListItem{{AnalysisID: "a-1", User: q.User}}, Total: 1, Page: 1, PageSize: 20}, nil
}

func (f *fakeStore) OriginalFile(_ context.Context, id string) (string, []byte, error) {
	data, ok := f.files[id]
	if !ok {
		return "", nil, storage.ErrOriginalNotStored
	}
	return "My Resume.pdf", data, nil
}

type fakeHealth map[string]bool

func (f fakeHealth) Health(context.Context) map[string]bool { return f }

func newTestServer(a *fakeAnalyzer, s AnalysisStore, hc HealthChecker) *server.Hertz {
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	ah := NewAnalysisHandler(a, s, hc, zerolog.Nop())
	h.POST("/api/v1/analyze", ah.HandleAnalyze)
	h.POST("/api/v1/enhance", ah.HandleEnhance)
	h.GET("/api/v1/roles", ah.HandleRoles)
	h.GET("/api/v1/analyses", ah.HandleListAnalyses)
	h.GET("/api/v1/analyses/:id", ah.HandleGetAnalysis)
	h.GET("/api/v1/analyses/:id/original", ah.HandleDownloadOriginal)
	h.GET("/health", ah.HandleHealth)
	return h
}

func multipartBody(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileName != "" {
		part, err := w.CreateFormFile("resume_file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestHandleAnalyze_Success(t *testing.T) {
	a := &fakeAnalyzer{}
	h := newTestServer(a, nil, nil)

	body, contentType := multipartBody(t, "resume.pdf", []byte("%PDF-1.4"), map[string]string{
		"job_role":        "Backend Developer",
		"job_description": "Go, Kubernetes",
	})
	resp := ut.PerformRequest(h.Engine, "POST", "/api/v1/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	).Result()

	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal(resp.Body(), &report))
	assert.True(t, report.Success)
	assert.Equal(t, "a-1", report.AnalysisID)
	assert.Equal(t, "Backend Developer", report.JobRoleSelected)

	assert.Equal(t, "resume.pdf", a.lastReq.Document.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), a.lastReq.Document.Data)
	assert.Equal(t, "Go, Kubernetes", a.lastReq.JobDescription)
	assert.Equal(t, "anonymous", a.lastReq.User)
}

func TestHandleAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing input", processor.NewMissingInputError("analyze", "Missing file or job role."), consts.StatusBadRequest, "missing-input"},
		{"unsupported", processor.NewUnsupportedFormatError("analyze", "Invalid file type"), consts.StatusBadRequest, "unsupported-format"},
		{"empty", processor.NewEmptyDocumentError("analyze", "Empty file"), consts.StatusBadRequest, "empty-document"},
		{"models", processor.NewModelsUnavailableError("analyze", "AI models failed to load."), consts.StatusServiceUnavailable, "models-unavailable"},
		{"internal", processor.NewInternalError("analyze", errors.New("boom")), consts.StatusInternalServerError, "internal-error"},
		{"untyped", errors.New("boom"), consts.StatusInternalServerError, "internal-error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeAnalyzer{analyzeErr: tt.err}, nil, nil)
			body, contentType := multipartBody(t, "resume.pdf", []byte("x"), map[string]string{"job_role": "QA Engineer"})
			resp := ut.PerformRequest(h.Engine, "POST", "/api/v1/analyze",
				&ut.Body{Body: body, Len: body.Len()},
				ut.Header{Key: "Content-Type", Value: contentType},
			).Result()

			assert.Equal(t, tt.wantStatus, resp.StatusCode())
			errResp := decodeError(t, resp.Body())
			assert.False(t, errResp.Success)
			assert.Equal(t, tt.wantCode, errResp.Error.Code)
			assert.NotEmpty(t, errResp.Error.Message)
		})
	}
}

func TestHandleAnalyze_NoFilePassesEmptyDocument(t *testing.T) {
	a := &fakeAnalyzer{}
	h := newTestServer(a, nil, nil)
	body, contentType := multipartBody(t, "", nil, map[string]string{"job_role": "QA Engineer"})
	resp := ut.PerformRequest(h.Engine, "POST", "/api/v1/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	).Result()

	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Empty(t, a.lastReq.Document.FileName)
	assert.Empty(t, a.lastReq.Document.Data)
}

func TestHandleEnhance(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}, nil, nil)

	body := []byte(`{"text":"did stuff"}`)
	resp := ut.PerformRequest(h.Engine, "POST", "/api/v1/enhance",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	var out map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, "Improved: did stuff", out["enhanced_text"])

	body = []byte(`{"text":""}`)
	resp = ut.PerformRequest(h.Engine, "POST", "/api/v1/enhance",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	).Result()
	assert.Equal(t, consts.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "missing-input", decodeError(t, resp.Body()).Error.Code)
}

func TestHandleEnhance_GeneratorUnavailable(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{enhanceErr: processor.NewModelsUnavailableError("enhance", "No API Key")}, nil, nil)
	body := []byte(`{"text":"did stuff"}`)
	resp := ut.PerformRequest(h.Engine, "POST", "/api/v1/enhance",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	).Result()
	assert.Equal(t, consts.StatusServiceUnavailable, resp.StatusCode())
	assert.Equal(t, "No API Key", decodeError(t, resp.Body()).Error.Message)
}

func TestHandleRoles(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}, nil, nil)
	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/roles", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())

	var out map[string][]string
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, processor.Roles(), out["roles"])
}

func TestHandleGetAnalysis(t *testing.T) {
	store := &fakeStore{reports: map[string]*types.AnalysisReport{
		"a-1": {AnalysisID: "a-1", JobRoleSelected: "Data Scientist"},
	}}
	h := newTestServer(&fakeAnalyzer{}, store, nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses/a-1", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal(resp.Body(), &report))
	assert.Equal(t, "Data Scientist", report.JobRoleSelected)

	resp = ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses/missing", nil).Result()
	assert.Equal(t, consts.StatusNotFound, resp.StatusCode())
	assert.Equal(t, CodeNotFound, decodeError(t, resp.Body()).Error.Code)
}

func TestHandlersWithoutStore(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}, nil, nil)
	for _, path := range []string{"/api/v1/analyses/a-1", "/api/v1/analyses", "/api/v1/analyses/a-1/original"} {
		resp := ut.PerformRequest(h.Engine, "GET", path, nil).Result()
		assert.Equal(t, consts.StatusServiceUnavailable, resp.StatusCode(), path)
		assert.Equal(t, CodePersistenceUnavailable, decodeError(t, resp.Body()).Error.Code, path)
	}
}

func TestHandleListAnalyses_QueryParams(t *testing.T) {
	store := &fakeStore{}
	h := newTestServer(&fakeAnalyzer{}, store, nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses?user=bob&page=2&page_size=5&file_md5=abc", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, storage.AnalysisQuery{User: "bob", FileMD5: "abc", Page: 2, PageSize: 5}, store.lastQuery)

	var page storage.AnalysisPage
	require.NoError(t, json.Unmarshal(resp.Body(), &page))
	assert.Equal(t, int64(1), page.Total)

	// 非法页码交给仓库归一化
	ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses?page=abc", nil)
	assert.Equal(t, 0, store.lastQuery.Page)
}

func TestHandleDownloadOriginal(t *testing.T) {
	store := &fakeStore{files: map[string][]byte{"a-1": []byte("%PDF-1.4")}}
	h := newTestServer(&fakeAnalyzer{}, store, nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses/a-1/original", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, "application/pdf", string(resp.Header.ContentType()))
	assert.Equal(t, `attachment; filename="My Resume.pdf"`, string(resp.Header.Peek("Content-Disposition")))
	assert.Equal(t, []byte("%PDF-1.4"), resp.Body())

	resp = ut.PerformRequest(h.Engine, "GET", "/api/v1/analyses/a-2/original", nil).Result()
	assert.Equal(t, consts.StatusNotFound, resp.StatusCode())
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}, nil, fakeHealth{"mysql": true, "redis": true})
	resp := ut.PerformRequest(h.Engine, "GET", "/health", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())

	var out struct {
		Status      string          `json:"status"`
		ModelsReady bool            `json:"models_ready"`
		Components  map[string]bool `json:"components"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.True(t, out.ModelsReady)
	assert.Len(t, out.Components, 2)

	h = newTestServer(&fakeAnalyzer{readyErr: errors.New("no models")}, nil, fakeHealth{"mysql": true})
	resp = ut.PerformRequest(h.Engine, "GET", "/health", nil).Result()
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, "degraded", out.Status)
	assert.False(t, out.ModelsReady)

	h = newTestServer(&fakeAnalyzer{}, nil, fakeHealth{"redis": false})
	resp = ut.PerformRequest(h.Engine, "GET", "/health", nil).Result()
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, "degraded", out.Status)
}
