package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/constants"
	"resume-ats-go/internal/storage/models"
	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	analyses map[string]*models.Analysis
	outbox   []*models.OutboxMessage
	err      error
	filters  []AnalysisFilter
}

func newMemStore() *memStore {
	return &memStore{analyses: map[string]*models.Analysis{}}
}

func (m *memStore) CreateAnalysisWithOutbox(_ context.Context, a *models.Analysis, msg *models.OutboxMessage) error {
	if m.err != nil {
		return m.err
	}
	m.analyses[a.AnalysisID] = a
	if msg != nil {
		m.outbox = append(m.outbox, msg)
	}
	return nil
}

func (m *memStore) GetAnalysis(_ context.Context, id string) (*models.Analysis, error) {
	a, ok := m.analyses[id]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	return a, nil
}

func (m *memStore) ListAnalyses(_ context.Context, f AnalysisFilter) ([]models.Analysis, int64, error) {
	m.filters = append(m.filters, f)
	var out []models.Analysis
	for _, a := range m.analyses {
		if f.User == "" || a.UserName == f.User {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

type memObjects struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func (m *memObjects) UploadOriginal(_ context.Context, id, fileName string, data []byte) (string, string, error) {
	if m.uploadErr != nil {
		return "", "", m.uploadErr
	}
	key := OriginalObjectKey(id, fileName)
	m.objects[key] = data
	return key, "md5-from-upload", nil
}

func (m *memObjects) DownloadOriginal(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func (m *memObjects) DeleteObject(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

type memCache struct {
	reports map[string][]byte
	gets    int
}

func (m *memCache) CacheReport(_ context.Context, id string, data []byte) error {
	m.reports[id] = data
	return nil
}

func (m *memCache) GetCachedReport(_ context.Context, id string) ([]byte, error) {
	m.gets++
	data, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func newTestRepo() (*AnalysisRepository, *memStore, *memObjects, *memCache) {
	db := newMemStore()
	objects := &memObjects{objects: map[string][]byte{}}
	cache := &memCache{reports: map[string][]byte{}}
	repo := &AnalysisRepository{
		db:       db,
		objects:  objects,
		cache:    cache,
		exchange: "analysis.events.exchange",
		routing:  "analysis.completed",
		logger:   zerolog.Nop(),
	}
	return repo, db, objects, cache
}

func sampleRecord(id string) *types.AnalysisRecord {
	jd := 71
	return &types.AnalysisRecord{
		Report: &types.AnalysisReport{
			Success:         true,
			AnalysisID:      id,
			JobRoleSelected: "Backend Developer",
			ATSScoreGeneral: 64,
			ATSScoreRole:    64,
			ATSScoreJD:      &jd,
			AnalysisSummary: "Analysis for Backend Developer. Role Match: 64%. JD Match: 71%.",
			Saved:           true,
			CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		User:           "alice",
		JobRole:        "Backend Developer",
		JobDescription: "Go and Kubernetes",
		FileName:       "Resume.PDF",
		FileData:       []byte("%PDF-1.4 fake"),
	}
}

func TestOriginalObjectKey(t *testing.T) {
	assert.Equal(t, "analysis/abc/original.pdf", OriginalObjectKey("abc", "Resume.PDF"))
	assert.Equal(t, "analysis/abc/original.docx", OriginalObjectKey("abc", "cv.docx"))
	assert.Equal(t, "analysis/abc/original", OriginalObjectKey("abc", "noext"))
}

func TestSaveAnalysis_WritesRowOutboxAndCache(t *testing.T) {
	repo, db, objects, cache := newTestRepo()
	ctx := context.Background()

	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("id-1")))

	row := db.analyses["id-1"]
	require.NotNil(t, row)
	assert.Equal(t, "alice", row.UserName)
	assert.Equal(t, "analysis/id-1/original.pdf", row.ResumeFile)
	assert.Equal(t, "md5-from-upload", row.FileMD5)
	assert.Equal(t, 64, row.ATSScoreGeneral)
	require.NotNil(t, row.ATSScoreJD)
	assert.Equal(t, 71, *row.ATSScoreJD)
	assert.Contains(t, objects.objects, "analysis/id-1/original.pdf")

	var stored types.AnalysisReport
	require.NoError(t, json.Unmarshal(row.AnalysisResult, &stored))
	assert.True(t, stored.Saved)
	assert.Equal(t, "Backend Developer", stored.JobRoleSelected)

	require.Len(t, db.outbox, 1)
	msg := db.outbox[0]
	assert.Equal(t, "id-1", msg.AggregateID)
	assert.Equal(t, constants.EventTypeAnalysisCompleted, msg.EventType)
	assert.Equal(t, "analysis.events.exchange", msg.TargetExchange)
	assert.Equal(t, "analysis.completed", msg.TargetRoutingKey)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.NotEmpty(t, msg.MessageID)

	var event AnalysisCompletedEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, "id-1", event.AnalysisID)
	assert.Equal(t, "analysis/id-1/original.pdf", event.ResumeFile)

	assert.Contains(t, cache.reports, "id-1")
}

func TestSaveAnalysis_UploadFailureStillSaves(t *testing.T) {
	repo, db, objects, _ := newTestRepo()
	objects.uploadErr = errors.New("minio down")

	require.NoError(t, repo.SaveAnalysis(context.Background(), sampleRecord("id-2")))
	row := db.analyses["id-2"]
	require.NotNil(t, row)
	assert.Empty(t, row.ResumeFile)
	// 没有上传结果时自行计算MD5
	assert.Len(t, row.FileMD5, 32)
}

func TestSaveAnalysis_DBFailureRemovesUploadedObject(t *testing.T) {
	repo, db, objects, cache := newTestRepo()
	db.err = errors.New("deadlock")

	err := repo.SaveAnalysis(context.Background(), sampleRecord("id-3"))
	require.Error(t, err)
	assert.Equal(t, []string{"analysis/id-3/original.pdf"}, objects.deleted)
	assert.Empty(t, objects.objects)
	assert.Empty(t, cache.reports)
}

func TestSaveAnalysis_WithoutExchangeSkipsOutbox(t *testing.T) {
	repo, db, _, _ := newTestRepo()
	repo.exchange = ""

	require.NoError(t, repo.SaveAnalysis(context.Background(), sampleRecord("id-4")))
	assert.Empty(t, db.outbox)
	assert.Contains(t, db.analyses, "id-4")
}

func TestSaveAnalysis_Unavailable(t *testing.T) {
	repo := NewAnalysisRepository(nil, config.RabbitMQConfig{}, zerolog.Nop())
	assert.False(t, repo.Available())
	err := repo.SaveAnalysis(context.Background(), sampleRecord("id-5"))
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)

	_, err = repo.GetAnalysis(context.Background(), "id-5")
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
}

func TestNewAnalysisRepository_NilComponentsStayNil(t *testing.T) {
	repo := NewAnalysisRepository(&Storage{}, config.RabbitMQConfig{AnalysisEventsExchange: "analysis.events.exchange"}, zerolog.Nop())
	assert.Nil(t, repo.db)
	assert.Nil(t, repo.objects)
	assert.Nil(t, repo.cache)
	assert.Empty(t, repo.exchange)
}

func TestGetAnalysis_CacheAside(t *testing.T) {
	repo, _, _, cache := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("id-6")))

	// 清空缓存后从库里读取并回填
	delete(cache.reports, "id-6")
	report, err := repo.GetAnalysis(ctx, "id-6")
	require.NoError(t, err)
	assert.Equal(t, "id-6", report.AnalysisID)
	assert.Contains(t, cache.reports, "id-6")

	// 缓存命中
	cache.reports["id-6"] = []byte(`{"analysis_id":"id-6","job_role_selected":"from-cache"}`)
	report, err = repo.GetAnalysis(ctx, "id-6")
	require.NoError(t, err)
	assert.Equal(t, "from-cache", report.JobRoleSelected)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	repo, _, _, _ := newTestRepo()
	_, err := repo.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestListAnalyses_NormalizesPaging(t *testing.T) {
	repo, db, _, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("id-7")))

	page, err := repo.ListAnalyses(ctx, AnalysisQuery{User: "alice", Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, constants.MaxPageSize, page.PageSize)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "id-7", page.Items[0].AnalysisID)
	assert.Equal(t, "Resume.PDF", page.Items[0].OriginalFilename)

	_, err = repo.ListAnalyses(ctx, AnalysisQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)
	last := db.filters[len(db.filters)-1]
	assert.Equal(t, 20, last.Offset)
	assert.Equal(t, 10, last.Limit)

	page, err = repo.ListAnalyses(ctx, AnalysisQuery{User: "bob"})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, defaultPageSize, page.PageSize)
}

func TestOriginalFile(t *testing.T) {
	repo, _, objects, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("id-8")))

	name, data, err := repo.OriginalFile(ctx, "id-8")
	require.NoError(t, err)
	assert.Equal(t, "Resume.PDF", name)
	assert.Equal(t, []byte("%PDF-1.4 fake"), data)

	objects.uploadErr = errors.New("down")
	require.NoError(t, repo.SaveAnalysis(ctx, sampleRecord("id-9")))
	_, _, err = repo.OriginalFile(ctx, "id-9")
	assert.ErrorIs(t, err, ErrOriginalNotStored)
}
