package storage

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// 需要真实服务的测试通过环境变量开启，未配置时跳过

func integrationMySQL(t *testing.T) *MySQL {
	t.Helper()
	host := os.Getenv("ATS_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("ATS_TEST_MYSQL_HOST 未设置，跳过MySQL集成测试")
	}
	port, _ := strconv.Atoi(os.Getenv("ATS_TEST_MYSQL_PORT"))
	if port == 0 {
		port = 3306
	}
	cfg := &config.MySQLConfig{
		Host:                  host,
		Port:                  port,
		Username:              os.Getenv("ATS_TEST_MYSQL_USER"),
		Password:              os.Getenv("ATS_TEST_MYSQL_PASSWORD"),
		Database:              os.Getenv("ATS_TEST_MYSQL_DATABASE"),
		MaxIdleConns:          2,
		MaxOpenConns:          5,
		ConnectTimeoutSeconds: 5,
		ReadTimeoutSeconds:    5,
		WriteTimeoutSeconds:   5,
		LogLevel:              1,
	}
	m, err := NewMySQL(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMySQL_CreateAndQueryAnalysis(t *testing.T) {
	m := integrationMySQL(t)
	ctx := context.Background()

	id := uuid.Must(uuid.NewV7()).String()
	analysis := &models.Analysis{
		AnalysisID:      id,
		UserName:        "integration-" + id[:8],
		JobRole:         "QA Engineer",
		ATSScoreGeneral: 55,
		ATSScoreRole:    55,
		AnalysisResult:  datatypes.JSON(`{"success":true}`),
		CreatedAt:       time.Now(),
	}
	msg := &models.OutboxMessage{
		MessageID:        uuid.Must(uuid.NewV4()).String(),
		AggregateID:      id,
		EventType:        "analysis.completed",
		Payload:          `{"analysis_id":"` + id + `"}`,
		TargetExchange:   "analysis.events.exchange",
		TargetRoutingKey: "analysis.completed",
		Status:           models.OutboxStatusPending,
	}
	require.NoError(t, m.CreateAnalysisWithOutbox(ctx, analysis, msg))
	t.Cleanup(func() {
		m.DB().Where("analysis_id = ?", id).Delete(&models.Analysis{})
		m.DB().Where("aggregate_id = ?", id).Delete(&models.OutboxMessage{})
	})

	got, err := m.GetAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "QA Engineer", got.JobRole)

	rows, total, err := m.ListAnalyses(ctx, AnalysisFilter{User: analysis.UserName, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)

	_, err = m.GetAnalysis(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestRedis_ReportCache(t *testing.T) {
	addr := os.Getenv("ATS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ATS_TEST_REDIS_ADDR 未设置，跳过Redis集成测试")
	}
	r, err := NewRedis(&config.RedisConfig{Address: addr, ReportCacheHours: 1})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	id := uuid.Must(uuid.NewV7()).String()
	_, err = r.GetCachedReport(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.CacheReport(ctx, id, []byte(`{"success":true}`)))
	data, err := r.GetCachedReport(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(data))
	assert.Equal(t, time.Hour, r.ReportTTL())
}
