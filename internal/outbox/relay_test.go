package outbox

import (
	"errors"
	"testing"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/storage/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPublishResult(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("发布成功", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending, ErrorMessage: "old"}
		applyPublishResult(msg, nil, 5, now)
		assert.Equal(t, models.OutboxStatusSent, msg.Status)
		require.NotNil(t, msg.ProcessedAt)
		assert.Equal(t, now, *msg.ProcessedAt)
		assert.Empty(t, msg.ErrorMessage)
	})

	t.Run("失败后保持待发布", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: 1}
		applyPublishResult(msg, errors.New("channel closed"), 5, now)
		assert.Equal(t, models.OutboxStatusPending, msg.Status)
		assert.Equal(t, 2, msg.RetryCount)
		assert.Equal(t, "channel closed", msg.ErrorMessage)
		assert.Nil(t, msg.ProcessedAt)
	})

	t.Run("达到重试上限标记失败", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: 4}
		applyPublishResult(msg, errors.New("nack"), 5, now)
		assert.Equal(t, models.OutboxStatusFailed, msg.Status)
		assert.Equal(t, 5, msg.RetryCount)
	})
}

func TestNewMessageRelay_Defaults(t *testing.T) {
	r := NewMessageRelay(nil, nil, config.OutboxConfig{}, zerolog.Nop())
	assert.Equal(t, defaultPollingInterval, r.pollingInterval)
	assert.Equal(t, defaultBatchSize, r.batchSize)
	assert.Equal(t, defaultMaxRetries, r.maxRetries)

	r = NewMessageRelay(nil, nil, config.OutboxConfig{PollingInterval: "250ms", BatchSize: 3, MaxRetries: 2}, zerolog.Nop())
	assert.Equal(t, 250*time.Millisecond, r.pollingInterval)
	assert.Equal(t, 3, r.batchSize)
	assert.Equal(t, 2, r.maxRetries)
}

func TestMessageRelay_StopIsIdempotent(t *testing.T) {
	r := NewMessageRelay(nil, nil, config.OutboxConfig{PollingInterval: "1h"}, zerolog.Nop())
	r.Start()
	r.Stop()
	assert.NotPanics(t, r.Stop)
}
