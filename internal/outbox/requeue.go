package outbox

import (
	"context"
	"fmt"
	"time"

	"resume-ats-go/internal/storage/models"

	"gorm.io/gorm"
)

// RequeueFailed 把已放弃重试的消息重置为待发布；olderThan 为零值时不按时间过滤
func RequeueFailed(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error) {
	q := db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("status = ?", models.OutboxStatusFailed)
	if !olderThan.IsZero() {
		q = q.Where("created_at < ?", olderThan)
	}

	res := q.Updates(map[string]interface{}{
		"status":        models.OutboxStatusPending,
		"retry_count":   0,
		"error_message": "",
	})
	if res.Error != nil {
		return 0, fmt.Errorf("重置失败的发件箱消息失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}
