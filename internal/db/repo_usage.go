package db

import (
	"context"
	"log"
	"time"
)

// RecordToolCall persists one audit row. No-op when auditing is disabled.
// Persistence failures are logged, never surfaced to the caller.
func RecordToolCall(ctx context.Context, module, tool string, params map[string]any, elapsed time.Duration, callErr error) {
	if conn == nil {
		return
	}
	row := ToolCallLog{
		Module:     module,
		Tool:       tool,
		Params:     JSONB(params),
		Status:     "ok",
		DurationMS: elapsed.Milliseconds(),
	}
	if callErr != nil {
		row.Status = "error"
		row.Error = callErr.Error()
	}
	if err := conn.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[db] record tool call failed: %v", err)
	}
}

// UsageSummary is aggregate tool usage over a window.
type UsageSummary struct {
	Tool  string
	Calls int64
}

// ToolUsageSince aggregates call counts per tool since the given time.
func ToolUsageSince(ctx context.Context, since time.Time) ([]UsageSummary, error) {
	if conn == nil {
		return nil, nil
	}
	var out []UsageSummary
	err := conn.WithContext(ctx).
		Model(&ToolCallLog{}).
		Select("tool, count(*) as calls").
		Where("created_at >= ?", since).
		Group("tool").
		Order("calls desc").
		Scan(&out).Error
	return out, err
}
