package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB stores arbitrary JSON in a postgres jsonb column.
type JSONB map[string]any

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(data, j)
}

// ToolCallLog is one audit row per executed tool call.
type ToolCallLog struct {
	ID         uint   `gorm:"primaryKey"`
	Module     string `gorm:"size:64;index"`
	Tool       string `gorm:"size:128;index"`
	Params     JSONB  `gorm:"type:jsonb"`
	Status     string `gorm:"size:16"`
	Error      string
	DurationMS int64
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides gorm's default pluralization.
func (ToolCallLog) TableName() string { return "tool_call_logs" }
