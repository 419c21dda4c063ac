// Package domain holds the append-only activity log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Well-known actions.
const (
	ActionPlanExpired     = "plan_expired"
	ActionPlanUpdated     = "plan_updated"
	ActionBusinessCreated = "business_created"
	ActionBusinessUpdated = "business_updated"
	ActionBusinessDeleted = "business_deleted"

	ActionAuthorizationDenied = "authorization_denied"
)

const (
	EntityTypeUser     = "user"
	EntityTypeBusiness = "business"
	EntityTypeUnknown  = "unknown"
)

// Entry is one immutable activity record.
type Entry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	UserID     string            `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	EntityType string            `gorm:"type:varchar(64);not null" json:"entity_type"`
	EntityID   *string           `gorm:"type:varchar(128)" json:"entity_id,omitempty"`
	Details    datatypes.JSONMap `json:"details,omitempty"`
	IPAddress  *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (Entry) TableName() string { return "activity_logs" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	UserID     string
	Action     string
	EntityType string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *Cursor
	Limit      int
}
