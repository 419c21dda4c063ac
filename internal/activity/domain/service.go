package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/bizplannaija/pkg/db/pagination"
)

type RecordRequest struct {
	UserID     string         `json:"userId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Details    map[string]any `json:"details"`
}

type ListRequest struct {
	pagination.Pagination
	UserID     string     `form:"user_id"`
	Action     string     `form:"action"`
	EntityType string     `form:"entity_type"`
	StartAt    *time.Time `form:"start_at" time_format:"2006-01-02T15:04:05Z07:00"`
	EndAt      *time.Time `form:"end_at" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListResponse struct {
	pagination.PageInfo
	Entries []Entry `json:"entries"`
}

// Service appends to and reads the activity log.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Entry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
