package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"github.com/smallbiznis/bizplannaija/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  activitydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  activitydomain.Repository
}

func NewService(p Params) activitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req activitydomain.RecordRequest) (*activitydomain.Entry, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, activitydomain.ErrInvalidAction
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, activitydomain.ErrInvalidUser
	}
	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" {
		entityType = activitydomain.EntityTypeUnknown
	}

	details := map[string]any{}
	for key, value := range req.Details {
		if key == "" {
			continue
		}
		details[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		details["request_id"] = requestID
	}

	entry := activitydomain.Entry{
		ID:         s.genID.Generate(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   optionalString(req.EntityID),
		Details:    datatypes.JSONMap(details),
		CreatedAt:  s.clock.Now().UTC(),
	}
	ipAddress, userAgent := obscontext.ClientFromContext(ctx)
	entry.IPAddress = optionalString(ipAddress)
	entry.UserAgent = optionalString(userAgent)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity entry",
			zap.String("action", action),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return &entry, nil
}

func (s *Service) List(ctx context.Context, req activitydomain.ListRequest) (activitydomain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return activitydomain.ListResponse{}, activitydomain.ErrInvalidTimeRange
	}

	var cursor *activitydomain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return activitydomain.ListResponse{}, activitydomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return activitydomain.ListResponse{}, activitydomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(decoded.ID)
		if err != nil || id == 0 {
			return activitydomain.ListResponse{}, activitydomain.ErrInvalidPageToken
		}
		cursor = &activitydomain.Cursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := pagination.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, activitydomain.ListFilter{
		UserID:     req.UserID,
		Action:     req.Action,
		EntityType: req.EntityType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return activitydomain.ListResponse{}, err
	}

	items, pageInfo, err := pagination.Trim(items, pageSize, func(item *activitydomain.Entry) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return activitydomain.ListResponse{}, err
	}

	entries := make([]activitydomain.Entry, 0, len(items))
	for _, item := range items {
		if item != nil {
			entries = append(entries, *item)
		}
	}
	return activitydomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
