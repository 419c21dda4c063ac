package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"github.com/smallbiznis/bizplannaija/internal/cache"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/pkg/db"
	"github.com/smallbiznis/bizplannaija/pkg/db/option"
	"github.com/smallbiznis/bizplannaija/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	fallbackSlug    = "business"
	maxSlugAttempts = 50
	maxSlugLength   = 120

	createLockPrefix = "business:create:"
	createLockTTL    = 10 * time.Second
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Validate        *validator.Validate
	SubscriptionSvc subscriptiondomain.Service
	ActivitySvc     activitydomain.Service
	Cache           cache.BusinessCache `optional:"true"`
	Lock            ratelimit.Lock      `optional:"true"`
}

type Service struct {
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	validate        *validator.Validate
	store           repository.Repository[businessdomain.Business]
	subscriptionSvc subscriptiondomain.Service
	activitySvc     activitydomain.Service
	cache           cache.BusinessCache
	lock            ratelimit.Lock
	createLocks     *ownerLocks
}

func NewService(p Params) businessdomain.Service {
	validate := p.Validate
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Service{
		log:             p.Log.Named("business.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		validate:        validate,
		store:           repository.ProvideStore[businessdomain.Business](p.DB),
		subscriptionSvc: p.SubscriptionSvc,
		activitySvc:     p.ActivitySvc,
		cache:           p.Cache,
		lock:            p.Lock,
		createLocks:     newOwnerLocks(),
	}
}

func (s *Service) Create(ctx context.Context, ownerID string, req businessdomain.CreateRequest) (*businessdomain.Business, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, businessdomain.ErrInvalidOwner
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, err
	}

	// The page count and the insert must not interleave with another create
	// for the same owner, here or on another replica.
	release := s.createLocks.acquire(ownerID)
	defer release()

	var business *businessdomain.Business
	err := ratelimit.WithLock(ctx, s.lock, createLockPrefix+ownerID, createLockTTL, func(ctx context.Context) error {
		var err error
		business, err = s.create(ctx, ownerID, req)
		return err
	})
	if errors.Is(err, ratelimit.ErrLockNotAcquired) {
		return nil, businessdomain.ErrCreateInProgress
	}
	if err != nil {
		return nil, err
	}
	return business, nil
}

func (s *Service) create(ctx context.Context, ownerID string, req businessdomain.CreateRequest) (*businessdomain.Business, error) {
	res, err := s.subscriptionSvc.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ent := res.Entitlement
	g := gate{ent: &ent}

	count, err := s.store.Count(ctx, &businessdomain.Business{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("count businesses: %w", err)
	}
	if err := g.landingPages(int(count)); err != nil {
		return nil, err
	}
	if err := g.create(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	business := &businessdomain.Business{
		ID:             s.genID.Generate(),
		OwnerID:        ownerID,
		Name:           req.Name,
		Tagline:        strings.TrimSpace(req.Tagline),
		Description:    strings.TrimSpace(req.Description),
		Phone:          strings.TrimSpace(req.Phone),
		WhatsApp:       strings.TrimSpace(req.WhatsApp),
		Email:          strings.TrimSpace(req.Email),
		Address:        strings.TrimSpace(req.Address),
		LogoURL:        strings.TrimSpace(req.LogoURL),
		OwnerPhotoURL:  strings.TrimSpace(req.OwnerPhotoURL),
		StyleTemplate:  req.StyleTemplate,
		ColorScheme:    req.ColorScheme,
		Font:           req.Font,
		LayoutStyle:    req.LayoutStyle,
		Sections:       datatypes.JSONMap(req.Sections),
		PlanAtCreation: string(ent.CurrentPlan()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.insert(ctx, business); err != nil {
		return nil, err
	}

	s.log.Info("created business",
		zap.String("owner_id", ownerID),
		zap.String("business_id", business.ID.String()),
		zap.String("slug", business.Slug),
	)
	s.record(ctx, ownerID, activitydomain.ActionBusinessCreated, business, map[string]any{
		"name": business.Name,
		"slug": business.Slug,
		"plan": business.PlanAtCreation,
	})
	return business, nil
}

// insert picks a free slug and retries once if a concurrent create took it.
func (s *Service) insert(ctx context.Context, business *businessdomain.Business) error {
	for attempt := 0; attempt < 2; attempt++ {
		candidate, err := s.uniqueSlug(ctx, business.Name)
		if err != nil {
			return err
		}
		business.Slug = candidate
		err = s.store.Create(ctx, business)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("create business: %w", err)
		}
	}
	return businessdomain.ErrSlugUnavailable
}

func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if len(base) > maxSlugLength {
		base = strings.Trim(base[:maxSlugLength], "-")
	}
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	for n := 2; n <= maxSlugAttempts+1; n++ {
		taken, err := s.store.Exists(ctx, &businessdomain.Business{Slug: candidate})
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
	return "", businessdomain.ErrSlugUnavailable
}

func (s *Service) Get(ctx context.Context, id string) (*businessdomain.Business, error) {
	businessID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	business, err := s.store.FindOne(ctx, &businessdomain.Business{ID: businessID})
	if err != nil {
		return nil, fmt.Errorf("find business: %w", err)
	}
	if business == nil {
		return nil, businessdomain.ErrNotFound
	}
	return business, nil
}

func (s *Service) GetBySlug(ctx context.Context, rawSlug string) (*businessdomain.Business, error) {
	key := strings.ToLower(strings.TrimSpace(rawSlug))
	if key == "" {
		return nil, businessdomain.ErrNotFound
	}
	if s.cache != nil {
		if cached, ok := s.cache.GetBySlug(key); ok {
			return &cached, nil
		}
	}

	business, err := s.store.FindOne(ctx, &businessdomain.Business{Slug: key})
	if err != nil {
		return nil, fmt.Errorf("find business: %w", err)
	}
	if business == nil {
		return nil, businessdomain.ErrNotFound
	}
	if s.cache != nil {
		s.cache.SetBySlug(*business)
	}
	return business, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]businessdomain.Business, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, businessdomain.ErrInvalidOwner
	}
	rows, err := s.store.Find(ctx, &businessdomain.Business{OwnerID: ownerID}, option.OrderBy("created_at asc", "id asc"))
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	items := make([]businessdomain.Business, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row)
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, req businessdomain.UpdateRequest) (*businessdomain.Business, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, businessdomain.ErrInvalidName
	}
	business, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	res, err := s.subscriptionSvc.Resolve(ctx, business.OwnerID)
	if err != nil {
		return nil, err
	}
	ent := res.Entitlement
	if err := (gate{ent: &ent}).update(req); err != nil {
		return nil, err
	}

	fields := updateFields(req)
	if len(fields) == 0 {
		return business, nil
	}
	fields["updated_at"] = s.clock.Now()

	if _, err := s.store.Update(ctx, business.ID, fields); err != nil {
		return nil, fmt.Errorf("update business: %w", err)
	}
	s.invalidate(business.Slug)

	changed := make([]string, 0, len(fields))
	for column := range fields {
		if column != "updated_at" {
			changed = append(changed, column)
		}
	}
	s.record(ctx, business.OwnerID, activitydomain.ActionBusinessUpdated, business, map[string]any{
		"fields": changed,
	})

	return s.Get(ctx, business.ID.String())
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	business, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	rows, err := s.store.Delete(ctx, business.ID)
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	if rows == 0 {
		return businessdomain.ErrNotFound
	}
	s.invalidate(business.Slug)

	s.log.Info("deleted business",
		zap.String("owner_id", business.OwnerID),
		zap.String("business_id", business.ID.String()),
	)
	s.record(ctx, business.OwnerID, activitydomain.ActionBusinessDeleted, business, map[string]any{
		"name": business.Name,
		"slug": business.Slug,
	})
	return nil
}

// owned loads id and checks it belongs to ownerID.
func (s *Service) owned(ctx context.Context, ownerID, id string) (*businessdomain.Business, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, businessdomain.ErrInvalidOwner
	}
	business, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != ownerID {
		return nil, businessdomain.ErrForbidden
	}
	return business, nil
}

func (s *Service) invalidate(slugs ...string) {
	if s.cache != nil {
		s.cache.Invalidate(slugs...)
	}
}

func (s *Service) record(ctx context.Context, userID, action string, business *businessdomain.Business, details map[string]any) {
	if _, err := s.activitySvc.Record(ctx, activitydomain.RecordRequest{
		UserID:     userID,
		Action:     action,
		EntityType: activitydomain.EntityTypeBusiness,
		EntityID:   business.ID.String(),
		Details:    details,
	}); err != nil {
		s.log.Warn("failed to record business activity",
			zap.String("action", action),
			zap.String("business_id", business.ID.String()),
			zap.Error(err),
		)
	}
}

func updateFields(req businessdomain.UpdateRequest) map[string]any {
	fields := map[string]any{}
	setText := func(column string, value *string) {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	setInt := func(column string, value *int) {
		if value != nil {
			fields[column] = *value
		}
	}

	setText("name", req.Name)
	setText("tagline", req.Tagline)
	setText("description", req.Description)
	setText("phone", req.Phone)
	setText("whatsapp", req.WhatsApp)
	setText("email", req.Email)
	setText("address", req.Address)
	setText("logo_url", req.LogoURL)
	setText("owner_photo_url", req.OwnerPhotoURL)
	setInt("style_template", req.StyleTemplate)
	setInt("color_scheme", req.ColorScheme)
	setInt("font", req.Font)
	setInt("layout_style", req.LayoutStyle)
	if req.Sections != nil {
		fields["sections"] = datatypes.JSONMap(req.Sections)
	}
	return fields
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, businessdomain.ErrInvalidID
	}
	return id, nil
}
