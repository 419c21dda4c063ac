package domain

import (
	"context"
	"errors"
)

// CreateRequest is the body of POST /api/businesses.
type CreateRequest struct {
	Name          string         `json:"name" validate:"required,min=2,max=160"`
	Tagline       string         `json:"tagline" validate:"max=255"`
	Description   string         `json:"description" validate:"max=5000"`
	Phone         string         `json:"phone" validate:"omitempty,max=32"`
	WhatsApp      string         `json:"whatsapp" validate:"omitempty,max=32"`
	Email         string         `json:"email" validate:"omitempty,email"`
	Address       string         `json:"address" validate:"max=1000"`
	LogoURL       string         `json:"logoUrl" validate:"omitempty,url"`
	OwnerPhotoURL string         `json:"ownerPhotoUrl" validate:"omitempty,url"`
	StyleTemplate int            `json:"styleTemplate" validate:"gte=0"`
	ColorScheme   int            `json:"colorScheme" validate:"gte=0"`
	Font          int            `json:"font" validate:"gte=0"`
	LayoutStyle   int            `json:"layoutStyle" validate:"gte=0"`
	Sections      map[string]any `json:"sections"`
}

// UpdateRequest is a partial update; nil fields are left unchanged and an
// empty string clears the field.
type UpdateRequest struct {
	Name          *string        `json:"name" validate:"omitempty,min=2,max=160"`
	Tagline       *string        `json:"tagline" validate:"omitempty,max=255"`
	Description   *string        `json:"description" validate:"omitempty,max=5000"`
	Phone         *string        `json:"phone" validate:"omitempty,max=32"`
	WhatsApp      *string        `json:"whatsapp" validate:"omitempty,max=32"`
	Email         *string        `json:"email" validate:"omitempty,email|len=0"`
	Address       *string        `json:"address" validate:"omitempty,max=1000"`
	LogoURL       *string        `json:"logoUrl" validate:"omitempty,url|len=0"`
	OwnerPhotoURL *string        `json:"ownerPhotoUrl" validate:"omitempty,url|len=0"`
	StyleTemplate *int           `json:"styleTemplate" validate:"omitempty,gte=0"`
	ColorScheme   *int           `json:"colorScheme" validate:"omitempty,gte=0"`
	Font          *int           `json:"font" validate:"omitempty,gte=0"`
	LayoutStyle   *int           `json:"layoutStyle" validate:"omitempty,gte=0"`
	Sections      map[string]any `json:"sections"`
}

type Service interface {
	Create(ctx context.Context, ownerID string, req CreateRequest) (*Business, error)
	Get(ctx context.Context, id string) (*Business, error)
	GetBySlug(ctx context.Context, slug string) (*Business, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Business, error)
	Update(ctx context.Context, ownerID, id string, req UpdateRequest) (*Business, error)
	Delete(ctx context.Context, ownerID, id string) error
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidID       = errors.New("invalid_business_id")
	ErrInvalidName     = errors.New("invalid_business_name")
	ErrNotFound        = errors.New("business_not_found")
	ErrForbidden       = errors.New("business_forbidden")
	ErrLimitReached    = errors.New("landing_page_limit_reached")
	ErrOptionLocked    = errors.New("option_locked")
	ErrFeatureLocked   = errors.New("feature_locked")
	ErrSlugUnavailable = errors.New("slug_unavailable")
	// ErrCreateInProgress is returned while another instance holds the
	// owner's create lock.
	ErrCreateInProgress = errors.New("business_create_in_progress")
)
