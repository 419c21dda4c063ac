// Package authorization decides which role may perform which action, backed
// by a casbin RBAC enforcer persisted through gorm.
package authorization

import (
	"context"
	"errors"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ObjectUsers        = "users"
	ObjectEntitlements = "entitlements"
	ObjectActivity     = "activity"
	ObjectBusinesses   = "businesses"
)

const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionUpdate = "update"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   string
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
