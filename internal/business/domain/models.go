// Package domain holds business landing pages and their plan gates.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Business is one landing page owned by a user.
type Business struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	OwnerID       string            `gorm:"type:varchar(128);not null;index" json:"owner_id"`
	Name          string            `gorm:"type:varchar(160);not null" json:"name"`
	Slug          string            `gorm:"type:varchar(180);not null;uniqueIndex" json:"slug"`
	Tagline       string            `gorm:"type:varchar(255)" json:"tagline,omitempty"`
	Description   string            `gorm:"type:text" json:"description,omitempty"`
	Phone         string            `gorm:"type:varchar(32)" json:"phone,omitempty"`
	WhatsApp      string            `gorm:"column:whatsapp;type:varchar(32)" json:"whatsapp,omitempty"`
	Email         string            `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address       string            `gorm:"type:text" json:"address,omitempty"`
	LogoURL       string            `gorm:"type:text" json:"logo_url,omitempty"`
	OwnerPhotoURL string            `gorm:"type:text" json:"owner_photo_url,omitempty"`
	StyleTemplate int               `gorm:"not null;default:0" json:"style_template"`
	ColorScheme   int               `gorm:"not null;default:0" json:"color_scheme"`
	Font          int               `gorm:"not null;default:0" json:"font"`
	LayoutStyle   int               `gorm:"not null;default:0" json:"layout_style"`
	Sections      datatypes.JSONMap `json:"sections,omitempty"`
	// PlanAtCreation is informational; gates always use the owner's live plan.
	PlanAtCreation string    `gorm:"type:varchar(32);not null" json:"plan_at_creation"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }
