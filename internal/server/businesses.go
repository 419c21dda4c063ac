package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"gorm.io/datatypes"
)

// publicBusiness is the landing page as served to visitors.
type publicBusiness struct {
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Tagline       string            `json:"tagline,omitempty"`
	Description   string            `json:"description,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	WhatsApp      string            `json:"whatsapp,omitempty"`
	Email         string            `json:"email,omitempty"`
	Address       string            `json:"address,omitempty"`
	LogoURL       string            `json:"logo_url,omitempty"`
	OwnerPhotoURL string            `json:"owner_photo_url,omitempty"`
	StyleTemplate int               `json:"style_template"`
	ColorScheme   int               `json:"color_scheme"`
	Font          int               `json:"font"`
	LayoutStyle   int               `json:"layout_style"`
	Sections      datatypes.JSONMap `json:"sections,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toPublicBusiness(b *businessdomain.Business) publicBusiness {
	return publicBusiness{
		Name:          b.Name,
		Slug:          b.Slug,
		Tagline:       b.Tagline,
		Description:   b.Description,
		Phone:         b.Phone,
		WhatsApp:      b.WhatsApp,
		Email:         b.Email,
		Address:       b.Address,
		LogoURL:       b.LogoURL,
		OwnerPhotoURL: b.OwnerPhotoURL,
		StyleTemplate: b.StyleTemplate,
		ColorScheme:   b.ColorScheme,
		Font:          b.Font,
		LayoutStyle:   b.LayoutStyle,
		Sections:      b.Sections,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (s *Server) ListBusinesses(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	items, err := s.businessSvc.ListByOwner(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"businesses": items})
}

func (s *Server) CreateBusiness(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req businessdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	business, err := s.businessSvc.Create(c.Request.Context(), actor.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, business)
}

func (s *Server) GetBusiness(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	business, err := s.businessSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if business.OwnerID != actor.UserID && !isAdmin(actor) {
		AbortWithError(c, businessdomain.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, business)
}

func (s *Server) UpdateBusiness(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req businessdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	business, err := s.businessSvc.Update(c.Request.Context(), actor.UserID, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, business)
}

func (s *Server) DeleteBusiness(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if err := s.businessSvc.Delete(c.Request.Context(), actor.UserID, strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetPublicBusiness(c *gin.Context) {
	business, err := s.businessSvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicBusiness(business))
}
