package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
)

type entitlementResponse struct {
	UserID string `json:"user_id"`
	entitlement.Entitlement
	Features   map[pricing.FeatureKey]bool        `json:"features"`
	Limits     map[pricing.LimitKey]pricing.Limit `json:"limits"`
	Downgraded bool                               `json:"downgraded"`
	Notice     string                             `json:"notice,omitempty"`
	Degraded   bool                               `json:"degraded,omitempty"`
}

func newEntitlementResponse(userID string, res subscriptiondomain.Resolution) entitlementResponse {
	ent := res.Entitlement
	return entitlementResponse{
		UserID:      userID,
		Entitlement: ent,
		Features:    ent.Features(),
		Limits:      ent.Limits(),
		Downgraded:  res.Downgraded,
		Notice:      res.Notice,
		Degraded:    res.Degraded,
	}
}

type featureResponse struct {
	Feature        pricing.FeatureKey `json:"feature"`
	Plan           pricing.Plan       `json:"plan"`
	CanAccess      bool               `json:"can_access"`
	Locked         bool               `json:"locked"`
	UpgradeMessage string             `json:"upgrade_message,omitempty"`
}

func (s *Server) GetMyEntitlements(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	s.respondEntitlements(c, actor.UserID)
}

func (s *Server) GetUserEntitlements(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID != actor.UserID && !isAdmin(actor) {
		AbortWithError(c, ErrForbidden)
		return
	}
	s.respondEntitlements(c, userID)
}

func (s *Server) respondEntitlements(c *gin.Context, userID string) {
	res, err := s.subscriptionSvc.Resolve(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEntitlementResponse(userID, res))
}

func (s *Server) GetMyFeature(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	key, ok := pricing.ParseFeatureKey(c.Param("feature"))
	if !ok {
		AbortWithError(c, newValidationError("feature", "invalid_feature", "unknown feature"))
		return
	}

	res, err := s.subscriptionSvc.Resolve(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ent := res.Entitlement
	out := featureResponse{
		Feature:   key,
		Plan:      ent.CurrentPlan(),
		CanAccess: ent.CanAccess(key),
		Locked:    ent.IsFeatureLocked(key),
	}
	if out.Locked {
		out.UpgradeMessage = ent.UpgradeMessage(string(key))
	}
	c.JSON(http.StatusOK, out)
}
