package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"go.uber.org/zap"
)

type updateUserRequest struct {
	Updates *subscriptiondomain.PlanUpdate `json:"updates"`
}

type userResponse struct {
	User        *subscriptiondomain.User `json:"user"`
	Entitlement entitlement.Entitlement  `json:"entitlement"`
	Downgraded  bool                     `json:"downgraded,omitempty"`
}

type expirationResponse struct {
	UserID       string                  `json:"user_id"`
	Downgraded   bool                    `json:"downgraded"`
	PreviousPlan pricing.Plan            `json:"previous_plan,omitempty"`
	Notice       string                  `json:"notice,omitempty"`
	Entitlement  entitlement.Entitlement `json:"entitlement"`
}

// GetUser is an expiration check site: a lapsed plan is downgraded before the
// row is read so the stored plan and the entitlement agree.
func (s *Server) GetUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	ctx := obscontext.WithTrigger(c.Request.Context(), "admin")

	res, err := s.subscriptionSvc.Resolve(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	user, err := s.subscriptionSvc.GetState(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user, Entitlement: res.Entitlement, Downgraded: res.Downgraded})
}

func (s *Server) UpdateUserPlan(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Updates == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(c.Param("id"))
	user, err := s.subscriptionSvc.UpdatePlan(c.Request.Context(), userID, *req.Updates)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ent, err := s.subscriptionSvc.Entitlement(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := actorFrom(c)
	s.log.Info("plan updated by admin",
		zap.String("user_id", userID),
		zap.String("admin_id", actor.UserID),
		zap.String("plan", string(ent.StoredPlan)),
	)
	c.JSON(http.StatusOK, userResponse{User: user, Entitlement: ent})
}

func (s *Server) ApplyUserExpiration(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	ctx := obscontext.WithTrigger(c.Request.Context(), "admin")

	result, err := s.subscriptionSvc.ApplyExpiration(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, expirationResponse{
		UserID:       userID,
		Downgraded:   result.Downgraded,
		PreviousPlan: result.PreviousPlan,
		Notice:       result.Notice,
		Entitlement:  result.Entitlement,
	})
}
