package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/bizplannaija/internal/authorization"
	obscontext "github.com/smallbiznis/bizplannaija/internal/observability/context"
	"go.uber.org/zap"
)

const actorContextKey = "actor"

var (
	errTokenNotConfigured = errors.New("token verification is not configured")
	errTokenSubject       = errors.New("token has no subject")
)

// Claims is the bearer token payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenVerifier checks HS256 bearer tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
}

func (v *TokenVerifier) Verify(raw string) (authorization.Actor, error) {
	if v == nil || len(v.secret) == 0 {
		return authorization.Actor{}, errTokenNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return authorization.Actor{}, err
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return authorization.Actor{}, errTokenSubject
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = authorization.RoleUser
	}
	return authorization.Actor{UserID: subject, Role: role}, nil
}

// Issue signs a token for actor. Used by tooling and tests.
func (v *TokenVerifier) Issue(actor authorization.Actor, ttl time.Duration) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", errTokenNotConfigured
	}
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: actor.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.tokens.Verify(raw)
		if err != nil {
			s.log.Debug("rejected bearer token", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithUser(c.Request.Context(), actor.UserID, actor.Role))
		c.Next()
	}
}

// authorize enforces the role policy for object/action on the caller.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (authorization.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return authorization.Actor{}, false
	}
	actor, ok := v.(authorization.Actor)
	return actor, ok && actor.UserID != ""
}

func isAdmin(actor authorization.Actor) bool {
	return actor.Role == authorization.RoleAdmin
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
