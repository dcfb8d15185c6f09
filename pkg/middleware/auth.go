package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
)

const (
	// ContextKeyUserID holds the authenticated user id
	ContextKeyUserID = "user_id"
	// ContextKeyRoles holds the authenticated user's roles
	ContextKeyRoles = "roles"
)

var errMissingBearer = errors.New("missing bearer token")

// Claims is the access token payload issued by the auth service
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	Secret []byte
	Issuer string
}

// ParseToken verifies an HS256 access token and returns its claims
func (cfg AuthConfig) ParseToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// JWTAuth rejects requests without a valid bearer token and stores the
// subject and roles on the gin context.
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Failure("UNAUTHORIZED", err.Error()))
			return
		}

		claims, err := cfg.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Failure("UNAUTHORIZED", "invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyRoles, claims.Roles)
		c.Next()
	}
}

// RequireRoles allows the request through when the caller has any of roles
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasAnyRole(c, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Failure("FORBIDDEN", "insufficient role"))
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}

// GetRoles returns the authenticated user's roles
func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(ContextKeyRoles)
}

// HasAnyRole reports whether the caller holds one of roles
func HasAnyRole(c *gin.Context, roles ...string) bool {
	for _, have := range GetRoles(c) {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingBearer
	}
	return strings.TrimSpace(token), nil
}
