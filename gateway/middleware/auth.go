package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

const principalKey = "principal"

// Claims carries the caller identity. The user id is read from user_id and
// falls back to the standard subject claim.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator 校验 HS256 签名的 JWT 并解析出调用者身份
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Issue signs a token for p. Used by the dev token command and tests.
func (v *TokenValidator) Issue(p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID.String(),
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *TokenValidator) Validate(token string) (models.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Principal{}, err
	}
	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid user id claim: %w", err)
	}
	role, err := models.ParseUserRole(claims.Role)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{UserID: userID, Role: role}, nil
}

// JWTAuth 中间件：提取 Bearer token -> 本地校验 -> 注入 principal.
// Direct file links cannot set headers, so ?token= is accepted as well.
func (v *TokenValidator) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		p, err := v.Validate(token)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		c.Set(principalKey, p)
		c.Set("user_id", p.UserID.String())
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed Authorization header")
		}
		return strings.TrimSpace(token), nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", errors.New("missing Authorization header")
}

// PrincipalFrom returns the caller set by JWTAuth.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "Unauthenticated", "message": msg}})
}
