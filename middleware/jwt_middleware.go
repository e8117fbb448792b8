// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/HSouheill/affiliate_backend/models"
)

const (
	UserTypeAdmin    = "admin"
	UserTypeMarketer = "marketer"
	// UserTypeService is the checkout backend that reports sales.
	UserTypeService = "service"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	// ExpiresAt 0 means the token never expires
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	if c.UserID == "" && c.UserType != UserTypeAdmin {
		return errors.New("token has no user id")
	}
	return nil
}

// Subject is the notification subject the token holder reads from.
func (c JwtCustomClaims) Subject() string {
	if c.UserType == UserTypeAdmin {
		return models.AdminSubject
	}
	return c.UserID
}

// JWTMiddleware returns a configured JWT middleware
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	if secret == "" {
		log.Printf("Warning: JWT_SECRET environment variable is not set")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "JWT configuration error")
			}
		}
	}

	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey: []byte(secret),
		Claims:     &JwtCustomClaims{},
		SuccessHandler: func(c echo.Context) {
			user := c.Get("user").(*jwt.Token)
			claims := user.Claims.(*JwtCustomClaims)

			c.Set("userId", claims.UserID)
			c.Set("userType", claims.UserType)
			c.Set("email", claims.Email)
			c.Set("subjectId", claims.Subject())
		},
		ErrorHandler: func(err error) error {
			log.Printf("JWT middleware error: %v", err)
			if err.Error() == "token contains an invalid number of segments" {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid token format")
			}
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Please provide valid credentials")
		},
	})
}

// GenerateJWT signs a token for the given identity. A zero ttl never expires.
func GenerateJWT(secret, userID, email, userType string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET environment variable is required")
	}
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID:   userID,
		Email:    email,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a raw token outside the echo middleware chain,
// e.g. the first auth event on a websocket.
func ParseToken(secret, raw string) (*JwtCustomClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" || secret == "" {
		return nil, ErrInvalidToken
	}
	claims := &JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUserFromToken extracts user information from JWT token
func GetUserFromToken(c echo.Context) *JwtCustomClaims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// ExtractUserType safely extracts the user type from the context
func ExtractUserType(c echo.Context) string {
	if userType, ok := c.Get("userType").(string); ok && userType != "" {
		return userType
	}
	if claims := GetUserFromToken(c); claims != nil {
		return claims.UserType
	}
	return ""
}

func GetUserIDFromToken(c echo.Context) string {
	if userID, ok := c.Get("userId").(string); ok && userID != "" {
		return userID
	}
	if claims := GetUserFromToken(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetSubjectID returns the notification subject of the authenticated caller.
func GetSubjectID(c echo.Context) string {
	if subject, ok := c.Get("subjectId").(string); ok && subject != "" {
		return subject
	}
	if claims := GetUserFromToken(c); claims != nil {
		return claims.Subject()
	}
	return ""
}
