package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/voxsplit/api/pkg/response"
)

// AuthMiddleware validates bearer tokens issued by the frontend
// gateway. When no secret is configured the API runs open, which is
// the normal single-user deployment.
type AuthMiddleware struct {
	jwtSecret string
}

type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Enabled reports whether token validation is active.
func (m *AuthMiddleware) Enabled() bool {
	return m.jwtSecret != ""
}

// Authenticate validates the JWT from the Authorization header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.Enabled() {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		token, err := jwt.ParseWithClaims(parts[1], &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.jwtSecret), nil
		})
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(*UserClaims)
		if !ok || !token.Valid {
			return response.Unauthorized(c, "Invalid token claims")
		}

		c.Locals("userId", claims.UserID)
		return c.Next()
	}
}

// GetUserID extracts the authenticated user ID, if any.
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
