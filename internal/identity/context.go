package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// GetUserID returns the authenticated caller, or "" when the request was not
// authenticated.
func GetUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(userIDKey).(string); ok {
		return id
	}
	return ""
}

func SetUserID(c *fiber.Ctx, id string) {
	c.Locals(userIDKey, id)
}

// Owner is the report owner for the current request. Nil means no scoping.
func Owner(c *fiber.Ctx) *string {
	id := GetUserID(c)
	if id == "" {
		return nil
	}
	return &id
}

// SubjectFromToken extracts the sub claim from a parsed JWT.
func SubjectFromToken(token *jwt.Token) (string, error) {
	if token == nil {
		return "", errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}
