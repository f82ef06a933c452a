package middleware

import (
	"context"
	"strings"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/config"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/identity"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

// TokenVerifier checks a bearer token and returns the caller's user id.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

// Auth picks the strategy for cfg.AuthMode. verifier is only used for
// AUTH_MODE=oidc.
func Auth(cfg *config.Config, verifier TokenVerifier) fiber.Handler {
	switch cfg.AuthMode {
	case config.AuthJWT:
		return JWTProtected(cfg)
	case config.AuthOIDC:
		return BearerProtected(verifier)
	default:
		return Anonymous()
	}
}

// Anonymous leaves requests unauthenticated; reports are not scoped.
func Anonymous() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}

// JWTProtected accepts HS256 tokens signed with JWT_SECRET. The sub claim
// becomes the user id.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, _ := c.Locals("user").(*jwt.Token)
			sub, err := identity.SubjectFromToken(token)
			if err != nil {
				return unauthorized(c)
			}
			identity.SetUserID(c, sub)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// BearerProtected delegates token verification to an external identity
// provider.
func BearerProtected(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok || verifier == nil {
			return unauthorized(c)
		}
		userID, err := verifier.Verify(c.UserContext(), raw)
		if err != nil || userID == "" {
			return unauthorized(c)
		}
		identity.SetUserID(c, userID)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(contract.ErrorResponse{
		Error:   true,
		Message: "Unauthorized: invalid or expired token",
	})
}
