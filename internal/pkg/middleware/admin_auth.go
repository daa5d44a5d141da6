package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/usercontext"
)

const adminRealm = "CreatorPay Admin"

// AdminCredentials holds the operator login. PasswordHash is a bcrypt hash.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

func LoadAdminCredentials() AdminCredentials {
	return AdminCredentials{
		Username:     env.GetEnv("ADMIN_USER", "admin"),
		PasswordHash: env.GetEnv("ADMIN_PASSWORD_HASH", ""),
	}
}

// Verify reports whether username and password match the credentials.
func (a AdminCredentials) Verify(username, password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}

// AdminAuth protects admin routes with HTTP basic auth and marks the request
// as an admin request on success.
func AdminAuth(creds AdminCredentials) fiber.Handler {
	if creds.PasswordHash == "" {
		log.Warn("[Middleware] ADMIN_PASSWORD_HASH not set, admin API disabled")
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin API disabled"})
		}
	}

	return basicauth.New(basicauth.Config{
		Realm:      adminRealm,
		Authorizer: creds.Verify,
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `basic realm="`+adminRealm+`"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		},
	})
}

// AdminContext runs after AdminAuth and records the authenticated operator.
func AdminContext(c *fiber.Ctx) error {
	name, _ := c.Locals("username").(string)
	usercontext.Set(c, usercontext.UserContext{
		Username:   name,
		IsAdmin:    name != "",
		AuthMethod: usercontext.AuthMethodBasic,
	})
	return c.Next()
}

// RequireAdmin rejects requests without an admin user context.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	return c.Next()
}
