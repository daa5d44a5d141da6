package usercontext

import "github.com/gofiber/fiber/v2"

const (
	AuthMethodNone  = ""
	AuthMethodBasic = "basic"
)

// UserContext represents the caller of a request
type UserContext struct {
	Username   string `json:"username"`
	IsAdmin    bool   `json:"is_admin"`
	AuthMethod string `json:"auth_method"`
}

// Set stores the user context for the rest of the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeyUsername, uc.Username)
	c.Locals(KeyIsAdmin, uc.IsAdmin)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{}
}

// IsAdmin checks if the current caller authenticated as an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUsername returns the current caller's name, or empty string if anonymous
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).Username
}
