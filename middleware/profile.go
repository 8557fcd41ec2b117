// dulp-economy/middleware/profile.go
package middleware

import (
	"log"

	"dulp-economy/models"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

const LocalProfile = "profile"

// ProfileMiddleware creates the caller's profile on first authenticated access
// and stores it in c.Locals. It must run after UserContextMiddleware.
func ProfileMiddleware(profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prof, err := profiles.EnsureProfile(c.UserContext(), UserID(c), DisplayName(c))
		if err != nil {
			ee := services.AsEngineError(err)
			log.Printf("❌ [PROFILE] bootstrap failed for %s: %v", UserID(c), err)
			status := fiber.StatusInternalServerError
			if ee.Kind == services.KindUnauthorized {
				status = fiber.StatusUnauthorized
			}
			return c.Status(status).JSON(fiber.Map{"error": ee.Message, "code": ee.Kind})
		}
		c.Locals(LocalProfile, prof)
		return c.Next()
	}
}

// Profile returns the profile loaded by ProfileMiddleware.
func Profile(c *fiber.Ctx) *models.Profile {
	prof, _ := c.Locals(LocalProfile).(*models.Profile)
	return prof
}

// RequireAdmin lets through callers whose identity carries the admin role or
// whose profile is marked admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, r := range Roles(c) {
			if r == models.RoleAdmin {
				return c.Next()
			}
		}
		if prof := Profile(c); prof != nil && prof.Role == models.RoleAdmin {
			return c.Next()
		}
		log.Printf("🚫 [ADMIN] %s denied on %s", UserID(c), c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden - not admin",
			"code":  services.KindForbidden,
		})
	}
}
