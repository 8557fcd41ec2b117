// handlers/health.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupHealthRoutes registers /health. Register it before the secured group.
func SetupHealthRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
