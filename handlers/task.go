// handlers/task.go
package handlers

import (
	"dulp-economy/middleware"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

const IdempotencyKeyHeader = "Idempotency-Key"

func SetupTaskRoutes(secured fiber.Router, taskService *services.TaskService) {
	secured.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := taskService.ListActive(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tasks)
	})

	// Retrying with the same Idempotency-Key returns the first answer.
	secured.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		result, err := taskService.CompleteTask(
			c.UserContext(),
			middleware.UserID(c),
			c.Params("id"),
			c.Get(IdempotencyKeyHeader),
		)
		if err != nil {
			return respondError(c, err)
		}
		if result.Replayed {
			c.Set("Idempotent-Replayed", "true")
		}
		return c.JSON(fiber.Map{
			"ok":           true,
			"reward":       result.Reward,
			"newBalance":   result.NewBalance,
			"xpGained":     result.XPGained,
			"currentLevel": result.CurrentLevel,
			"leveledUp":    result.LeveledUp,
		})
	})
}
