// handlers/leaderboard.go
package handlers

import (
	"strconv"

	"dulp-economy/models"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(secured fiber.Router, leaderboard *services.LeaderboardService) {
	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		period := c.Query("period", models.PeriodAllTime)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		rows, err := leaderboard.Top(c.UserContext(), period, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"period": period, "entries": rows})
	})
}
