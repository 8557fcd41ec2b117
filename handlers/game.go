// handlers/game.go
package handlers

import (
	"sort"

	"dulp-economy/middleware"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

type startGameRequest struct {
	GameType string `json:"gameType"`
}

type endGameRequest struct {
	SessionID string `json:"sessionId"`
	Score     *int64 `json:"score"`
}

func SetupGameRoutes(secured fiber.Router, gameService *services.GameService) {
	secured.Get("/games", func(c *fiber.Ctx) error {
		games := make([]fiber.Map, 0, len(gameService.Games.LevelGates))
		for gameType, level := range gameService.Games.LevelGates {
			games = append(games, fiber.Map{
				"gameType":           gameType,
				"requiredLevel":      level,
				"activationRequired": gameService.Games.ActivationRequired[gameType],
			})
		}
		sort.Slice(games, func(i, j int) bool {
			return games[i]["requiredLevel"].(int) < games[j]["requiredLevel"].(int)
		})
		return c.JSON(games)
	})

	secured.Post("/games/start", func(c *fiber.Ctx) error {
		var req startGameRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		session, err := gameService.StartGame(c.UserContext(), middleware.UserID(c), req.GameType)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "sessionId": session.ID})
	})

	secured.Post("/games/end", func(c *fiber.Ctx) error {
		var req endGameRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		if req.SessionID == "" || req.Score == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing parameters",
				"code":  services.KindValidation,
			})
		}
		result, err := gameService.EndGame(c.UserContext(), middleware.UserID(c), req.SessionID, *req.Score)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":           true,
			"reward":       result.Reward,
			"score":        result.Score,
			"xpGained":     result.XPGained,
			"currentLevel": result.CurrentLevel,
			"leveledUp":    result.LeveledUp,
		})
	})
}
