// handlers/profile_routes.go
package handlers

import (
	"strconv"

	"dulp-economy/middleware"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

type codeRequest struct {
	Code string `json:"code"`
}

type profileUpdateRequest struct {
	DisplayName string `json:"displayName"`
}

func SetupProfileRoutes(secured fiber.Router, engine *services.Engine) {
	secured.Get("/me", func(c *fiber.Ctx) error {
		me, err := engine.Profiles.Me(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(me)
	})

	secured.Patch("/me", func(c *fiber.Ctx) error {
		var req profileUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		prof, err := engine.Profiles.UpdateDisplayName(c.UserContext(), middleware.UserID(c), req.DisplayName)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "profile": prof})
	})

	secured.Get("/me/transactions", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		txs, err := engine.Ledger.History(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(txs)
	})

	secured.Post("/activation", func(c *fiber.Ctx) error {
		var req codeRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		if err := engine.Activation.Activate(c.UserContext(), middleware.UserID(c), req.Code); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "message": "Account successfully activated!"})
	})

	// 🤝 Referral codes
	secured.Post("/referrals/validate", func(c *fiber.Ctx) error {
		var req codeRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		check, err := engine.Referrals.Validate(c.UserContext(), middleware.UserID(c), req.Code)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(check)
	})

	secured.Post("/referrals/apply", func(c *fiber.Ctx) error {
		var req codeRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		check, err := engine.Referrals.Apply(c.UserContext(), middleware.UserID(c), req.Code)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":           true,
			"message":      "Referral code applied successfully!",
			"referrerName": check.ReferrerName,
		})
	})

	secured.Get("/referrals/stats", func(c *fiber.Ctx) error {
		stats, err := engine.Referrals.Stats(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})
}
