// handlers/admin.go
package handlers

import (
	"strconv"

	"dulp-economy/middleware"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

type reviewRequest struct {
	Status string `json:"status"`
}

func SetupAdminRoutes(secured fiber.Router, engine *services.Engine) {
	// 🔐 role=admin only
	admin := secured.Group("/admin", middleware.RequireAdmin())

	admin.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := engine.Admin.Stats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})

	admin.Get("/withdrawals", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		list, err := engine.Withdrawals.List(c.UserContext(), c.Query("status"), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	admin.Post("/withdrawals/:id/review", func(c *fiber.Ctx) error {
		var req reviewRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		w, err := engine.Withdrawals.ReviewWithdrawal(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "withdrawal": w})
	})

	admin.Get("/fraud-flags", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		flags, err := engine.Admin.FraudFlags(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(flags)
	})

	admin.Get("/ledger/:userId/reconcile", func(c *fiber.Ctx) error {
		rec, err := engine.Ledger.Reconcile(c.UserContext(), c.Params("userId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	})
}
