// handlers/wallet.go
package handlers

import (
	"dulp-economy/middleware"
	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

type withdrawalRequest struct {
	Amount  int64  `json:"amount"`
	Address string `json:"address"`
}

func SetupWalletRoutes(secured fiber.Router, withdrawals *services.WithdrawalService, store *services.StoreService) {
	secured.Post("/withdrawals", func(c *fiber.Ctx) error {
		var req withdrawalRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		result, err := withdrawals.RequestWithdrawal(c.UserContext(), middleware.UserID(c), req.Amount, req.Address)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":           true,
			"withdrawalId": result.WithdrawalID,
			"newBalance":   result.NewBalance,
			"message":      result.Message,
		})
	})

	secured.Get("/withdrawals", func(c *fiber.Ctx) error {
		list, err := withdrawals.ForUser(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/store", func(c *fiber.Ctx) error {
		items, err := store.ListItems(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	})

	secured.Post("/store/:id/purchase", func(c *fiber.Ctx) error {
		result, err := store.Purchase(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":         true,
			"newBalance": result.NewBalance,
			"item":       result.Item,
			"boost":      result.Boost,
		})
	})
}
