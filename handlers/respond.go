// handlers/respond.go
package handlers

import (
	"errors"
	"log"

	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindUnauthorized: fiber.StatusUnauthorized,
	services.KindForbidden:    fiber.StatusForbidden,
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindValidation:   fiber.StatusBadRequest,
	services.KindConflict:     fiber.StatusConflict,
	services.KindRateLimited:  fiber.StatusTooManyRequests,
	services.KindAntiCheat:    fiber.StatusUnprocessableEntity,
	services.KindInternal:     fiber.StatusInternalServerError,
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind services.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// respondError writes {"error", "code"} plus any details attached to the error.
// Internal causes are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	ee := services.AsEngineError(err)
	if ee.Kind == services.KindInternal {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{
		"error": ee.Message,
		"code":  ee.Kind,
	}
	for k, v := range ee.Details {
		if k == "cause" {
			continue
		}
		body[k] = v
	}
	return c.Status(StatusFor(ee.Kind)).JSON(body)
}

// ErrorHandler is the fiber.Config ErrorHandler: fiber errors keep their
// status, anything else goes through respondError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": kindForStatus(fe.Code)})
	}
	return respondError(c, err)
}

func kindForStatus(status int) services.ErrorKind {
	for kind, s := range statusByKind {
		if s == status {
			return kind
		}
	}
	if status >= 500 {
		return services.KindInternal
	}
	return services.KindValidation
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
		"code":  services.KindValidation,
	})
}
