package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

type WebhookController struct {
	Svc *service.WebhookService
}

func NewWebhookController(svc *service.WebhookService) *WebhookController {
	return &WebhookController{Svc: svc}
}

// Notification handles POST /api/payment/notification. The gateway retries on
// any non-200, so persistence failures return 500 to get the notification
// redelivered, while benign no-ops return 200 to stop retry storms.
func (wc *WebhookController) Notification(c *fiber.Ctx) error {
	var n service.Notification
	if err := c.BodyParser(&n); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid notification body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := wc.Svc.Process(ctx, n); err != nil {
		if errors.Is(err, service.ErrSignatureMismatch) {
			return c.Status(403).JSON(fiber.Map{"error": "invalid signature"})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "notification processed"})
}
