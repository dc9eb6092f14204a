package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
)

type ShippingController struct {
	Client *gateway.ShippingClient
}

func NewShippingController(client *gateway.ShippingClient) *ShippingController {
	return &ShippingController{Client: client}
}

// Cost handles POST /api/shipping/cost, the rate quote the buyer picks a
// service from before submitting checkout.
func (sc *ShippingController) Cost(c *fiber.Ctx) error {
	var body struct {
		Origin      uint   `json:"origin"`
		Destination uint   `json:"destination"`
		Weight      int    `json:"weight"`
		Courier     string `json:"courier"`
	}

	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := sc.Client.Cost(ctx, gateway.CostRequest{
		Origin:      body.Origin,
		Destination: body.Destination,
		Weight:      body.Weight,
		Courier:     body.Courier,
	})
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": err.Error()})
	}

	if results == nil {
		results = []gateway.CostResult{}
	}
	return c.JSON(results)
}
