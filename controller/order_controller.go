package controller

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

type OrderController struct {
	Svc *service.CheckoutService
}

func NewOrderController(svc *service.CheckoutService) *OrderController {
	return &OrderController{Svc: svc}
}

// List handles GET /api/orders.
func (oc *OrderController) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	orders, err := oc.Svc.ListUserOrders(ctx, userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	if orders == nil {
		orders = []model.Order{}
	}
	return c.JSON(orders)
}

// Get handles GET /api/orders/:id.
func (oc *OrderController) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}

	userID := c.Locals("user_id").(uint)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := oc.Svc.GetOrder(ctx, uint(id), userID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "order not found"})
		}
		if errors.Is(err, service.ErrNotOwner) {
			return c.Status(403).JSON(fiber.Map{"error": "not the owner"})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(order)
}
