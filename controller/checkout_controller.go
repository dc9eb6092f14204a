package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

type CheckoutController struct {
	Svc *service.CheckoutService
}

func NewCheckoutController(svc *service.CheckoutService) *CheckoutController {
	return &CheckoutController{Svc: svc}
}

type shippingChoice struct {
	MerchantID     uint   `json:"merchant_id"`
	CourierCode    string `json:"courier_code"`
	CourierService string `json:"courier_service"`
	Cost           int64  `json:"cost"`
}

// Create handles POST /api/checkout.
func (cc *CheckoutController) Create(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var body struct {
		AddressID uint             `json:"address_id"`
		CouponID  *uint            `json:"coupon_id"`
		Shipping  []shippingChoice `json:"shipping"`
	}

	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.AddressID == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "address_id is required"})
	}

	selections := make(map[uint]service.ShippingSelection, len(body.Shipping))
	for _, s := range body.Shipping {
		selections[s.MerchantID] = service.ShippingSelection{
			CourierCode:    s.CourierCode,
			CourierService: s.CourierService,
			Cost:           s.Cost,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := cc.Svc.Checkout(ctx, service.CheckoutInput{
		UserID:     userID,
		AddressID:  body.AddressID,
		CouponID:   body.CouponID,
		Selections: selections,
	})
	if err != nil {
		return checkoutError(c, err)
	}

	return c.Status(201).JSON(result)
}

func checkoutError(c *fiber.Ctx, err error) error {
	var missing service.ErrMissingShipping
	if errors.As(err, &missing) {
		return c.Status(400).JSON(fiber.Map{
			"error":       missing.Error(),
			"merchant_id": missing.MerchantID,
		})
	}

	var stock service.ErrInsufficientStock
	if errors.As(err, &stock) {
		return c.Status(409).JSON(fiber.Map{
			"error":      stock.Error(),
			"variant_id": stock.VariantID,
		})
	}

	var gw service.ErrPaymentGateway
	if errors.As(err, &gw) {
		return c.Status(502).JSON(fiber.Map{"error": gw.Error()})
	}

	if errors.Is(err, service.ErrEmptyCart) {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
