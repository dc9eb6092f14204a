package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alan-Alkalifa/upj-cart-sub001/controller"
	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
	"github.com/Alan-Alkalifa/upj-cart-sub001/middleware"
	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

func RegisterRoutes(app *fiber.App, checkoutSvc *service.CheckoutService, webhookSvc *service.WebhookService, shipping *gateway.ShippingClient) {
	cc := controller.NewCheckoutController(checkoutSvc)
	oc := controller.NewOrderController(checkoutSvc)
	wc := controller.NewWebhookController(webhookSvc)
	sc := controller.NewShippingController(shipping)

	api := app.Group("/api")

	// =========================
	// BUYER ROUTES
	// =========================
	api.Post("/checkout", middleware.AuthRequired, cc.Create)
	api.Get("/orders", middleware.AuthRequired, oc.List)
	api.Get("/orders/:id", middleware.AuthRequired, oc.Get)
	api.Post("/shipping/cost", middleware.AuthRequired, sc.Cost)

	// =========================
	// GATEWAY CALLBACK (unauthenticated, signature-verified)
	// =========================
	api.Post("/payment/notification", wc.Notification)
}
