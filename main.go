package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Alan-Alkalifa/upj-cart-sub001/cache"
	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
	kafkax "github.com/Alan-Alkalifa/upj-cart-sub001/kafka"
	"github.com/Alan-Alkalifa/upj-cart-sub001/metrics"
	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
	"github.com/Alan-Alkalifa/upj-cart-sub001/repository"
	"github.com/Alan-Alkalifa/upj-cart-sub001/routes"
	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

var DB *gorm.DB
var SQLDB *sql.DB

// ======================
// INIT DATABASE
// ======================
func initDB() {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	pass := getEnv("DB_PASS", "postgres")
	name := getEnv("DB_NAME", "upjcartdb")

	dsn := "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=disable TimeZone=UTC"
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect checkout db:", err)
	}

	if err := DB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.ProductVariant{},
		&model.Coupon{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentLog{},
	); err != nil {
		log.Fatal(err)
	}

	SQLDB, err = DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB from gorm:", err)
	}
}

func main() {
	initDB()
	producer := kafkax.NewProducer()
	cache.ConnectRedis()

	store := repository.NewPostgres(SQLDB)
	snap := gateway.NewSnapClient()
	shipping := gateway.NewShippingClient()

	checkoutSvc := service.NewCheckoutService(store, snap, producer, cache.Redis)
	webhookSvc := service.NewWebhookService(store, producer, cache.Redis, snap.ServerKey)

	// orphan reaper: pending orders that never got a snap token
	go checkoutSvc.RunReaper(context.Background(), 10*time.Minute, time.Hour)

	// prometheus on a side port
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		log.Println("Metrics server running on port 9105")
		if err := http.ListenAndServe(":9105", mux); err != nil {
			log.Fatal("metrics server error:", err)
		}
	}()

	app := fiber.New()
	app.Use(logger.New())

	routes.RegisterRoutes(app, checkoutSvc, webhookSvc, shipping)

	log.Println("HTTP server running on port 3008")
	if err := app.Listen(":3008"); err != nil {
		log.Fatal("fiber error:", err)
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
