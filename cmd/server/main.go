package main

import (
	"log"
	"strings"

	"envanter-backend/internal/archive"
	"envanter-backend/internal/auth"
	"envanter-backend/internal/config"
	"envanter-backend/internal/database"
	"envanter-backend/internal/importer"
	"envanter-backend/internal/ledger"
	"envanter-backend/internal/models"
	"envanter-backend/internal/reconcile"
	"envanter-backend/internal/reports"
	"envanter-backend/internal/reservation"
	"envanter-backend/internal/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Kullanıcı yönetimi
	adminRoutes.Post("/users", auth.CreatePickerHandler())

	// Sayım dosyası içe aktarma
	adminRoutes.Get("/import-preflight", reconcile.PreflightHandler())
	adminRoutes.Post("/import-snapshot", importer.ImportSnapshotHandler())

	// Elle stok düzeltme ve geçmiş
	adminRoutes.Post("/stock-adjustments", ledger.CreateStockAdjustmentHandler())
	adminRoutes.Get("/stock-history", ledger.ListStockHistoryHandler())

	// Raporlar
	adminRoutes.Get("/reports/department-stats", reports.DepartmentStatsHandler())
	adminRoutes.Get("/reports/top-products", reports.TopProductsHandler())

	// Ürün arama ve kartı (tüm roller)
	protected.Get("/products/search", reservation.SearchProductsHandler())
	protected.Get("/products/:sku/availability", reservation.AvailabilityHandler())
	protected.Get("/products/:sku", ledger.GetProductHandler())

	// Toplama listesi
	protected.Get("/list", reservation.GetListHandler())
	protected.Post("/list/items", reservation.StageItemHandler())
	protected.Put("/list/items/:productId", reservation.SetQuantityHandler())
	protected.Delete("/list/items/:productId", reservation.RemoveItemHandler())
	protected.Delete("/list", reservation.ClearListHandler())

	// Kapanış
	protected.Post("/list/settle", settlement.SettleHandler(cfg))

	// Arşiv
	protected.Get("/archives", archive.ListArchivesHandler())
	protected.Get("/archives/:id", archive.GetArchiveHandler())
	protected.Get("/archives/:id/download", archive.DownloadArchiveHandler())
	protected.Delete("/archives/:id/file", archive.DeleteArchiveFileHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
