// Package reports yönetim ekranı için özet sorgular sunar. Hiçbiri yazma
// yapmaz; hepsi tek aggregate sorgudur.
package reports

import (
	"envanter-backend/internal/database"
	"envanter-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DepartmentStat struct {
	Department int     `json:"department"`
	Products   int     `json:"products"`
	TotalValue float64 `json:"total_value"`
}

type TopProduct struct {
	Label         string  `json:"label"`
	TotalQuantity float64 `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// GET /api/admin/reports/department-stats
// Bölüm başına aktif ürün sayısı ve kalan stok tutarı.
func DepartmentStatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var stats []DepartmentStat
		err := database.DB.Model(&models.Product{}).
			Select("department, COUNT(*) AS products, COALESCE(SUM(line_value), 0) AS total_value").
			Where("active = ?", true).
			Group("department").
			Order("department").
			Scan(&stats).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölüm istatistikleri alınamadı")
		}
		return c.JSON(stats)
	}
}

// GET /api/admin/reports/top-products?limit=10
// Kapanan siparişlerde en sık geçen ürünler. Eksik satırlar sayılmaz.
func TopProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		if limit <= 0 || limit > 100 {
			limit = 10
		}

		var top []TopProduct
		err := database.DB.Model(&models.SettledOrderLine{}).
			Select("label, COALESCE(SUM(quantity), 0) AS total_quantity, COUNT(*) AS order_count").
			Where("deficit = ?", false).
			Group("label").
			Order("order_count DESC").
			Limit(limit).
			Scan(&top).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün istatistikleri alınamadı")
		}
		return c.JSON(top)
	}
}
