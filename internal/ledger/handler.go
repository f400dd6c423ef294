package ledger

import (
	"errors"
	"fmt"
	"log"

	"envanter-backend/internal/database"
	"envanter-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockAdjustmentRequest struct {
	SKU      string `json:"sku"`
	Quantity string `json:"quantity"` // ondalık, nokta ayraçlı: "12.5"
}

type StockHistoryResponse struct {
	ID          uint   `json:"id"`
	SKU         string `json:"sku"`
	OldQuantity string `json:"old_quantity"`
	NewQuantity string `json:"new_quantity"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at"`
}

// POST /api/admin/stock-adjustments
// Elle stok düzeltmesi. Sayım dosyası beklenemeyecek durumlar için
// (kırılan ürün, tespit edilen sayım hatası vb.).
func CreateStockAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StockAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.SKU == "" {
			return fiber.NewError(fiber.StatusBadRequest, "sku zorunlu")
		}

		newQty, err := decimal.NewFromString(body.Quantity)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Miktar formatı geçersiz")
		}
		if newQty.IsNegative() {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Miktar negatif olamaz")
		}

		var updated *models.Product
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			p, err := FetchBySKU(tx, body.SKU)
			if err != nil {
				return err
			}
			p, err = FetchForUpdate(tx, p.ID)
			if err != nil {
				return err
			}
			if err := SetQuantity(tx, p, newQty, models.StockSourceManual); err != nil {
				return err
			}
			updated = p
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
			}
			log.Printf("Elle stok düzeltmesi başarısız (sku=%s): %v", body.SKU, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Stok düzeltmesi kaydedilemedi")
		}

		log.Printf("Elle stok düzeltmesi: %s -> %s", body.SKU, newQty.String())
		return c.JSON(fiber.Map{
			"sku":        updated.SKU,
			"quantity":   updated.Quantity.String(),
			"line_value": updated.LineValue.String(),
		})
	}
}

// GET /api/admin/stock-history?days=7
func ListStockHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)

		entries, err := RecentHistory(database.DB, days)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok geçmişi listelenemedi")
		}

		resp := make([]StockHistoryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, StockHistoryResponse{
				ID:          e.ID,
				SKU:         e.SKU,
				OldQuantity: e.OldQuantity.String(),
				NewQuantity: e.NewQuantity.String(),
				Source:      string(e.Source),
				CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(resp)
	}
}

// GET /api/products/:sku
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sku := c.Params("sku")

		p, err := FetchBySKU(database.DB, sku)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün getirilemedi")
		}

		return c.JSON(fiber.Map{
			"id":                 p.ID,
			"sku":                p.SKU,
			"name":               p.Name,
			"department":         p.Department,
			"group":              p.Group,
			"quantity":           p.Quantity.String(),
			"permanent_reserved": p.PermanentReserved,
			"unit_price":         p.UnitPrice.String(),
			"line_value":         p.LineValue.String(),
			"months_idle":        p.MonthsIdle,
			"active":             p.Active,
			"label":              fmt.Sprintf("%s - %s", p.SKU, p.Name),
		})
	}
}
