package reservation

import (
	"errors"
	"fmt"

	"envanter-backend/internal/auth"
	"envanter-backend/internal/database"
	"envanter-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StageRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  string `json:"quantity"` // ondalık olabilir: "1.5"
}

type LineResponse struct {
	ProductID uint   `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
}

func currentUserID(c *fiber.Ctx) (uint, error) {
	v := c.Locals(auth.CtxUserIDKey)
	userID, ok := v.(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}
	return userID, nil
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fiber.NewError(fiber.StatusUnprocessableEntity, "Miktar formatı geçersiz")
	}
	return qty, nil
}

// POST /api/list/items
func StageItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		var body StageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		qty, err := parseQuantity(body.Quantity)
		if err != nil {
			return err
		}

		if err := Stage(userID, body.ProductID, qty); err != nil {
			switch {
			case errors.Is(err, ErrDepartmentMismatch):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, ErrProductInactive):
				return fiber.NewError(fiber.StatusConflict, "Ürün pasif durumda, listeye eklenemez")
			case errors.Is(err, ErrInvalidQuantity):
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Miktar pozitif olmalı")
			case errors.Is(err, ledger.ErrProductNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "Ürün listeye eklenemedi")
			}
		}

		available, err := AvailabilityForDisplay(body.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kalan miktar hesaplanamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":   fmt.Sprintf("Eklendi: %s", qty.String()),
			"available": available.String(),
		})
	}
}

// PUT /api/list/items/:productId
func SetQuantityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		productID, err := c.ParamsInt("productId")
		if err != nil || productID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		var body struct {
			Quantity string `json:"quantity"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		qty, err := parseQuantity(body.Quantity)
		if err != nil {
			return err
		}

		if err := SetQuantity(userID, uint(productID), qty); err != nil {
			if errors.Is(err, ledger.ErrProductNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Listede böyle bir satır yok")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Miktar güncellenemedi")
		}

		return c.JSON(fiber.Map{"message": "Miktar güncellendi"})
	}
}

// DELETE /api/list/items/:productId
func RemoveItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		productID, err := c.ParamsInt("productId")
		if err != nil || productID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		if err := Remove(userID, uint(productID)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satır silinemedi")
		}
		return c.JSON(fiber.Map{"message": "Satır silindi"})
	}
}

// DELETE /api/list
func ClearListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		if err := Clear(userID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Liste temizlenemedi")
		}
		return c.JSON(fiber.Map{"message": "Liste temizlendi"})
	}
}

// GET /api/list
func GetListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		lines, err := ListLines(userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Liste getirilemedi")
		}

		resp := make([]LineResponse, 0, len(lines))
		total := decimal.Zero
		for _, l := range lines {
			resp = append(resp, LineResponse{
				ProductID: l.ProductID,
				SKU:       l.Product.SKU,
				Name:      l.Product.Name,
				Quantity:  l.Quantity.String(),
			})
			total = total.Add(l.Quantity)
		}

		return c.JSON(fiber.Map{
			"items":          resp,
			"total_items":    len(resp),
			"total_quantity": total.String(),
		})
	}
}

// GET /api/products/search?q=...
func SearchProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if len(query) < 3 {
			return fiber.NewError(fiber.StatusBadRequest, "Arama sorgusu en az 3 karakter olmalı")
		}

		products, err := FindProducts(query)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Arama yapılamadı")
		}

		resp := make([]fiber.Map, 0, len(products))
		for _, p := range products {
			available, err := AvailabilityForDisplay(p.ID)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kalan miktar hesaplanamadı")
			}
			resp = append(resp, fiber.Map{
				"id":         p.ID,
				"sku":        p.SKU,
				"name":       p.Name,
				"department": p.Department,
				"group":      p.Group,
				"available":  available.String(),
				"unit_price": p.UnitPrice.String(),
			})
		}

		return c.JSON(resp)
	}
}

// GET /api/products/:sku/availability
func AvailabilityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sku := c.Params("sku")

		p, err := ledger.FetchBySKU(database.DB, sku)
		if err != nil {
			if errors.Is(err, ledger.ErrProductNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün getirilemedi")
		}

		available, err := AvailabilityForDisplay(p.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kalan miktar hesaplanamadı")
		}

		return c.JSON(fiber.Map{
			"sku":       p.SKU,
			"available": available.String(),
		})
	}
}
