package archive

import (
	"errors"
	"log"
	"os"

	"envanter-backend/internal/auth"
	"envanter-backend/internal/database"
	"envanter-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OrderResponse struct {
	ID         uint   `json:"id"`
	UserID     uint   `json:"user_id"`
	Department int    `json:"department"`
	TotalValue string `json:"total_value"`
	FileName   string `json:"file_name"`
	HasFile    bool   `json:"has_file"`
	CreatedAt  string `json:"created_at"`
}

// GET /api/archives
// Admin tüm siparişleri görür, toplayıcı sadece kendininkileri.
func ListArchivesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

		q := database.DB.Order("created_at DESC").Limit(200)
		if role != models.RoleAdmin {
			q = q.Where("user_id = ?", userID)
		}

		var orders []models.SettledOrder
		if err := q.Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Arşiv listelenemedi")
		}

		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, OrderResponse{
				ID:         o.ID,
				UserID:     o.UserID,
				Department: o.Department,
				TotalValue: o.TotalValue.String(),
				FileName:   o.FileName,
				HasFile:    o.FilePath != "" && fileExists(o.FilePath),
				CreatedAt:  o.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(resp)
	}
}

// GET /api/archives/:id/download
func DownloadArchiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := findVisibleOrder(c)
		if err != nil {
			return err
		}

		if order.FilePath == "" || !fileExists(order.FilePath) {
			return fiber.NewError(fiber.StatusNotFound, "Sipariş dosyası artık mevcut değil")
		}

		return c.Download(order.FilePath, order.FileName)
	}
}

// DELETE /api/archives/:id/file
// Sadece üretilen dosyayı siler. Sipariş kaydı ve kalemleri değişmezdir,
// veritabanında kalır.
func DeleteArchiveFileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := findVisibleOrder(c)
		if err != nil {
			return err
		}

		if order.FilePath != "" && fileExists(order.FilePath) {
			if err := os.Remove(order.FilePath); err != nil {
				log.Printf("Arşiv dosyası silinemedi (%s): %v", order.FilePath, err)
				return fiber.NewError(fiber.StatusInternalServerError, "Dosya silinemedi")
			}
		}

		err = database.DB.Model(&models.SettledOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{"file_name": "", "file_path": ""}).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Arşiv güncellenemedi")
		}

		return c.JSON(fiber.Map{"message": "Dosya silindi, sipariş kaydı korundu"})
	}
}

// GET /api/archives/:id
func GetArchiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := findVisibleOrder(c)
		if err != nil {
			return err
		}

		var lines []models.SettledOrderLine
		if err := database.DB.Where("order_id = ?", order.ID).Order("id").Find(&lines).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş kalemleri getirilemedi")
		}

		lineResp := make([]fiber.Map, 0, len(lines))
		for _, l := range lines {
			lineResp = append(lineResp, fiber.Map{
				"sku":      l.SKU,
				"label":    l.Label,
				"quantity": l.Quantity.String(),
				"deficit":  l.Deficit,
			})
		}

		return c.JSON(fiber.Map{
			"id":          order.ID,
			"user_id":     order.UserID,
			"department":  order.Department,
			"total_value": order.TotalValue.String(),
			"created_at":  order.CreatedAt.Format("2006-01-02 15:04:05"),
			"lines":       lineResp,
		})
	}
}

func findVisibleOrder(c *fiber.Ctx) (*models.SettledOrder, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz arşiv ID")
	}

	var order models.SettledOrder
	if err := database.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Arşiv bulunamadı")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Arşiv getirilemedi")
	}

	userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
	role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
	if role != models.RoleAdmin && order.UserID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Bu arşive erişim yetkiniz yok")
	}

	return &order, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
