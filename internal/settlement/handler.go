package settlement

import (
	"errors"
	"log"
	"strings"

	"envanter-backend/internal/archive"
	"envanter-backend/internal/auth"
	"envanter-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SettleRequest struct {
	// İstemci çift gönderime karşı kendi anahtarını verebilir;
	// verilmezse sunucu üretir.
	IdempotencyKey string `json:"idempotency_key"`
}

// POST /api/list/settle
func SettleHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDVal := c.Locals(auth.CtxUserIDKey)
		userID, ok := userIDVal.(uint)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
		}

		var body SettleRequest
		// Gövde boş olabilir, hata yutulur.
		_ = c.BodyParser(&body)

		key := strings.TrimSpace(body.IdempotencyKey)
		if key == "" {
			key = uuid.NewString()
		}

		result, err := Settle(userID, key)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmptyList):
				return fiber.NewError(fiber.StatusBadRequest, "Toplama listesi boş")
			case isLockError(err):
				// Kilit çakışması: çekirdek retry yapmaz, istemci tekrar denemeli.
				return fiber.NewError(fiber.StatusServiceUnavailable, "Stok kilidi alınamadı, lütfen tekrar deneyin")
			default:
				log.Printf("Kapanış hatası (user=%d): %v", userID, err)
				return fiber.NewError(fiber.StatusInternalServerError, "Kapanış tamamlanamadı, hiçbir değişiklik yapılmadı")
			}
		}

		// Dosya üretimi çekirdek işin dışında: burada başarısız olsa bile
		// sipariş ve stok düşümleri geçerli kalır.
		var mainFile, deficitFile string
		if !result.Replayed {
			mainFile = writeArtifact(cfg, userID, result, false)
			deficitFile = writeArtifact(cfg, userID, result, true)
		}

		deficitResp := make([]fiber.Map, 0, len(result.Deficit))
		for _, d := range result.Deficit {
			deficitResp = append(deficitResp, fiber.Map{
				"sku": d.SKU, "label": d.Label, "quantity": d.Quantity.String(),
			})
		}
		fulfilledResp := make([]fiber.Map, 0, len(result.Fulfilled))
		for _, f := range result.Fulfilled {
			fulfilledResp = append(fulfilledResp, fiber.Map{
				"sku": f.SKU, "label": f.Label, "quantity": f.Quantity.String(), "value": f.Value.String(),
			})
		}

		return c.JSON(fiber.Map{
			"order_id":        result.OrderID,
			"department":      result.Department,
			"replayed":        result.Replayed,
			"total_value":     result.TotalValue.String(),
			"fulfilled":       fulfilledResp,
			"deficit":         deficitResp,
			"idempotency_key": key,
			"file_name":       mainFile,
			"deficit_file":    deficitFile,
		})
	}
}

// writeArtifact kapanış dosyasını üretir; hata kapanışı geri almaz, sadece loglanır.
func writeArtifact(cfg *config.Config, userID uint, result *Result, deficit bool) string {
	lines := result.Fulfilled
	prefix := ""
	total := result.TotalValue
	if deficit {
		lines = result.Deficit
		prefix = "eksik_"
		total = sumValues(result.Deficit)
	}
	if len(lines) == 0 {
		return ""
	}

	rows := make([]archive.Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, archive.Row{SKU: l.SKU, Quantity: l.Quantity})
	}

	fileName, filePath, err := archive.WriteListFile(cfg.ArchivePath, userID, result.Department, rows, total, prefix)
	if err != nil {
		log.Printf("Kapanış dosyası üretilemedi (user=%d, order=%d): %v", userID, result.OrderID, err)
		return ""
	}

	if !deficit {
		if err := AttachArtifact(result.OrderID, fileName, filePath); err != nil {
			log.Printf("Sipariş dosya bilgisi güncellenemedi (order=%d): %v", result.OrderID, err)
		}
	}
	return fileName
}

func sumValues(lines []LineResult) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Value)
	}
	return total
}

// isLockError veritabanının kilit bekleme/deadlock hatalarını yakalar.
// Bunlar yeniden denenebilir hatalardır; çekirdek retry içermez.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "could not obtain lock")
}
