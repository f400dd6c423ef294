// Package settlement kullanıcının geçici rezervlerini kesin stok düşümüne ve
// değişmez bir sipariş kaydına çevirir. Rezervler danışma amaçlıdır; otorite
// buradaki satır kilitli yeniden okumadır.
package settlement

import (
	"errors"
	"fmt"
	"log"

	"envanter-backend/internal/database"
	"envanter-backend/internal/ledger"
	"envanter-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrEmptyList = errors.New("toplama listesi boş")

type LineResult struct {
	SKU      string          `json:"sku"`
	Label    string          `json:"label"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type Result struct {
	OrderID    uint            `json:"order_id"`
	Department int             `json:"department"`
	Fulfilled  []LineResult    `json:"fulfilled"`
	Deficit    []LineResult    `json:"deficit"`
	TotalValue decimal.Decimal `json:"total_value"`
	Replayed   bool            `json:"replayed"` // aynı idempotency key ikinci kez geldi, stok dokunulmadı
}

// Settle kullanıcının listesini tek bir atomik transaction içinde kapatır:
// her satır için ürün satır kilidiyle yeniden okunur, karşılanabilen miktar
// stoktan düşülür (geçmiş kaydıyla), sipariş + kalemleri yazılır ve liste
// temizlenir. Kısmi commit mümkün değildir: herhangi bir hata tüm birimi
// geri alır.
//
// idempotencyKey aynı kapanışın iki kez işlenmesini engeller: bilinen bir
// anahtar geldiğinde kayıtlı sipariş stoğa dokunulmadan geri döndürülür.
func Settle(userID uint, idempotencyKey string) (*Result, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key zorunlu")
	}

	var result *Result
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// Tekrarlanan istek: kayıtlı siparişi yeniden kur, hiçbir şey yazma.
		var existing models.SettledOrder
		err := tx.Preload("Lines").Where("idempotency_key = ?", idempotencyKey).First(&existing).Error
		if err == nil {
			result = rebuildResult(&existing)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var lines []models.ReservationLine
		err = tx.Preload("Product").
			Where("user_id = ?", userID).
			Order("id").
			Find(&lines).Error
		if err != nil {
			return fmt.Errorf("toplama listesi okunamadı: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyList
		}

		res := &Result{
			Department: lines[0].Product.Department,
			Fulfilled:  make([]LineResult, 0, len(lines)),
			Deficit:    make([]LineResult, 0),
			TotalValue: decimal.Zero,
		}
		orderLines := make([]models.SettledOrderLine, 0, len(lines))

		for _, line := range lines {
			// Otoriter okuma: satır kilidiyle güncel miktar. Rezerv
			// eklendiğinden beri sayım dosyası ya da başka kapanışlar
			// stoğu değiştirmiş olabilir.
			p, err := ledger.FetchForUpdate(tx, line.ProductID)
			if err != nil {
				if errors.Is(err, ledger.ErrProductNotFound) {
					continue // ürün bu arada silinmişse satır atlanır
				}
				return err
			}

			// Diğer kullanıcıların geçici rezervleri BİLEREK düşülmez:
			// onlar danışma amaçlı, önce kapatan kazanır.
			available := p.Available()
			if available.IsNegative() {
				available = decimal.Zero
			}

			requested := line.Quantity
			fulfilled := requested
			if available.LessThan(requested) {
				fulfilled = available
			}
			deficit := requested.Sub(fulfilled)

			label := fmt.Sprintf("%s - %s", p.SKU, p.Name)
			price := p.UnitPrice

			if fulfilled.IsPositive() {
				newQty := p.Quantity.Sub(fulfilled)
				if err := ledger.SetQuantity(tx, p, newQty, models.StockSourceSettlement); err != nil {
					return err
				}

				// Kalıcı rezerv fiilen çekilen miktar kadar düşülür: söz
				// verilen stok depodan çıktıysa sözün o kısmı yerine gelmiş
				// sayılır. Sonraki kapanışlar kalan stoğu rezervsiz görür.
				if p.PermanentReserved > 0 {
					discharged := decimal.NewFromInt(int64(p.PermanentReserved)).Sub(fulfilled)
					newReserved := 0
					if discharged.IsPositive() {
						newReserved = int(discharged.IntPart())
					}
					if err := tx.Model(p).Update("permanent_reserved", newReserved).Error; err != nil {
						return fmt.Errorf("kalıcı rezerv güncellenemedi: %w", err)
					}
				}

				value := fulfilled.Mul(price).Round(2)
				res.Fulfilled = append(res.Fulfilled, LineResult{
					SKU: p.SKU, Label: label, Quantity: fulfilled, Value: value,
				})
				res.TotalValue = res.TotalValue.Add(value)
				orderLines = append(orderLines, models.SettledOrderLine{
					SKU: p.SKU, Label: label, Quantity: fulfilled,
				})
			}

			if deficit.IsPositive() {
				res.Deficit = append(res.Deficit, LineResult{
					SKU: p.SKU, Label: label, Quantity: deficit,
					Value: deficit.Mul(price).Round(2),
				})
				orderLines = append(orderLines, models.SettledOrderLine{
					SKU: p.SKU, Label: label, Quantity: deficit, Deficit: true,
				})
			}
		}

		order := models.SettledOrder{
			UserID:         userID,
			Department:     res.Department,
			IdempotencyKey: idempotencyKey,
			TotalValue:     res.TotalValue,
			Lines:          orderLines,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("sipariş kaydedilemedi: %w", err)
		}
		res.OrderID = order.ID

		// Liste temizliği stok düşümleriyle aynı transaction'da: düşüm var
		// ama liste duruyor (ya da tersi) durumu oluşamaz.
		if err := tx.Where("user_id = ?", userID).Delete(&models.ReservationLine{}).Error; err != nil {
			return fmt.Errorf("toplama listesi temizlenemedi: %w", err)
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		log.Printf("Kapanış tekrarı yakalandı (user=%d, key=%s), sipariş #%d yeniden döndürüldü",
			userID, idempotencyKey, result.OrderID)
	} else {
		log.Printf("Kapanış tamamlandı (user=%d): sipariş #%d, karşılanan=%d eksik=%d tutar=%s",
			userID, result.OrderID, len(result.Fulfilled), len(result.Deficit), result.TotalValue.String())
	}

	return result, nil
}

// rebuildResult kayıtlı bir siparişten kapanış sonucunu yeniden kurar.
func rebuildResult(order *models.SettledOrder) *Result {
	res := &Result{
		OrderID:    order.ID,
		Department: order.Department,
		Fulfilled:  make([]LineResult, 0, len(order.Lines)),
		Deficit:    make([]LineResult, 0),
		TotalValue: order.TotalValue,
		Replayed:   true,
	}
	for _, l := range order.Lines {
		lr := LineResult{SKU: l.SKU, Label: l.Label, Quantity: l.Quantity}
		if l.Deficit {
			res.Deficit = append(res.Deficit, lr)
		} else {
			res.Fulfilled = append(res.Fulfilled, lr)
		}
	}
	return res
}

// AttachArtifact kapanış dosyası üretildikten sonra sipariş üzerindeki dosya
// alanlarını doldurur. Kalemler değişmez; bu sadece dosya metadatasıdır.
func AttachArtifact(orderID uint, fileName, filePath string) error {
	return database.DB.Model(&models.SettledOrder{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"file_name": fileName,
			"file_path": filePath,
		}).Error
}
