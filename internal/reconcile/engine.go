// Package reconcile sayım dosyasını (depo gerçeğinin tam dökümü) veritabanı
// ile mutabık kılar. Dosya otoritedir: dosyada olmayan aktif ürün pasife
// alınır, dosyada olan her ürün dosyadaki değerlere çekilir.
package reconcile

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

// Boş ya da tamamen geçersiz dosya hiçbir yazma yapılmadan reddedilir.
var ErrNoValidRows = errors.New("dosyada geçerli satır yok")

// SnapshotRow: Adaptörün (xlsx ayrıştırıcısının) ürettiği sabit satır şekli.
// Motor ham tablo yapısını asla görmez.
type SnapshotRow struct {
	SKU        string
	Name       string
	Department int
	Group      string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal // sıfır = dosyada yok, mevcut fiyat korunur
	LineValue  decimal.Decimal
	MonthsIdle *int // nil = kolonda değer yok
}

type RowError struct {
	Row    int    `json:"row"` // dosyadaki satır numarası (başlık dahil)
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

type PriceWarning struct {
	SKU      string `json:"sku"`
	OldPrice string `json:"old_price"`
	NewPrice string `json:"new_price"`
}

type Summary struct {
	Added            int            `json:"added"`
	Updated          int            `json:"updated"`
	Reactivated      int            `json:"reactivated"`
	Deactivated      int            `json:"deactivated"`
	TotalActive      int            `json:"total_active"`
	TotalInFile      int            `json:"total_in_file"`
	DepartmentCounts map[int]int    `json:"department_counts"`
	PriceWarnings    []PriceWarning `json:"price_warnings"`
	RowErrors        []RowError     `json:"row_errors"`
}

type ActiveSession struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Lines  int    `json:"lines"`
}

// validateRow satır düzeyinde yapısal kontrol. Hatalı satır partiyi
// durdurmaz, sadece atlanır ve özette raporlanır.
func validateRow(r SnapshotRow) error {
	if r.SKU == "" {
		return errors.New("stok kodu boş")
	}
	if r.Name == "" {
		return errors.New("ürün adı boş")
	}
	if r.Department <= 0 {
		return errors.New("bölüm numarası geçersiz")
	}
	if r.Quantity.IsNegative() {
		return errors.New("miktar negatif olamaz")
	}
	return nil
}

// ImportSnapshot sayım dosyasını tek bir atomik transaction içinde uygular.
//
// Ön koşul (kooperatif protokol): aktif toplama listesi olan kullanıcılar
// varken çalıştırılmamalıdır; miktar/fiyat/aktiflik üzerine yazmak onların
// rezervlerini sessizce geçersiz kılar. Çağıran önce PreflightActiveSessions
// ile kontrol edip kullanıcıları bilgilendirmeli ya da listelerini
// kapattırmalıdır. Motor bunu zorlamaz.
func ImportSnapshot(rows []SnapshotRow, parseErrors []RowError) (*Summary, error) {
	summary := &Summary{
		DepartmentCounts: make(map[int]int),
		PriceWarnings:    make([]PriceWarning, 0),
		RowErrors:        append([]RowError{}, parseErrors...),
	}

	// Satır doğrulama; aynı stok kodu iki kez geçerse son satır kazanır.
	fileData := make(map[string]SnapshotRow)
	fileOrder := make([]string, 0, len(rows))
	for i, r := range rows {
		if err := validateRow(r); err != nil {
			summary.RowErrors = append(summary.RowErrors, RowError{Row: i + 2, SKU: r.SKU, Reason: err.Error()})
			continue
		}
		if _, seen := fileData[r.SKU]; !seen {
			fileOrder = append(fileOrder, r.SKU)
		}
		fileData[r.SKU] = r
	}

	// Parti düzeyinde ölümcül durum: tek bir geçerli satır bile yok.
	// Hiçbir yazma yapılmadan iptal.
	if len(fileData) == 0 {
		return nil, fmt.Errorf("%w (%d satır hatalı)", ErrNoValidRows, len(summary.RowErrors))
	}

	summary.TotalInFile = len(fileData)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing []models.Product
		if err := tx.Find(&existing).Error; err != nil {
			return fmt.Errorf("mevcut ürünler okunamadı: %w", err)
		}

		bySKU := make(map[string]*models.Product, len(existing))
		for i := range existing {
			bySKU[existing[i].SKU] = &existing[i]
		}

		// 1. Partisyon: dosyada olmayan aktif ürünler pasife alınacak.
		var toDeactivate []string
		for sku, p := range bySKU {
			if _, inFile := fileData[sku]; !inFile && p.Active {
				toDeactivate = append(toDeactivate, sku)
			}
		}

		// 2. Pasife alma. Geçmiş kaydı yok, miktar değişmedi; sadece özete girer.
		n, err := ledger.Deactivate(tx, toDeactivate)
		if err != nil {
			return err
		}
		summary.Deactivated = n

		// 3. Güncelleme ve 4. ekleme, dosya sırasıyla.
		for _, sku := range fileOrder {
			row := fileData[sku]
			p, exists := bySKU[sku]

			if !exists {
				if err := insertProduct(tx, row); err != nil {
					return err
				}
				summary.Added++
				summary.DepartmentCounts[row.Department]++
				continue
			}

			reactivated, warning, err := updateProduct(tx, p, row)
			if err != nil {
				return err
			}
			if reactivated {
				summary.Reactivated++
			} else {
				summary.Updated++
			}
			if warning != nil {
				summary.PriceWarnings = append(summary.PriceWarnings, *warning)
			}
			summary.DepartmentCounts[row.Department]++
		}

		// 5. Kalıcı rezervlerin sıfırlanması: dosya otorite olduğu için eski
		// rezerv sayaçları anlamsızlaşır. Ayrı bir transaction'a bırakılamaz,
		// yoksa eski rezerv + yeni stok karışımı bir pencere oluşur.
		if err := ledger.ResetPermanentReservations(tx); err != nil {
			return err
		}

		total, err := ledger.CountActive(tx)
		if err != nil {
			return err
		}
		summary.TotalActive = int(total)

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Sayım dosyası uygulandı: eklenen=%d güncellenen=%d yeniden aktif=%d pasif=%d toplam aktif=%d",
		summary.Added, summary.Updated, summary.Reactivated, summary.Deactivated, summary.TotalActive)

	return summary, nil
}

func insertProduct(tx *gorm.DB, row SnapshotRow) error {
	monthsIdle := 0
	if row.MonthsIdle != nil {
		monthsIdle = *row.MonthsIdle
	}

	p := models.Product{
		SKU:        row.SKU,
		Name:       row.Name,
		Department: row.Department,
		Group:      row.Group,
		Quantity:   row.Quantity,
		UnitPrice:  row.UnitPrice,
		LineValue:  row.Quantity.Mul(row.UnitPrice).Round(2),
		MonthsIdle: monthsIdle,
		Active:     true,
	}
	if err := tx.Create(&p).Error; err != nil {
		return fmt.Errorf("ürün eklenemedi (%s): %w", row.SKU, err)
	}
	return nil
}

// updateProduct mevcut ürünü dosyadaki satıra çeker. Yeniden aktifleşen ürün
// ayrı sayılır, düz güncelleme olarak sayılmaz.
func updateProduct(tx *gorm.DB, p *models.Product, row SnapshotRow) (reactivated bool, warning *PriceWarning, err error) {
	reactivated = !p.Active

	price := row.UnitPrice
	if price.IsZero() && p.UnitPrice.IsPositive() {
		// Dosyada fiyat yoksa mevcut fiyat taşınır, kalan tutar yeniden hesaplanır.
		price = p.UnitPrice
	} else if p.UnitPrice.IsPositive() && price.IsPositive() {
		// %50'den fazla fiyat sıçraması satırı engellemez, sadece uyarı üretir.
		diff := price.Sub(p.UnitPrice).Abs()
		if diff.GreaterThan(p.UnitPrice.Div(decimal.NewFromInt(2))) {
			warning = &PriceWarning{
				SKU:      p.SKU,
				OldPrice: p.UnitPrice.String(),
				NewPrice: price.String(),
			}
		}
	}

	monthsIdle := p.MonthsIdle
	if row.MonthsIdle != nil {
		monthsIdle = *row.MonthsIdle
	}

	// Miktar değişiyorsa üzerine yazmadan ÖNCE geçmiş kaydı.
	if !p.Quantity.Equal(row.Quantity) {
		if err := ledger.AppendHistory(tx, p, p.Quantity, row.Quantity, models.StockSourceSnapshotImport); err != nil {
			return false, nil, err
		}
	}

	updates := map[string]interface{}{
		"name":        row.Name,
		"department":  row.Department,
		"group":       row.Group,
		"quantity":    row.Quantity,
		"unit_price":  price,
		"line_value":  row.Quantity.Mul(price).Round(2),
		"months_idle": monthsIdle,
		"active":      true,
	}
	if err := tx.Model(p).Updates(updates).Error; err != nil {
		return false, nil, fmt.Errorf("ürün güncellenemedi (%s): %w", p.SKU, err)
	}

	return reactivated, warning, nil
}

// PreflightActiveSessions kapanmamış toplama listesi olan kullanıcıları döner.
// Çağıran içe aktarmadan önce bu listeyi boşaltmakla yükümlüdür.
func PreflightActiveSessions() ([]ActiveSession, error) {
	var sessions []ActiveSession
	err := database.DB.Model(&models.ReservationLine{}).
		Select("reservation_lines.user_id AS user_id, users.name AS name, COUNT(*) AS lines").
		Joins("JOIN users ON users.id = reservation_lines.user_id").
		Group("reservation_lines.user_id, users.name").
		Order("reservation_lines.user_id").
		Scan(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("aktif listeler sorgulanamadı: %w", err)
	}
	return sessions, nil
}
