// Package reservation kullanıcıların geçici toplama listelerini tutar.
// Buradaki rezervler danışma amaçlıdır: kesin stok düşümü kapanışta yapılır,
// bu yüzden satırlar kilitsiz/iyimser yönetilir ve toplam talep fiziksel
// stoğu aşabilir.
package reservation

import (
	"errors"
	"fmt"

	"envanter-backend/internal/database"
	"envanter-backend/internal/ledger"
	"envanter-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDepartmentMismatch = errors.New("liste başka bir bölüme ait")
	ErrProductInactive    = errors.New("ürün pasif durumda")
	ErrInvalidQuantity    = errors.New("miktar pozitif olmalı")
)

// SessionDepartment kullanıcının listesindeki ürünlerin bölümünü döner.
// Liste boşsa nil döner. Tek-bölüm kuralı ekleme anında bu değere karşı
// denetlenir; global bir kısıt değildir.
func SessionDepartment(db *gorm.DB, userID uint) (*int, error) {
	var dept int
	err := db.Model(&models.ReservationLine{}).
		Select("products.department").
		Joins("JOIN products ON products.id = reservation_lines.product_id").
		Where("reservation_lines.user_id = ?", userID).
		Limit(1).
		Scan(&dept).Error
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.ReservationLine{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return &dept, nil
}

// Stage ürünü kullanıcının listesine ekler; satır zaten varsa miktarı artırır.
func Stage(userID uint, productID uint, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		p, err := ledger.FetchByID(tx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return ErrProductInactive
		}

		dept, err := SessionDepartment(tx, userID)
		if err != nil {
			return err
		}
		if dept != nil && *dept != p.Department {
			return fmt.Errorf("%w (mevcut bölüm: %d)", ErrDepartmentMismatch, *dept)
		}

		var line models.ReservationLine
		err = tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&line).Error
		switch {
		case err == nil:
			line.Quantity = line.Quantity.Add(qty)
			return tx.Model(&line).Update("quantity", line.Quantity).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.ReservationLine{UserID: userID, ProductID: productID, Quantity: qty}
			return tx.Create(&line).Error
		default:
			return err
		}
	})
}

// SetQuantity satırın miktarını doğrudan günceller. Sıfır veya negatif
// miktar satırı siler.
func SetQuantity(userID uint, productID uint, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return Remove(userID, productID)
	}

	res := database.DB.Model(&models.ReservationLine{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrProductNotFound
	}
	return nil
}

// Remove satırı listeden çıkarır. Olmayan satır için sessizce başarılıdır.
func Remove(userID uint, productID uint) error {
	return database.DB.
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.ReservationLine{}).Error
}

// Clear kullanıcının tüm listesini boşaltır.
func Clear(userID uint) error {
	return database.DB.
		Where("user_id = ?", userID).
		Delete(&models.ReservationLine{}).Error
}

// ListLines kullanıcının listesini ürünleriyle birlikte, ekleme sırasına
// göre döner.
func ListLines(userID uint) ([]models.ReservationLine, error) {
	var lines []models.ReservationLine
	err := database.DB.
		Preload("Product").
		Where("user_id = ?", userID).
		Order("id").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// TotalStaged ürünün TÜM kullanıcılardaki geçici rezerv toplamını döner.
func TotalStaged(db *gorm.DB, productID uint) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := db.Model(&models.ReservationLine{}).
		Select("SUM(quantity)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Availability ürünün ham kullanılabilir miktarını döner:
// miktar - kalıcı rezerv - tüm kullanıcıların geçici rezerv toplamı.
// Toplam talep stoğu aştığında değer negatif olabilir; görüntüleme tarafı
// AvailabilityForDisplay ile sıfıra kırpar, ham değer teşhis için kalır.
func Availability(productID uint) (decimal.Decimal, error) {
	db := database.DB

	p, err := ledger.FetchByID(db, productID)
	if err != nil {
		return decimal.Zero, err
	}

	staged, err := TotalStaged(db, productID)
	if err != nil {
		return decimal.Zero, err
	}

	return p.Available().Sub(staged), nil
}

// AvailabilityForDisplay hiçbir zaman negatif dönmez.
func AvailabilityForDisplay(productID uint) (decimal.Decimal, error) {
	raw, err := Availability(productID)
	if err != nil {
		return decimal.Zero, err
	}
	if raw.IsNegative() {
		return decimal.Zero, nil
	}
	return raw, nil
}
