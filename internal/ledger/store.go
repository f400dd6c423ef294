// Package ledger ürün kayıtlarının ve stok geçmişinin tek yazım noktasıdır.
// Miktar değiştiren her işlem SetQuantity üzerinden geçer; böylece her
// değişiklik için tam olarak bir StockHistoryEntry yazılır.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"envanter-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProductNotFound = errors.New("ürün bulunamadı")

// FetchBySKU aktiflik durumuna bakmadan ürünü stok koduyla getirir.
func FetchBySKU(db *gorm.DB, sku string) (*models.Product, error) {
	var p models.Product
	if err := db.Where("sku = ?", sku).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FetchByID ürünü ID ile getirir.
func FetchByID(db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FetchForUpdate ürünü çağıranın transaction'ı içinde satır kilidiyle getirir.
// SQLite FOR UPDATE cümlesini tanımıyor; testlerde düz SELECT yeterli çünkü
// bağlantı havuzu tek bağlantıya sabitlenmiş durumda.
func FetchForUpdate(tx *gorm.DB, id uint) (*models.Product, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p models.Product
	if err := q.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// AppendHistory miktar değişikliği için geçmiş kaydı yazar.
func AppendHistory(tx *gorm.DB, p *models.Product, oldQty, newQty decimal.Decimal, source models.StockChangeSource) error {
	entry := models.StockHistoryEntry{
		ProductID:   p.ID,
		SKU:         p.SKU,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		Source:      source,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("stok geçmişi yazılamadı: %w", err)
	}
	return nil
}

// SetQuantity ürünün miktarını günceller, kalan tutarı yeniden hesaplar ve
// geçmiş kaydını aynı transaction içinde ekler. Miktar değişmiyorsa hiçbir
// şey yazılmaz.
func SetQuantity(tx *gorm.DB, p *models.Product, newQty decimal.Decimal, source models.StockChangeSource) error {
	if p.Quantity.Equal(newQty) {
		return nil
	}

	oldQty := p.Quantity
	if err := AppendHistory(tx, p, oldQty, newQty, source); err != nil {
		return err
	}

	p.Quantity = newQty
	p.LineValue = newQty.Mul(p.UnitPrice).Round(2)

	err := tx.Model(p).Updates(map[string]interface{}{
		"quantity":   p.Quantity,
		"line_value": p.LineValue,
	}).Error
	if err != nil {
		return fmt.Errorf("stok güncellenemedi: %w", err)
	}
	return nil
}

// Deactivate verilen stok kodlarını pasife alır. Zaten pasif satırlar
// etkilenmez; dönen sayı gerçekten pasife alınan satır sayısıdır.
// Geçmiş kaydı yazılmaz, miktar değişmemiştir.
func Deactivate(tx *gorm.DB, skus []string) (int, error) {
	if len(skus) == 0 {
		return 0, nil
	}
	res := tx.Model(&models.Product{}).
		Where("sku IN ? AND active = ?", skus, true).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("ürünler pasife alınamadı: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ResetPermanentReservations tüm ürünlerin kalıcı rezervini sıfırlar.
// Sayım dosyası içe aktarılırken aynı transaction içinde, ayrı ve denetlenebilir
// bir adım olarak çağrılır: dosya geldiği anda depo gerçeği dosyadır, eski
// rezervlerin bir anlamı kalmaz.
func ResetPermanentReservations(tx *gorm.DB) error {
	err := tx.Model(&models.Product{}).
		Where("permanent_reserved <> 0").
		Update("permanent_reserved", 0).Error
	if err != nil {
		return fmt.Errorf("kalıcı rezervler sıfırlanamadı: %w", err)
	}
	return nil
}

// CountActive aktif ürün sayısını döner.
func CountActive(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&models.Product{}).Where("active = ?", true).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// RecentHistory son `days` günün stok geçmişini yeni kayıtlar önce olacak
// şekilde döner.
func RecentHistory(db *gorm.DB, days int) ([]models.StockHistoryEntry, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var entries []models.StockHistoryEntry
	err := db.
		Where("created_at >= ?", cutoff).
		Order("created_at DESC").
		Limit(500).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
