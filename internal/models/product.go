package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product: Depodaki bir ürün kaydı. Sayım dosyasından (snapshot) güncellenir,
// kapanış (settlement) sırasında stoktan düşülür.
type Product struct {
	ID         uint   `gorm:"primaryKey"`
	SKU        string `gorm:"size:20;uniqueIndex;not null"` // 8 haneli stok kodu
	Name       string `gorm:"size:255;not null"`
	Department int    `gorm:"index;not null"` // Bölüm numarası (bir liste tek bölümden toplanır)
	Group      string `gorm:"size:100"`

	// Miktarlar ondalıklı olabilir (kg ile satılan ürünler), decimal olarak saklanır.
	Quantity          decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	PermanentReserved int             `gorm:"not null;default:0"` // Kalıcı rezerv (sayım dosyası ile sıfırlanır)

	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineValue  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"` // Kalan stok tutarı = Quantity * UnitPrice
	MonthsIdle int             `gorm:"not null;default:0"`                    // Hareketsiz geçen ay sayısı

	// Silme yok: geçmiş kayıtları ürüne referans verdiği için pasife alınır.
	Active bool `gorm:"index;not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available: Kalıcı rezerv düşülmüş ham stok. Geçici rezervleri (diğer
// kullanıcıların listeleri) içermez, onlar reservation paketinde toplanır.
func (p *Product) Available() decimal.Decimal {
	return p.Quantity.Sub(decimal.NewFromInt(int64(p.PermanentReserved)))
}
