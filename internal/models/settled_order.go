package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettledOrder: Kapanış sonucu oluşan kesin sipariş kaydı. Oluşturulduktan
// sonra değiştirilmez; dosya silinse bile satırlar veritabanında kalır.
type SettledOrder struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"index;not null"`
	User   User

	Department int `gorm:"not null"`

	// Aynı kapanış isteğinin iki kez işlenmesini engeller (ör. çift tıklama).
	IdempotencyKey string `gorm:"size:36;uniqueIndex;not null"`

	TotalValue decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"` // karşılanan satırların tutarı

	FileName string `gorm:"size:100"`
	FilePath string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"index"`

	Lines []SettledOrderLine `gorm:"foreignKey:OrderID"`
}

// SettledOrderLine: Siparişin tek bir kalemi. Deficit=true olan satırlar
// karşılanamayan miktarı belgeler, stok düşümü yapılmamıştır.
type SettledOrderLine struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint `gorm:"index;not null"`

	SKU      string          `gorm:"size:20;not null"`
	Label    string          `gorm:"size:255;not null"` // "12345678 - Ürün adı" biçiminde
	Quantity decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Deficit  bool            `gorm:"not null;default:false"`
}
