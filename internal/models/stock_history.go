package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockChangeSource string

const (
	StockSourceSnapshotImport StockChangeSource = "snapshot_import"
	StockSourceSettlement     StockChangeSource = "settlement"
	StockSourceManual         StockChangeSource = "manual"
)

// StockHistoryEntry: Miktar değiştiren her yazma için tam bir kayıt.
// Append-only, asla güncellenmez veya silinmez.
type StockHistoryEntry struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	SKU       string `gorm:"size:20;index"` // Ürün silinmese de raporlarda join'siz kullanmak için

	OldQuantity decimal.Decimal   `gorm:"type:decimal(18,3);not null"`
	NewQuantity decimal.Decimal   `gorm:"type:decimal(18,3);not null"`
	Source      StockChangeSource `gorm:"size:30;not null;index"`

	CreatedAt time.Time `gorm:"index"`
}
