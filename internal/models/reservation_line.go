package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationLine: Bir kullanıcının geçici (danışma amaçlı) rezervi.
// Kesin stok düşümü ancak kapanışta yapılır; bu satırların toplamı fiziksel
// stoğu aşabilir.
type ReservationLine struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"uniqueIndex:idx_reservation_user_product;index;not null"`
	User      User
	ProductID uint `gorm:"uniqueIndex:idx_reservation_user_product;index;not null"`
	Product   Product

	Quantity decimal.Decimal `gorm:"type:decimal(18,3);not null"` // her zaman > 0, sıfıra düşen satır silinir

	CreatedAt time.Time
	UpdatedAt time.Time
}
