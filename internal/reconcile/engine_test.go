package reconcile

import (
	"testing"

	"envanter-backend/internal/dbtest"
	"envanter-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func row(sku, name string, dept int, qty, price string) SnapshotRow {
	return SnapshotRow{
		SKU:        sku,
		Name:       name,
		Department: dept,
		Group:      "Genel",
		Quantity:   d(qty),
		UnitPrice:  d(price),
		LineValue:  d(qty).Mul(d(price)).Round(2),
	}
}

func fetch(t *testing.T, db *gorm.DB, sku string) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Where("sku = ?", sku).First(&p).Error)
	return &p
}

func historyCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.StockHistoryEntry{}).Count(&n).Error)
	return n
}

func TestImportAddsNewProducts(t *testing.T) {
	db := dbtest.Setup(t)

	summary, err := ImportSnapshot([]SnapshotRow{
		row("11111111", "Un Beyaz 1kg", 3, "10", "25.50"),
		row("22222222", "Şeker Toz 1kg", 5, "4.5", "30"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Deactivated)
	assert.Equal(t, 2, summary.TotalActive)
	assert.Equal(t, map[int]int{3: 1, 5: 1}, summary.DepartmentCounts)

	p := fetch(t, db, "22222222")
	assert.Equal(t, "4.5", p.Quantity.String())
	assert.Equal(t, "135", p.LineValue.String())
	assert.True(t, p.Active)
	assert.Zero(t, historyCount(t, db), "yeni ürün geçmiş kaydı üretmez")
}

func TestReimportIdenticalFileIsIdempotent(t *testing.T) {
	db := dbtest.Setup(t)
	rows := []SnapshotRow{
		row("11111111", "Un Beyaz 1kg", 3, "10", "25.50"),
		row("22222222", "Şeker Toz 1kg", 3, "4.5", "30"),
	}

	_, err := ImportSnapshot(rows, nil)
	require.NoError(t, err)

	summary, err := ImportSnapshot(rows, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 0, summary.Reactivated)
	assert.Equal(t, 0, summary.Deactivated)
	assert.Equal(t, 2, summary.TotalActive)
	assert.Zero(t, historyCount(t, db), "miktar değişmedi, geçmiş kaydı olmamalı")
}

func TestQuantityChangeWritesHistoryBeforeOverwrite(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "2")}, nil)
	require.NoError(t, err)

	_, err = ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "8", "2")}, nil)
	require.NoError(t, err)

	var entries []models.StockHistoryEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "10", entries[0].OldQuantity.String())
	assert.Equal(t, "8", entries[0].NewQuantity.String())
	assert.Equal(t, models.StockSourceSnapshotImport, entries[0].Source)
}

func TestMissingProductDeactivatedThenReactivated(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{
		row("11111111", "Un", 3, "10", "2"),
		row("22222222", "Şeker", 3, "5", "3"),
	}, nil)
	require.NoError(t, err)

	// İkinci dosyada 22222222 yok: pasife alınır, satır silinmez.
	summary, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "2")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deactivated)
	assert.Equal(t, 1, summary.TotalActive)
	assert.False(t, fetch(t, db, "22222222").Active)

	// Üçüncü dosyada geri gelir: eklenen değil, yeniden aktifleşen sayılır.
	summary, err = ImportSnapshot([]SnapshotRow{
		row("11111111", "Un", 3, "10", "2"),
		row("22222222", "Şeker", 3, "5", "3"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 1, summary.Reactivated)
	assert.Equal(t, 1, summary.Updated)
	assert.True(t, fetch(t, db, "22222222").Active)
}

func TestZeroPriceCarriesStoredPriceForward(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "25")}, nil)
	require.NoError(t, err)

	_, err = ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "4", "0")}, nil)
	require.NoError(t, err)

	p := fetch(t, db, "11111111")
	assert.Equal(t, "25", p.UnitPrice.String())
	assert.Equal(t, "100", p.LineValue.String(), "kalan tutar taşınan fiyatla hesaplanmalı")
}

func TestLargePriceJumpProducesWarningNotError(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "10")}, nil)
	require.NoError(t, err)

	summary, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "20")}, nil)
	require.NoError(t, err)

	require.Len(t, summary.PriceWarnings, 1)
	assert.Equal(t, "11111111", summary.PriceWarnings[0].SKU)
	assert.Equal(t, "10", summary.PriceWarnings[0].OldPrice)
	assert.Equal(t, "20", summary.PriceWarnings[0].NewPrice)

	// Uyarı satırı engellemez, yeni fiyat uygulanır.
	assert.Equal(t, "20", fetch(t, db, "11111111").UnitPrice.String())
}

func TestInvalidRowSkippedRestApplied(t *testing.T) {
	db := dbtest.Setup(t)

	summary, err := ImportSnapshot([]SnapshotRow{
		row("11111111", "Un", 3, "10", "2"),
		row("22222222", "Şeker", 3, "-1", "2"), // negatif miktar
		row("", "Tuz", 3, "5", "2"),            // stok kodu boş
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Len(t, summary.RowErrors, 2)
	assert.Equal(t, 1, summary.TotalActive)

	var n int64
	require.NoError(t, db.Model(&models.Product{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAllRowsInvalidAbortsWithoutWrites(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "2")}, nil)
	require.NoError(t, err)

	_, err = ImportSnapshot([]SnapshotRow{
		row("", "Bozuk", 3, "5", "2"),
		row("22222222", "Bozuk 2", 0, "5", "2"),
	}, nil)
	require.ErrorIs(t, err, ErrNoValidRows)

	// Önceki durum aynen duruyor: pasife alma dahil hiçbir yazma yapılmadı.
	p := fetch(t, db, "11111111")
	assert.True(t, p.Active)
	assert.Equal(t, "10", p.Quantity.String())
}

func TestDuplicateSKULastRowWins(t *testing.T) {
	db := dbtest.Setup(t)

	summary, err := ImportSnapshot([]SnapshotRow{
		row("11111111", "Un", 3, "10", "2"),
		row("11111111", "Un", 3, "7", "2"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.TotalInFile)
	assert.Equal(t, "7", fetch(t, db, "11111111").Quantity.String())
}

func TestImportResetsPermanentReservations(t *testing.T) {
	db := dbtest.Setup(t)

	_, err := ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "10", "2")}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Product{}).
		Where("sku = ?", "11111111").
		Update("permanent_reserved", 5).Error)

	_, err = ImportSnapshot([]SnapshotRow{row("11111111", "Un", 3, "12", "2")}, nil)
	require.NoError(t, err)

	assert.Zero(t, fetch(t, db, "11111111").PermanentReserved)
}

func TestPreflightActiveSessions(t *testing.T) {
	db := dbtest.Setup(t)

	user := models.User{Name: "Ayşe", Email: "ayse@example.com", PasswordHash: "x", Role: models.RolePicker}
	require.NoError(t, db.Create(&user).Error)

	_, err := ImportSnapshot([]SnapshotRow{
		row("11111111", "Un", 3, "10", "2"),
		row("22222222", "Şeker", 3, "5", "3"),
	}, nil)
	require.NoError(t, err)

	sessions, err := PreflightActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	for _, sku := range []string{"11111111", "22222222"} {
		p := fetch(t, db, sku)
		line := models.ReservationLine{UserID: user.ID, ProductID: p.ID, Quantity: d("1")}
		require.NoError(t, db.Create(&line).Error)
	}

	sessions, err = PreflightActiveSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, user.ID, sessions[0].UserID)
	assert.Equal(t, "Ayşe", sessions[0].Name)
	assert.Equal(t, 2, sessions[0].Lines)
}
