// Package dbtest testler için bellek içi SQLite veritabanı hazırlar.
// Production Postgres kullanır; SQLite sadece test ortamında devrededir.
package dbtest

import (
	"testing"

	"envanter-backend/internal/database"
	"envanter-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup bellek içi bir veritabanı açar, şemayı kurar ve global database.DB'yi
// test süresince bu bağlantıya yönlendirir.
func Setup(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("test veritabanı açılamadı: %v", err)
	}

	// :memory: veritabanı bağlantı başına ayrıdır; havuzu tek bağlantıya sabitle.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB alınamadı: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.StockHistoryEntry{},
		&models.ReservationLine{},
		&models.SettledOrder{},
		&models.SettledOrderLine{},
	)
	if err != nil {
		t.Fatalf("test şeması kurulamadı: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})

	return db
}
