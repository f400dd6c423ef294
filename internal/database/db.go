package database

import (
	"log"

	"envanter-backend/internal/config"
	"envanter-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	// Eski kurulumlarda products tablosunda permanent_reserved kolonu yok
	// (rezerv bilgisi ayrı tabloda tutuluyordu). AutoMigrate kolonu ekler ama
	// NULL bırakır; mevcut satırları sıfırla doldurup NOT NULL'a çekiyoruz.
	if DB.Migrator().HasTable(&models.Product{}) {
		if !DB.Migrator().HasColumn(&models.Product{}, "permanent_reserved") {
			log.Println("Product.permanent_reserved kolonu ekleniyor...")
			if err := DB.Exec("ALTER TABLE products ADD COLUMN permanent_reserved INTEGER").Error; err != nil {
				log.Printf("permanent_reserved kolonu eklenirken hata (zaten var olabilir): %v", err)
			}
			DB.Exec("UPDATE products SET permanent_reserved = 0 WHERE permanent_reserved IS NULL")
			if err := DB.Exec("ALTER TABLE products ALTER COLUMN permanent_reserved SET NOT NULL").Error; err != nil {
				log.Printf("permanent_reserved NOT NULL yapılırken hata: %v", err)
			}
		}
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.StockHistoryEntry{},
		&models.ReservationLine{},
		&models.SettledOrder{},
		&models.SettledOrderLine{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate hatası: %v", err)
	}

	// Rezerv toplamı her ekleme ve her ürün kartında sorgulanıyor;
	// product_id üzerindeki index aggregate sorgusunu tek index taramasına indirir.
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reservation_lines_product_id ON reservation_lines(product_id)")

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}
