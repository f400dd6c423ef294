// Package archive kapanış sonuçlarını indirilebilir xlsx dosyalarına çevirir
// ve geçmiş siparişlerin listelenmesini/indirilmesini sağlar. Dosya üretimi
// çekirdek motorun sorumluluğu değildir; motor sadece satırları verir.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Row struct {
	SKU      string
	Quantity decimal.Decimal
}

// WriteListFile satırları tek sayfalık bir xlsx dosyasına yazar ve dosya
// sonuna özet satırlarını ekler. prefix eksik listesi için "eksik_" olur.
func WriteListFile(baseDir string, userID uint, department int, rows []Row, totalValue decimal.Decimal, prefix string) (string, string, error) {
	if len(rows) == 0 {
		return "", "", nil
	}

	timestamp := time.Now().Format("02-01-2006_15-04")
	fileName := fmt.Sprintf("%s%d_%s.xlsx", prefix, department, timestamp)

	dir := filepath.Join(baseDir, fmt.Sprintf("user_%d", userID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("arşiv klasörü oluşturulamadı: %v", err)
	}
	filePath := filepath.Join(dir, fileName)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Stok Kodu", "Miktar"}); err != nil {
		return "", "", err
	}

	rowIdx := 2
	for _, r := range rows {
		cell := fmt.Sprintf("A%d", rowIdx)
		// Miktar string yazılır; Excel'in "12345678" stok kodunu sayıya
		// çevirip baştaki sıfırları yutmaması için kod da string kalır.
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{r.SKU, r.Quantity.String()}); err != nil {
			return "", "", err
		}
		rowIdx++
	}

	// Özet bloğu: bir boş satır, kalem sayısı, toplam tutar.
	rowIdx++
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowIdx), &[]interface{}{"Kalem sayısı:", len(rows)}); err != nil {
		return "", "", err
	}
	rowIdx++
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowIdx), &[]interface{}{"Toplam tutar:", totalValue.StringFixed(2) + " TL"}); err != nil {
		return "", "", err
	}

	if err := f.SaveAs(filePath); err != nil {
		return "", "", fmt.Errorf("arşiv dosyası kaydedilemedi: %v", err)
	}

	return fileName, filePath, nil
}
