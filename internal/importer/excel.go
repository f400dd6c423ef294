// Package importer sayım dosyasını (xlsx) çekirdeğin beklediği sabit satır
// şekline çevirir. Kolon başlığı sezgileri ve ondalık ayraç normalizasyonu
// tamamen bu adaptörün içindedir; motor ham tabloyu asla görmez.
package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"envanter-backend/internal/reconcile"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadableFile = errors.New("dosya okunamadı")
	ErrMissingColumns = errors.New("zorunlu kolonlar eksik")
	ErrEmptySheet     = errors.New("sayfada veri satırı yok")
)

// Tedarikçi dosyaları farklı dillerde ve kısaltmalarla geliyor; başlıklar bu
// sözlükle eşleştirilir. Tek harfler eski dışa aktarma formatının kısaltmaları.
var columnAliases = map[string][]string{
	"department": {"в", "b", "bölüm", "departman", "відділ", "отдел", "department", "dept", "code"},
	"group":      {"г", "g", "grup", "група", "группа", "group", "subgroup"},
	"sku":        {"а", "a", "stok kodu", "артикул", "article", "articul", "kod", "код", "product_code"},
	"name":       {"н", "n", "ürün", "ürün adı", "назва", "название", "name", "product", "товар"},
	"quantity":   {"к", "k", "miktar", "кількість", "количество", "quantity", "qty", "залишок", "остаток"},
	"sum":        {"с", "s", "tutar", "сума", "сумма", "sum", "total"},
	"price":      {"ц", "fiyat", "birim fiyat", "ціна", "цена", "price", "unit_price"},
	"months":     {"м", "m", "ay", "hareketsiz ay", "місяці без руху", "без руху", "months", "no_movement"},
}

// 8 haneli stok kodu adın başında bitişik gelebiliyor: "12345678 - Ürün adı"
var combinedSKURe = regexp.MustCompile(`^(\d{8})\s*-?\s*(.+)$`)

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// Şüpheli derecede büyük miktarlar satır hatası sayılır; genellikle yanlış
// kolon eşleşmesinin belirtisidir.
var maxSaneQuantity = decimal.NewFromInt(100000)

// detectColumns başlık satırını sözlükle eşleştirir, bulunan kolonların
// index'lerini döner.
func detectColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	// Sabit sıra: map üzerinde gezinti rastgele, aynı dosya iki çalıştırmada
	// farklı eşleşmesin.
	order := []string{"department", "group", "sku", "name", "quantity", "sum", "price", "months"}

	detected := make(map[string]int)
	for _, standard := range order {
		aliases := columnAliases[standard]
		for _, alias := range aliases {
			for i, col := range normalized {
				if col == "" {
					continue
				}
				if col == alias || strings.Contains(col, alias) && len(alias) > 2 {
					detected[standard] = i
					break
				}
			}
			if _, ok := detected[standard]; ok {
				break
			}
		}
	}
	return detected
}

func cellAt(row []string, idx int, ok bool) string {
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// normalizeDecimal yerel ondalık ayraçları (virgül) kanonik forma çevirir ve
// binlik ayraç gibi artıkları temizler. Çekirdek aritmetiğe bu dönüşümden
// geçmemiş hiçbir sayı girmez.
func normalizeDecimal(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	s = nonNumericRe.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return decimal.Zero, fmt.Errorf("sayı ayrıştırılamadı: %q", raw)
	}
	// Binlik ayraç olarak nokta kullanılmışsa birden fazla nokta kalabilir;
	// son nokta ondalık ayraç kabul edilir.
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}
	return decimal.NewFromString(s)
}

func validSKU(sku string) bool {
	if len(sku) != 8 {
		return false
	}
	for _, r := range sku {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseSnapshot xlsx içeriğini okur ve satır satır doğrulayarak çevirir.
// Satır hataları toplanır, dosyayı durdurmaz; dosya düzeyindeki hatalar
// (okunamayan içerik, eksik zorunlu kolon) error olarak döner.
func ParseSnapshot(r io.Reader) ([]reconcile.SnapshotRow, []reconcile.RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rawRows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(rawRows) < 2 {
		return nil, nil, ErrEmptySheet
	}

	cols := detectColumns(rawRows[0])

	var missing []string
	for _, required := range []string{"department", "group", "quantity"} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if _, hasSKU := cols["sku"]; !hasSKU {
		if _, hasName := cols["name"]; !hasName {
			missing = append(missing, "sku/name")
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	skuIdx, hasSKUCol := cols["sku"]
	nameIdx, hasNameCol := cols["name"]
	deptIdx := cols["department"]
	groupIdx := cols["group"]
	qtyIdx := cols["quantity"]
	sumIdx, hasSumCol := cols["sum"]
	priceIdx, hasPriceCol := cols["price"]
	monthsIdx, hasMonthsCol := cols["months"]

	rows := make([]reconcile.SnapshotRow, 0, len(rawRows)-1)
	rowErrors := make([]reconcile.RowError, 0)

	for i, raw := range rawRows[1:] {
		fileRow := i + 2 // başlık satırı 1

		sku := cellAt(raw, skuIdx, hasSKUCol)
		name := cellAt(raw, nameIdx, hasNameCol)

		// Stok kodu ayrı kolonda yoksa ad kolonunun başından sökülür.
		if sku == "" && name != "" {
			if m := combinedSKURe.FindStringSubmatch(name); m != nil {
				sku = m[1]
				name = strings.TrimSpace(m[2])
			}
		}

		if !validSKU(sku) {
			rowErrors = append(rowErrors, reconcile.RowError{
				Row: fileRow, SKU: sku, Reason: "stok kodu 8 haneli sayı olmalı",
			})
			continue
		}

		dept, err := strconv.Atoi(strings.TrimSpace(cellAt(raw, deptIdx, true)))
		if err != nil {
			rowErrors = append(rowErrors, reconcile.RowError{
				Row: fileRow, SKU: sku, Reason: "bölüm numarası ayrıştırılamadı",
			})
			continue
		}

		qty, err := normalizeDecimal(cellAt(raw, qtyIdx, true))
		if err != nil {
			rowErrors = append(rowErrors, reconcile.RowError{
				Row: fileRow, SKU: sku, Reason: "miktar formatı geçersiz",
			})
			continue
		}
		if qty.IsNegative() {
			rowErrors = append(rowErrors, reconcile.RowError{
				Row: fileRow, SKU: sku, Reason: "miktar negatif olamaz",
			})
			continue
		}
		if qty.GreaterThan(maxSaneQuantity) {
			rowErrors = append(rowErrors, reconcile.RowError{
				Row: fileRow, SKU: sku, Reason: "şüpheli derecede büyük miktar: " + qty.String(),
			})
			continue
		}

		// Fiyat doğrudan gelmediyse kalan tutardan türetilir.
		price := decimal.Zero
		lineValue := decimal.Zero
		if hasPriceCol {
			if v, err := normalizeDecimal(cellAt(raw, priceIdx, true)); err == nil {
				price = v
			}
		}
		if hasSumCol {
			if v, err := normalizeDecimal(cellAt(raw, sumIdx, true)); err == nil {
				lineValue = v
			}
		}
		if price.IsZero() && lineValue.IsPositive() && qty.IsPositive() {
			price = lineValue.Div(qty).Round(2)
		}
		if lineValue.IsZero() {
			lineValue = qty.Mul(price).Round(2)
		}

		var monthsIdle *int
		if hasMonthsCol {
			if v, err := strconv.Atoi(strings.TrimSpace(cellAt(raw, monthsIdx, true))); err == nil {
				monthsIdle = &v
			}
		}

		rows = append(rows, reconcile.SnapshotRow{
			SKU:        sku,
			Name:       name,
			Department: dept,
			Group:      cellAt(raw, groupIdx, true),
			Quantity:   qty,
			UnitPrice:  price,
			LineValue:  lineValue,
			MonthsIdle: monthsIdle,
		})
	}

	return rows, rowErrors, nil
}
