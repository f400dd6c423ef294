package archive

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteListFile(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{
		{SKU: "11111111", Quantity: decimal.RequireFromString("2")},
		{SKU: "22222222", Quantity: decimal.RequireFromString("1.5")},
	}

	fileName, filePath, err := WriteListFile(dir, 7, 3, rows, decimal.RequireFromString("85.5"), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fileName, "3_"), "dosya adı bölüm numarasıyla başlamalı")
	assert.True(t, strings.HasSuffix(fileName, ".xlsx"))
	assert.Equal(t, filepath.Join(dir, "user_7", fileName), filePath)

	f, err := excelize.OpenFile(filePath)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	cell := func(ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Stok Kodu", cell("A1"))
	assert.Equal(t, "Miktar", cell("B1"))
	assert.Equal(t, "11111111", cell("A2"))
	assert.Equal(t, "2", cell("B2"))
	assert.Equal(t, "1.5", cell("B3"))

	// Özet bloğu: bir boş satır, kalem sayısı, toplam tutar.
	assert.Equal(t, "Kalem sayısı:", cell("A5"))
	assert.Equal(t, "2", cell("B5"))
	assert.Equal(t, "Toplam tutar:", cell("A6"))
	assert.Equal(t, "85.50 TL", cell("B6"))
}

func TestWriteListFileDeficitPrefix(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{{SKU: "11111111", Quantity: decimal.RequireFromString("3")}}

	fileName, _, err := WriteListFile(dir, 7, 3, rows, decimal.Zero, "eksik_")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fileName, "eksik_3_"))
}

func TestWriteListFileEmptyRows(t *testing.T) {
	fileName, filePath, err := WriteListFile(t.TempDir(), 7, 3, nil, decimal.Zero, "")
	require.NoError(t, err)
	assert.Empty(t, fileName)
	assert.Empty(t, filePath)
}
