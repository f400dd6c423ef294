package reservation

import (
	"testing"

	"envanter-backend/internal/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProductsExactSKUFirst(t *testing.T) {
	db := dbtest.Setup(t)
	seedProduct(t, db, "12345678", 3, "10", 0)
	seedProduct(t, db, "12345670", 3, "10", 0)

	results, err := FindProducts("12345678")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "12345678", results[0].SKU, "birebir stok kodu ilk sırada olmalı")
}

func TestFindProductsNamePrefix(t *testing.T) {
	db := dbtest.Setup(t)
	p := seedProduct(t, db, "11111111", 3, "10", 0)
	require.NoError(t, db.Model(p).Update("name", "Makarna Spagetti 500g").Error)

	results, err := FindProducts("makarna")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "11111111", results[0].SKU)
}

func TestFindProductsSkipsInactive(t *testing.T) {
	db := dbtest.Setup(t)
	p := seedProduct(t, db, "11111111", 3, "10", 0)
	require.NoError(t, db.Model(p).Updates(map[string]interface{}{
		"name":   "Makarna Spagetti 500g",
		"active": false,
	}).Error)

	results, err := FindProducts("makarna")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindProductsNoMatch(t *testing.T) {
	db := dbtest.Setup(t)
	seedProduct(t, db, "11111111", 3, "10", 0)

	results, err := FindProducts("zeytin")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindProductsEmptyQuery(t *testing.T) {
	dbtest.Setup(t)

	results, err := FindProducts("   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}
