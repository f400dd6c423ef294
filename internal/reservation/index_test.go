package reservation

import (
	"testing"

	"envanter-backend/internal/dbtest"
	"envanter-backend/internal/ledger"
	"envanter-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := models.User{Name: "Toplayıcı", Email: email, PasswordHash: "x", Role: models.RolePicker}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, dept int, qty string, reserved int) *models.Product {
	t.Helper()
	p := models.Product{
		SKU:               sku,
		Name:              "Ürün " + sku,
		Department:        dept,
		Group:             "Genel",
		Quantity:          d(qty),
		PermanentReserved: reserved,
		UnitPrice:         d("10"),
		LineValue:         d(qty).Mul(d("10")).Round(2),
		Active:            true,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func lineCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ReservationLine{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestStageCreatesThenIncrements(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")
	p := seedProduct(t, db, "11111111", 3, "100", 0)

	require.NoError(t, Stage(u.ID, p.ID, d("2")))
	require.NoError(t, Stage(u.ID, p.ID, d("3.5")))

	lines, err := ListLines(u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "aynı ürün ikinci eklemede yeni satır açmamalı")
	assert.Equal(t, "5.5", lines[0].Quantity.String())
	assert.Equal(t, "11111111", lines[0].Product.SKU)
}

func TestStageRejectsNonPositiveQuantity(t *testing.T) {
	dbtest.Setup(t)

	err := Stage(1, 1, d("0"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStageRejectsInactiveProduct(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")
	p := seedProduct(t, db, "11111111", 3, "100", 0)
	require.NoError(t, db.Model(p).Update("active", false).Error)

	err := Stage(u.ID, p.ID, d("1"))
	assert.ErrorIs(t, err, ErrProductInactive)
	assert.Zero(t, lineCount(t, db, u.ID))
}

func TestStageEnforcesSingleDepartmentPerList(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")
	p1 := seedProduct(t, db, "11111111", 3, "100", 0)
	p2 := seedProduct(t, db, "22222222", 5, "100", 0)

	require.NoError(t, Stage(u.ID, p1.ID, d("1")))

	err := Stage(u.ID, p2.ID, d("1"))
	assert.ErrorIs(t, err, ErrDepartmentMismatch)
	assert.EqualValues(t, 1, lineCount(t, db, u.ID), "reddedilen ekleme listeyi değiştirmemeli")

	// Liste boşaldıktan sonra başka bölümden eklenebilir.
	require.NoError(t, Clear(u.ID))
	require.NoError(t, Stage(u.ID, p2.ID, d("1")))
}

func TestSetQuantityZeroDeletesLine(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")
	p := seedProduct(t, db, "11111111", 3, "100", 0)

	require.NoError(t, Stage(u.ID, p.ID, d("2")))
	require.NoError(t, SetQuantity(u.ID, p.ID, d("0")))
	assert.Zero(t, lineCount(t, db, u.ID))
}

func TestSetQuantityUnknownLine(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")

	err := SetQuantity(u.ID, 999, d("2"))
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)
}

func TestClearEmptiesOnlyOwnList(t *testing.T) {
	db := dbtest.Setup(t)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")
	p := seedProduct(t, db, "11111111", 3, "100", 0)

	require.NoError(t, Stage(a.ID, p.ID, d("1")))
	require.NoError(t, Stage(b.ID, p.ID, d("2")))

	require.NoError(t, Clear(a.ID))
	assert.Zero(t, lineCount(t, db, a.ID))
	assert.EqualValues(t, 1, lineCount(t, db, b.ID))
}

func TestAvailabilitySubtractsAllSessions(t *testing.T) {
	db := dbtest.Setup(t)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")
	p := seedProduct(t, db, "11111111", 3, "10", 2)

	require.NoError(t, Stage(a.ID, p.ID, d("5")))

	avail, err := Availability(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", avail.String()) // 10 - 2 kalıcı - 5 geçici

	// Toplam talep stoğu aşabilir: ham değer negatif, görüntü sıfır.
	require.NoError(t, Stage(b.ID, p.ID, d("4")))

	avail, err = Availability(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "-1", avail.String())

	display, err := AvailabilityForDisplay(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", display.String())
}

func TestSessionDepartmentEmptyList(t *testing.T) {
	db := dbtest.Setup(t)
	u := seedUser(t, db, "a@example.com")

	dept, err := SessionDepartment(db, u.ID)
	require.NoError(t, err)
	assert.Nil(t, dept)
}
