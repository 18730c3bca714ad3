package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidExternalID(t *testing.T) {
	assert.True(t, ValidExternalID("123456", 6))
	assert.False(t, ValidExternalID("12345", 6))
	assert.False(t, ValidExternalID("12345a", 6))
	assert.False(t, ValidExternalID("", 0))
	assert.False(t, ValidExternalID("１２３４５６", 6), "full-width digits are not ascii")
}

func TestIdempotencyKeyIgnoresIDOrder(t *testing.T) {
	a := IdempotencyKey("charge", "b1", "s1", SortedJoin([]string{"p2", "p1"}))
	b := IdempotencyKey("charge", "b1", "s1", SortedJoin([]string{"p1", "p2"}))
	c := IdempotencyKey("charge", "b1", "s2", SortedJoin([]string{"p1", "p2"}))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 7, ParseInt("7", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("x", 1))
	assert.Equal(t, 10, ParseInt("0", 10))
}

func TestValidateStructReportsJSONNames(t *testing.T) {
	type req struct {
		Reason string `json:"reason" validate:"required,notblank"`
		Count  int    `json:"count" validate:"gte=1,lte=4"`
	}

	errs := ValidateStruct(req{Reason: "  ", Count: 9})
	assert.Equal(t, "This field is required", errs["reason"])
	assert.Equal(t, "Must be at most 4", errs["count"])

	assert.Empty(t, ValidateStruct(req{Reason: "comped", Count: 2}))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$25.00", FormatCents(2500))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "-$1.50", FormatCents(-150))
}
