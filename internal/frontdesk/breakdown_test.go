package frontdesk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestComposeFeeBreakdown(t *testing.T) {
	got := ComposeFeeBreakdown(owedRoster())
	assert.Equal(t, "Olive Owner: $15.00 (Overage fee); Gus: $10.00; Total: $25.00", got)
}

func TestComposeFeeBreakdownSkipsSettled(t *testing.T) {
	r := owedRoster()
	r.Guests[0].PaymentStatus = "paid"

	assert.Equal(t, "Olive Owner: $15.00 (Overage fee); Total: $15.00", ComposeFeeBreakdown(r))
}

func TestComposeFeeBreakdownTruncates(t *testing.T) {
	r := owedRoster()
	r.Members[0].DisplayName = strings.Repeat("é", 600)

	got := ComposeFeeBreakdown(r)
	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.True(t, strings.HasPrefix(got, "éé"))
}
