package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/watchstore/pkg/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPricingCompute(t *testing.T) {
	p := DefaultPricing()

	tests := []struct {
		name                 string
		subtotal             string
		tax, shipping, total string
	}{
		{name: "free shipping above threshold", subtotal: "600", tax: "48", shipping: "0", total: "648"},
		{name: "threshold itself pays shipping", subtotal: "500", tax: "40", shipping: "25", total: "565"},
		{name: "small order", subtotal: "100", tax: "8", shipping: "25", total: "133"},
		{name: "tax rounds to cents", subtotal: "199.99", tax: "16", shipping: "25", total: "240.99"},
		{name: "sub-cent tax rounds down", subtotal: "10.01", tax: "0.80", shipping: "25", total: "35.81"},
		{name: "sub-cent tax rounds up", subtotal: "0.99", tax: "0.08", shipping: "25", total: "26.07"},
		{name: "fractional subtotal above threshold", subtotal: "500.01", tax: "40", shipping: "0", total: "540.01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Compute(dec(tc.subtotal))
			assert.True(t, dec(tc.tax).Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, dec(tc.shipping).Equal(got.Shipping), "shipping %s", got.Shipping)
			assert.True(t, dec(tc.total).Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax).Add(got.Shipping)))
			assert.GreaterOrEqual(t, got.Tax.Exponent(), int32(-2), "tax %s has sub-cent digits", got.Tax)
		})
	}
}

func TestNumberGenerator(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		g := NewNumberGenerator("WS")
		g.now = func() time.Time { return time.UnixMilli(1_700_000_123_456) }
		g.counter.Store(41)

		assert.Equal(t, "WS123456041", g.Next())
		assert.Equal(t, "WS123456042", g.Next())
	})

	t.Run("unique across 1000 orders in the same millisecond", func(t *testing.T) {
		g := NewNumberGenerator("WS")
		fixed := time.Now()
		g.now = func() time.Time { return fixed }

		seen := make(map[string]bool, 1000)
		for i := 0; i < 1000; i++ {
			n := g.Next()
			require.False(t, seen[n], "duplicate %s", n)
			seen[n] = true
		}
	})

	t.Run("suffix wraps", func(t *testing.T) {
		g := NewNumberGenerator("WS")
		g.now = func() time.Time { return time.UnixMilli(0) }
		g.counter.Store(999)

		assert.Equal(t, "WS000000999", g.Next())
		assert.Equal(t, "WS000000000", g.Next())
	})
}

func TestAddress(t *testing.T) {
	a := Address{FirstName: " Ann ", LastName: "Lee", Street: "1 Main", City: "Austin", State: "TX", ZipCode: "78701"}.Normalize()
	assert.Equal(t, "Ann", a.FirstName)
	assert.Equal(t, DefaultCountry, a.Country)
	require.NoError(t, a.Validate("shippingAddress"))

	a.City = "  "
	err := a.Validate("shippingAddress")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "shippingAddress.city is required", apperr.MessageOf(err))
}

func TestCancel(t *testing.T) {
	actor := uuid.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending order", func(t *testing.T) {
		o := Order{Status: StatusPending}
		tr, err := o.Cancel(actor, now)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, Transition{From: StatusPending, To: StatusCancelled, Actor: actor, At: now}, tr)
		assert.Len(t, o.History, 1)
	})

	for _, s := range []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		t.Run(string(s)+" order", func(t *testing.T) {
			o := Order{Status: s}
			_, err := o.Cancel(actor, now)
			require.ErrorIs(t, err, ErrNotCancellable)
			assert.Equal(t, s, o.Status)
			assert.Empty(t, o.History)
		})
	}
}

func TestSetStatus(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	o := Order{Status: StatusPending}
	_, err := o.SetStatus(StatusShipped, "TRK1", "", actor, now)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "TRK1", o.TrackingNumber)
	assert.Empty(t, o.Notes)

	_, err = o.SetStatus(StatusPending, "", "back to start", actor, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "TRK1", o.TrackingNumber, "tracking is never cleared")
	assert.Equal(t, "back to start", o.Notes)
	assert.Len(t, o.History, 2)

	_, err = o.SetStatus("lost", "", "", actor, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Len(t, o.History, 2)
}

func TestQuantities(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := Order{Items: []LineItem{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 3}}}
	assert.Equal(t, map[uuid.UUID]int{a: 4, b: 2}, o.Quantities())
}
