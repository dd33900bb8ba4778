package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, []string{"localhost:9092"}, c.KafkaBrokers)
	assert.Equal(t, "0.08", c.TaxRate.String())
	assert.Equal(t, "25", c.FlatShippingFee.String())
	assert.Equal(t, "500", c.FreeShippingThreshold.String())
	assert.Equal(t, 5*time.Minute, c.ProductCacheTTL)
	assert.Equal(t, "WS", c.OrderNumberPrefix)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FLAT_SHIPPING_FEE", "15")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "15", c.FlatShippingFee.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
}

func TestLoadRejectsNegativePricing(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TAX_RATE", "-0.1")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "placeholder")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := Load()
	assert.Error(t, err)
}
