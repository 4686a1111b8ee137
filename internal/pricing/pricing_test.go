package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/models"
)

func TestUserPriceIsDoubleAdminPrice(t *testing.T) {
	for _, schema := range catalog.All() {
		params := schema.Defaults()
		admin := Price(schema.ID, params, models.RoleAdmin)
		user := Price(schema.ID, params, models.RoleUser)
		require.True(t, user.Equal(admin.Mul(decimal.NewFromInt(2))),
			"model %s: user %s admin %s", schema.ID, user, admin)
	}
}

func TestRootPaysAdminRate(t *testing.T) {
	admin := Price("z-image", nil, models.RoleAdmin)
	root := Price("z-image", nil, models.RoleRoot)
	assert.True(t, admin.Equal(root))
}

func TestResolutionTier(t *testing.T) {
	base := Price("nano-banana-pro", map[string]any{"resolution": "2K"}, models.RoleAdmin)
	high := Price("nano-banana-pro", map[string]any{"resolution": "4K"}, models.RoleAdmin)
	require.True(t, high.GreaterThan(base))

	// 24 credits at $0.005 and 6.95/0.09 ₽ per dollar.
	assert.Equal(t, "9.27 ₽", FormatRUB(high))
	assert.Equal(t, "6.95 ₽", FormatRUB(base))
}

func TestZImageUserPrice(t *testing.T) {
	price := Price("z-image", nil, models.RoleUser)
	assert.Equal(t, "0.62 ₽", FormatRUB(price))
}

func TestUnknownModelFallsBack(t *testing.T) {
	price := Price("no-such-model", nil, models.RoleAdmin)
	assert.True(t, price.Equal(CreditsToRUB(decimal.NewFromInt(1))))
}

func TestPriceIsUnrounded(t *testing.T) {
	price := Price("z-image", nil, models.RoleUser)
	// The ledger stores the exact value; only display rounds.
	assert.False(t, price.Equal(price.Round(2)))
}

func TestFormatRUB(t *testing.T) {
	assert.Equal(t, "100.00 ₽", FormatRUB(decimal.NewFromInt(100)))
	assert.Equal(t, "0.31 ₽", FormatRUB(decimal.RequireFromString("0.30888")))
}
