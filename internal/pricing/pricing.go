package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/models"
)

// Conversion constants. Based on: 18 credits = $0.09 = 6.95 ₽.
var (
	// CreditToUSD is the cost of one upstream credit in USD.
	CreditToUSD = decimal.RequireFromString("0.005")
	// USDToRUB is derived from 6.95 ₽ / $0.09.
	USDToRUB = decimal.RequireFromString("6.95").Div(decimal.RequireFromString("0.09"))
	// UserMarkup is applied to regular users; admins pay the raw rate.
	UserMarkup = decimal.NewFromInt(2)

	defaultBaseCredits = decimal.NewFromInt(1)
)

// baseCredits returns the upstream credit cost for one request. Unknown
// model ids fall back to a default rather than failing.
func baseCredits(modelID string, params map[string]any) decimal.Decimal {
	switch modelID {
	case "z-image":
		return decimal.RequireFromString("0.8")
	case "nano-banana-pro":
		if res, _ := params["resolution"].(string); res == "4K" {
			return decimal.NewFromInt(24)
		}
		return decimal.NewFromInt(18)
	case "seedream/4.5-text-to-image", "seedream/4.5-edit":
		return decimal.RequireFromString("6.5")
	case "sora-watermark-remover":
		return decimal.NewFromInt(10)
	case "sora-2-text-to-video":
		return decimal.NewFromInt(30)
	default:
		return defaultBaseCredits
	}
}

// Price computes the unrounded price in rubles for one generation.
// Deterministic and side-effect free; rounding is display-only (FormatRUB).
func Price(modelID string, params map[string]any, role models.Role) decimal.Decimal {
	rub := baseCredits(modelID, params).Mul(CreditToUSD).Mul(USDToRUB)
	if role == models.RoleUser {
		rub = rub.Mul(UserMarkup)
	}
	return rub
}

// CreditsToRUB converts a raw upstream credit amount to rubles at the
// unmarked-up rate.
func CreditsToRUB(credits decimal.Decimal) decimal.Decimal {
	return credits.Mul(CreditToUSD).Mul(USDToRUB)
}

// FormatRUB renders an amount rounded to 2 decimals for display.
func FormatRUB(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2) + " ₽"
}
