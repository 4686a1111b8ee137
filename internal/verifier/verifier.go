package verifier

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Result is the heuristic verdict for one payment screenshot.
type Result struct {
	Valid         bool
	AmountFound   bool
	FoundAmount   decimal.Decimal
	PhoneChecked  bool
	PhoneFound    bool
	KeywordsFound bool
	// FailOpen marks verdicts granted without a real check (OCR missing
	// or analysis error). The payment row is recorded unverified.
	FailOpen bool
	Message  string
}

// Payment-indicative vocabulary, Russian and English. The text is
// lowercased before matching.
var paymentKeywords = []string{
	"перевод", "оплата", "платеж", "спб", "сбп", "payment", "transfer",
	"отправлено", "успешно", "success", "получатель",
	"сумма", "итого", "amount", "total", "переведено",
	"квитанция", "receipt", "статус", "status", "комиссия", "commission",
}

// Ordered amount matchers: currency-symbol adjacent, keyword adjacent,
// misrecognized currency glyphs (OCR reads ₽ as B or 2), then a bare
// 2-6 digit scan as a last resort. All matches are pooled; selection
// happens against the expected amount afterwards.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+[.,]\d+)\s*[₽рубР]`),
	regexp.MustCompile(`(?i)(\d+)\s*[₽рубР]`),
	regexp.MustCompile(`(?i)[₽рубР]\s*(\d+[.,]\d+)`),
	regexp.MustCompile(`(?i)[₽рубР]\s*(\d+)`),
	regexp.MustCompile(`(?i)(?:сумма|итого|перевод|amount|total)[:\s]+(\d+[.,]?\d*)`),
	regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*(?:сумма|итого|перевод|amount|total)`),
	regexp.MustCompile(`(?i)(?:сумма|итого|перевод|amount|total)[:\s]*(\d+[.,]?\d*)\s*[₽рубР]?`),
	regexp.MustCompile(`(?i)(\d+)\s*[B2]`),
	regexp.MustCompile(`(?i)(\d+)\s*[₽рубРB2]`),
	regexp.MustCompile(`\b(\d{2,6})\b`),
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?7\d{10}`),
	regexp.MustCompile(`\+?7\s?\d{3}\s?\d{3}\s?\d{2}\s?\d{2}`),
	regexp.MustCompile(`\d{11}`),
	regexp.MustCompile(`\+?\d\s?\d{3}\s?\d{3}\s?\d{2}\s?\d{2}`),
}

var phoneSeparators = regexp.MustCompile(`[+\s\-()]`)

// Verifier inspects payment screenshots against an expected top-up
// amount and optionally the configured payout phone number.
type Verifier struct {
	ocr TextExtractor
	log *slog.Logger
}

func New(ocr TextExtractor, log *slog.Logger) *Verifier {
	return &Verifier{ocr: ocr, log: log}
}

// Analyze produces a verdict for one screenshot. It never fails closed: a
// missing OCR engine or an extraction error yields Valid=true with
// FailOpen set, so a verifier malfunction cannot block a legitimate
// top-up.
func (v *Verifier) Analyze(ctx context.Context, image []byte, expectedAmount decimal.Decimal, expectedPhone string) Result {
	if v.ocr == nil || !v.ocr.Available() {
		return Result{
			Valid:    true,
			FailOpen: true,
			Message:  "ℹ️ OCR недоступен. Баланс начислен автоматически.",
		}
	}

	text, err := v.ocr.ExtractText(ctx, image, "rus+eng")
	if err != nil {
		v.log.Warn("bilingual OCR pass failed, retrying with eng", "err", err)
		text, err = v.ocr.ExtractText(ctx, image, "eng")
	}
	if err != nil {
		v.log.Warn("screenshot analysis failed open", "err", err)
		return Result{
			Valid:    true,
			FailOpen: true,
			Message:  "⚠️ Ошибка анализа изображения. Проверка выполняется вручную.",
		}
	}

	text = strings.ToLower(text)
	v.log.Debug("extracted screenshot text", "chars", len(text))

	res := Result{KeywordsFound: hasPaymentKeywords(text)}

	res.AmountFound, res.FoundAmount = matchAmount(text, expectedAmount)

	if expectedPhone != "" {
		res.PhoneChecked = true
		res.PhoneFound = matchPhone(text, expectedPhone)
		res.Valid = (res.AmountFound || res.PhoneFound) && res.KeywordsFound
	} else {
		res.Valid = res.AmountFound && res.KeywordsFound
	}

	res.Message = buildMessage(res, expectedAmount)
	return res
}

func hasPaymentKeywords(text string) bool {
	for _, kw := range paymentKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// matchAmount pools every numeric candidate and picks the best: within 1
// absolute unit or 10% relative of expected; failing that, any plausible
// [10, 100000] candidate within 10 absolute units.
func matchAmount(text string, expected decimal.Decimal) (bool, decimal.Decimal) {
	seen := make(map[string]bool)
	var candidates []decimal.Decimal
	for _, pattern := range amountPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(m[1], ",", ".")
			amt, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			if key := amt.String(); !seen[key] {
				seen[key] = true
				candidates = append(candidates, amt)
			}
		}
	}
	if len(candidates) == 0 {
		return false, decimal.Zero
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].GreaterThan(candidates[j])
	})

	one := decimal.NewFromInt(1)
	tenth := decimal.RequireFromString("0.1")
	for _, amt := range candidates {
		diff := amt.Sub(expected).Abs()
		if diff.LessThan(one) {
			return true, amt
		}
		if expected.IsPositive() && diff.Div(expected).LessThan(tenth) {
			return true, amt
		}
	}

	low := decimal.NewFromInt(10)
	high := decimal.NewFromInt(100000)
	tolerance := decimal.NewFromInt(10)
	for _, amt := range candidates {
		if amt.LessThan(low) || amt.GreaterThan(high) {
			continue
		}
		if amt.Sub(expected).Abs().LessThan(tolerance) {
			return true, amt
		}
	}
	return false, decimal.Zero
}

// matchPhone accepts an exact normalized match or a 10-digit suffix match.
func matchPhone(text, expected string) bool {
	normalizedExpected := phoneSeparators.ReplaceAllString(expected, "")
	if normalizedExpected == "" {
		return false
	}
	suffix := normalizedExpected
	if len(suffix) > 10 {
		suffix = suffix[len(suffix)-10:]
	}
	for _, pattern := range phonePatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			normalized := phoneSeparators.ReplaceAllString(m, "")
			if normalized == normalizedExpected || strings.HasSuffix(normalized, suffix) {
				return true
			}
		}
	}
	return false
}

func buildMessage(res Result, expected decimal.Decimal) string {
	var parts []string
	if res.AmountFound {
		parts = append(parts, "✅ Сумма найдена: "+res.FoundAmount.StringFixed(2)+" ₽")
	} else {
		parts = append(parts, "⚠️ Сумма "+expected.StringFixed(2)+" ₽ не найдена в скриншоте")
	}
	if res.PhoneChecked {
		if res.PhoneFound {
			parts = append(parts, "✅ Номер телефона найден")
		} else {
			parts = append(parts, "⚠️ Номер телефона не найден")
		}
	}
	if res.KeywordsFound {
		parts = append(parts, "✅ Обнаружены признаки платежа")
	} else {
		parts = append(parts, "⚠️ Признаки платежа не обнаружены")
	}
	return strings.Join(parts, "\n")
}
