package verifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	available bool
	text      string
	err       error
	calls     []string
}

func (f *fakeExtractor) Available() bool { return f.available }

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte, languages string) (string, error) {
	f.calls = append(f.calls, languages)
	return f.text, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rub(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestFailOpenWhenOCRMissing(t *testing.T) {
	for _, v := range []*Verifier{
		New(nil, discard()),
		New(&fakeExtractor{available: false}, discard()),
	} {
		res := v.Analyze(context.Background(), []byte("img"), rub("500"), "")
		assert.True(t, res.Valid)
		assert.True(t, res.FailOpen)
	}
}

func TestFailOpenWhenBothPassesError(t *testing.T) {
	ocr := &fakeExtractor{available: true, err: errors.New("tesseract crashed")}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	assert.True(t, res.Valid)
	assert.True(t, res.FailOpen)
	// The bilingual pass is tried first, then the english fallback.
	assert.Equal(t, []string{"rus+eng", "eng"}, ocr.calls)
}

func TestAcceptsAmountWithKeywords(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "Перевод выполнен\nСумма: 500 ₽\nСтатус: успешно"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	require.True(t, res.Valid)
	assert.False(t, res.FailOpen)
	assert.True(t, res.AmountFound)
	assert.True(t, res.KeywordsFound)
	assert.True(t, res.FoundAmount.Equal(rub("500")))
}

func TestRejectsAmountWithoutKeywords(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "просто текст с числом 500 ₽ посередине"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	assert.False(t, res.Valid)
	assert.True(t, res.AmountFound)
	assert.False(t, res.KeywordsFound)
}

func TestRejectsKeywordsWithoutAmount(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "Перевод выполнен успешно"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	assert.False(t, res.Valid)
	assert.False(t, res.AmountFound)
	assert.True(t, res.KeywordsFound)
}

func TestGlyphRepairReadsBAsRubleSign(t *testing.T) {
	// Tesseract commonly reads "₽" as "B".
	ocr := &fakeExtractor{available: true, text: "перевод 500 B итого"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	assert.True(t, res.Valid)
	assert.True(t, res.AmountFound)
}

func TestRelativeToleranceAcceptsNearbyAmount(t *testing.T) {
	// 5150 is within 10% of 5000.
	ocr := &fakeExtractor{available: true, text: "оплата: 5150 руб"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("5000"), "")

	assert.True(t, res.Valid)
	assert.True(t, res.FoundAmount.Equal(rub("5150")))
}

func TestDistantAmountRejected(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "оплата: 9000 руб"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	assert.False(t, res.Valid)
	assert.False(t, res.AmountFound)
}

func TestDecimalCommaAmount(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "перевод 499,90 ₽"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "")

	require.True(t, res.AmountFound)
	assert.True(t, res.FoundAmount.Equal(rub("499.90")))
}

func TestPhoneMatchRescuesMissingAmount(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "перевод получателю +7 912 345 67 89 выполнен"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "+7 (912) 345-67-89")

	assert.True(t, res.Valid)
	assert.True(t, res.PhoneChecked)
	assert.True(t, res.PhoneFound)
	assert.False(t, res.AmountFound)
}

func TestWrongPhoneAndNoAmountRejected(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "перевод получателю 79990001122 выполнен"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("500"), "+79123456789")

	assert.False(t, res.Valid)
	assert.True(t, res.PhoneChecked)
	assert.False(t, res.PhoneFound)
}

func TestMessageMentionsExpectedAmountOnMiss(t *testing.T) {
	ocr := &fakeExtractor{available: true, text: "перевод выполнен"}
	res := New(ocr, discard()).Analyze(context.Background(), []byte("img"), rub("750"), "")

	assert.Contains(t, res.Message, "750.00")
}

func TestMatchAmountPicksLargestPassingCandidate(t *testing.T) {
	// Comission lines add extra numbers; the largest match wins.
	found, amt := matchAmount("сумма: 500 ₽ комиссия: 5 ₽ итого 500", rub("500"))
	require.True(t, found)
	assert.True(t, amt.Equal(rub("500")))
}
