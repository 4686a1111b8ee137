package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/kie"
)

func mustSchema(t *testing.T, id string) catalog.Schema {
	t.Helper()
	s, ok := catalog.ByID(id)
	require.True(t, ok, "schema %s", id)
	return s
}

func successStatus(resultJSON string) *kie.TaskStatus {
	return &kie.TaskStatus{State: kie.StateSuccess, ResultJSON: resultJSON}
}

func TestResultURLsPlainModel(t *testing.T) {
	urls, err := ResultURLs(mustSchema(t, "z-image"), nil,
		successStatus(`{"resultUrls":["https://r.example/a.png","https://r.example/b.png"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://r.example/a.png", "https://r.example/b.png"}, urls)
}

func TestResultURLsCapped(t *testing.T) {
	var list string
	for i := 0; i < 7; i++ {
		if i > 0 {
			list += ","
		}
		list += fmt.Sprintf("%q", fmt.Sprintf("https://r.example/%d.png", i))
	}
	urls, err := ResultURLs(mustSchema(t, "z-image"), nil, successStatus(`{"resultUrls":[`+list+`]}`))
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestResultURLsWatermarkRemoved(t *testing.T) {
	status := successStatus(`{"resultUrls":["https://r.example/clean.mp4"],"resultWaterMarkUrls":["https://r.example/marked.mp4"]}`)
	urls, err := ResultURLs(mustSchema(t, "sora-2-text-to-video"),
		map[string]any{"remove_watermark": true}, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://r.example/clean.mp4"}, urls)
}

func TestResultURLsWatermarkKept(t *testing.T) {
	status := successStatus(`{"resultUrls":["https://r.example/clean.mp4"],"resultWaterMarkUrls":["https://r.example/marked.mp4"]}`)
	urls, err := ResultURLs(mustSchema(t, "sora-2-text-to-video"),
		map[string]any{"remove_watermark": false}, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://r.example/marked.mp4"}, urls)
}

func TestResultURLsWatermarkFallback(t *testing.T) {
	status := successStatus(`{"resultUrls":["https://r.example/clean.mp4"]}`)
	urls, err := ResultURLs(mustSchema(t, "sora-2-text-to-video"),
		map[string]any{"remove_watermark": false}, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://r.example/clean.mp4"}, urls)
}

func TestResultURLsBadJSON(t *testing.T) {
	_, err := ResultURLs(mustSchema(t, "z-image"), nil, successStatus(`{broken`))
	assert.Error(t, err)
}

func TestBuildInputRenamesSeedreamEditImages(t *testing.T) {
	input := buildInput(mustSchema(t, "seedream/4.5-edit"), map[string]any{
		"prompt":      "убрать фон",
		"image_input": []string{"https://cdn.example/a.png"},
	})
	assert.NotContains(t, input, "image_input")
	assert.Equal(t, []string{"https://cdn.example/a.png"}, input["image_urls"])
	assert.Equal(t, "убрать фон", input["prompt"])
}

func TestBuildInputLeavesOtherModelsAlone(t *testing.T) {
	params := map[string]any{
		"prompt":      "баннер",
		"image_input": []string{"https://cdn.example/a.png"},
	}
	input := buildInput(mustSchema(t, "nano-banana-pro"), params)
	assert.Equal(t, params["image_input"], input["image_input"])
	assert.NotContains(t, input, "image_urls")

	// The submission payload is a copy, not the session map.
	input["prompt"] = "другое"
	assert.Equal(t, "баннер", params["prompt"])
}

func TestGateErrorsUnwrapToSentinels(t *testing.T) {
	insufficient := &InsufficientBalanceError{
		Price:   decimal.NewFromInt(10),
		Balance: decimal.NewFromInt(3),
	}
	assert.True(t, errors.Is(insufficient, ErrInsufficientBalance))

	limit := &LimitExceededError{
		Price:     decimal.NewFromInt(10),
		Limit:     decimal.NewFromInt(100),
		Spent:     decimal.NewFromInt(95),
		Remaining: decimal.NewFromInt(5),
	}
	assert.True(t, errors.Is(limit, ErrLimitExceeded))
}

type unconfiguredClient struct{}

func (unconfiguredClient) Configured() bool { return false }

func (unconfiguredClient) CreateTask(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("unreachable")
}

// A missing API key disables generation instead of crashing the bot; the
// refusal must surface before any ledger access.
func TestSubmitRefusedWithoutAPIKey(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewGenerationService(log, nil, nil, unconfiguredClient{})

	_, err := svc.Submit(context.Background(), 1, mustSchema(t, "z-image"), map[string]any{"prompt": "кот"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
