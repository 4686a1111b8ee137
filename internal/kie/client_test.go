package kie

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{
		KIEAPIKey:      "test-key",
		KIEBaseURL:     srv.URL,
		RequestTimeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConfigured(t *testing.T) {
	c := NewClient(config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, c.Configured())

	c = NewClient(config.Config{KIEAPIKey: "k"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.True(t, c.Configured())
}

func TestCreateTask(t *testing.T) {
	var gotAuth, gotPath string
	var gotPayload map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"code":200,"msg":"ok","data":{"taskId":"task-42"}}`))
	})

	taskID, err := c.CreateTask(context.Background(), "z-image", map[string]any{
		"prompt":       "кот",
		"aspect_ratio": "1:1",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-42", taskID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/api/v1/jobs/createTask", gotPath)
	assert.Equal(t, "z-image", gotPayload["model"])
	input, ok := gotPayload["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "кот", input["prompt"])
}

func TestCreateTaskAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":402,"msg":"insufficient credits"}`))
	})

	_, err := c.CreateTask(context.Background(), "z-image", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient credits")
}

func TestCreateTaskHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.CreateTask(context.Background(), "z-image", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestCreateTaskEmptyTaskID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"msg":"ok","data":{}}`))
	})

	_, err := c.CreateTask(context.Background(), "z-image", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty taskId")
}

func TestStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/recordInfo", r.URL.Path)
		assert.Equal(t, "task-42", r.URL.Query().Get("taskId"))
		_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-42","state":"success","resultJson":"{\"resultUrls\":[\"https://r.example/1.png\"]}"}}`))
	})

	status, err := c.Status(context.Background(), "task-42")
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, status.State)
	assert.True(t, status.State.Terminal())

	result, err := status.ParseResult()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://r.example/1.png"}, result.ResultURLs)
}

func TestStatusFailCarriesReason(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-9","state":"fail","failCode":"moderation","failMsg":"prompt rejected"}}`))
	})

	status, err := c.Status(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Equal(t, StateFail, status.State)
	assert.Equal(t, "moderation", status.FailCode)
	assert.Equal(t, "prompt rejected", status.FailMsg)
}

func TestParseResultEmptyPayload(t *testing.T) {
	result, err := (TaskStatus{}).ParseResult()
	require.NoError(t, err)
	assert.Empty(t, result.ResultURLs)
	assert.Empty(t, result.ResultWaterMarkURLs)
}

func TestCredits(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/credit", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":200,"data":123.45}`))
	})

	credits, err := c.Credits(context.Background())
	require.NoError(t, err)
	assert.True(t, credits.Equal(decimal.RequireFromString("123.45")))
}

func TestNonTerminalStates(t *testing.T) {
	for _, s := range []TaskState{StateWaiting, StateQueuing, StateGenerating} {
		assert.False(t, s.Terminal(), string(s))
	}
}
