package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/config"
)

// TaskState is the remote job lifecycle state.
type TaskState string

const (
	StateWaiting    TaskState = "waiting"
	StateQueuing    TaskState = "queuing"
	StateGenerating TaskState = "generating"
	StateSuccess    TaskState = "success"
	StateFail       TaskState = "fail"
)

// Terminal reports whether the state ends the job lifecycle.
func (s TaskState) Terminal() bool {
	return s == StateSuccess || s == StateFail
}

// TaskStatus is one recordInfo snapshot.
type TaskStatus struct {
	TaskID     string
	State      TaskState
	ResultJSON string
	FailCode   string
	FailMsg    string
}

// Result is the parsed resultJson payload of a successful task.
type Result struct {
	ResultURLs          []string `json:"resultUrls"`
	ResultWaterMarkURLs []string `json:"resultWaterMarkUrls"`
}

// ParseResult decodes the resultJson payload. Empty payloads yield an
// empty Result rather than an error.
func (t TaskStatus) ParseResult() (Result, error) {
	var r Result
	if strings.TrimSpace(t.ResultJSON) == "" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(t.ResultJSON), &r); err != nil {
		return r, fmt.Errorf("parse resultJson: %w", err)
	}
	return r, nil
}

// Client talks to the Kie.ai jobs API. It is split-phase: CreateTask
// submits, Status samples; the caller owns the polling cadence.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.KIEAPIKey,
		baseURL: strings.TrimRight(cfg.KIEBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Configured reports whether the client carries credentials. An
// unconfigured client disables generation instead of crashing.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateTask submits a generation job and returns the remote task id.
func (c *Client) CreateTask(ctx context.Context, model string, input map[string]any) (string, error) {
	fullURL, err := c.endpoint("/api/v1/jobs/createTask", nil)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model": model,
		"input": input,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	c.log.Info("creating KIE task", "url", fullURL, "model", model)

	rawBody, err := c.do(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var createResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &createResp); err != nil {
		return "", fmt.Errorf("decode create task response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if createResp.Code != 200 {
		return "", fmt.Errorf("create task failed: code=%d msg=%s", createResp.Code, createResp.Msg)
	}
	if createResp.Data.TaskID == "" {
		return "", fmt.Errorf("empty taskId in response")
	}

	c.log.Info("KIE task created", "task_id", createResp.Data.TaskID)
	return createResp.Data.TaskID, nil
}

// Status fetches one status snapshot for the task.
func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	params := url.Values{}
	params.Set("taskId", taskID)
	fullURL, err := c.endpoint("/api/v1/jobs/recordInfo", params)
	if err != nil {
		return nil, err
	}

	rawBody, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	var statusResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID     string `json:"taskId"`
			State      string `json:"state"`
			ResultJSON string `json:"resultJson"`
			FailCode   string `json:"failCode"`
			FailMsg    string `json:"failMsg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &statusResp); err != nil {
		return nil, fmt.Errorf("decode status response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if statusResp.Code != 200 {
		return nil, fmt.Errorf("get task status failed: code=%d msg=%s", statusResp.Code, statusResp.Msg)
	}

	return &TaskStatus{
		TaskID:     statusResp.Data.TaskID,
		State:      TaskState(statusResp.Data.State),
		ResultJSON: statusResp.Data.ResultJSON,
		FailCode:   statusResp.Data.FailCode,
		FailMsg:    statusResp.Data.FailMsg,
	}, nil
}

// Credits returns the remaining upstream credit balance.
func (c *Client) Credits(ctx context.Context) (decimal.Decimal, error) {
	fullURL, err := c.endpoint("/api/v1/chat/credit", nil)
	if err != nil {
		return decimal.Zero, err
	}

	rawBody, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var creditResp struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data json.Number `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &creditResp); err != nil {
		return decimal.Zero, fmt.Errorf("decode credit response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if creditResp.Code != 200 {
		return decimal.Zero, fmt.Errorf("get credits failed: code=%d msg=%s", creditResp.Code, creditResp.Msg)
	}

	credits, err := decimal.NewFromString(creditResp.Data.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse credits %q: %w", creditResp.Data.String(), err)
	}
	return credits, nil
}

func (c *Client) endpoint(path string, params url.Values) (string, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ep, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if params != nil {
		ep.RawQuery = params.Encode()
	}
	return baseURL.ResolveReference(ep).String(), nil
}

func (c *Client) do(ctx context.Context, method, fullURL string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kie request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("KIE request failed", "status", resp.StatusCode, "url", fullURL, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("kie error: status=%d url=%s body=%s", resp.StatusCode, fullURL, truncateBody(rawBody))
	}
	return rawBody, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
