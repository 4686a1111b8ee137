package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/kie"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/repository"
)

// ErrNotConfigured disables generation when the upstream API credentials
// are missing. The bot stays up and tells the user instead of crashing.
var ErrNotConfigured = errors.New("generation API is not configured")

// maxArtifacts caps how many result URLs are delivered per job.
const maxArtifacts = 5

// InsufficientBalanceError carries the shortfall details for the
// user-facing message.
type InsufficientBalanceError struct {
	Price   decimal.Decimal
	Balance decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %s, have %s", e.Price, e.Balance)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// LimitExceededError carries a delegated admin's cap details.
type LimitExceededError struct {
	Price     decimal.Decimal
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("admin limit exceeded: need %s, remaining %s", e.Price, e.Remaining)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// TaskClient is the slice of the Kie client the orchestrator needs.
type TaskClient interface {
	Configured() bool
	CreateTask(ctx context.Context, model string, input map[string]any) (string, error)
}

// GenerationService gates, submits and settles generation jobs. Polling
// itself lives in the poller registry; this service owns the pricing
// checks before submission and the exactly-once charge after success.
type GenerationService struct {
	log         *slog.Logger
	ledger      *LedgerService
	generations *repository.GenerationRepository
	kie         TaskClient
	httpClient  *http.Client
}

func NewGenerationService(log *slog.Logger, ledger *LedgerService, generations *repository.GenerationRepository, client TaskClient) *GenerationService {
	return &GenerationService{
		log:         log,
		ledger:      ledger,
		generations: generations,
		kie:         client,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Submit re-validates balance or limit sufficiency (it may have changed
// since the form was shown) and creates the remote task. Nothing is
// charged here; the charge happens once, on success.
func (s *GenerationService) Submit(ctx context.Context, userID int64, schema catalog.Schema, params map[string]any) (string, error) {
	if !s.kie.Configured() {
		return "", ErrNotConfigured
	}

	blocked, err := s.ledger.IsBlocked(ctx, userID)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", ErrBlocked
	}

	role, err := s.ledger.RoleFor(ctx, userID)
	if err != nil {
		return "", err
	}
	price := pricing.Price(schema.ID, params, role)

	switch role {
	case models.RoleUser:
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return "", err
		}
		if balance.LessThan(price) {
			return "", &InsufficientBalanceError{Price: price, Balance: balance}
		}
	case models.RoleAdmin:
		remaining, capped, err := s.ledger.RemainingFor(ctx, userID)
		if err != nil {
			return "", err
		}
		if capped && remaining.LessThan(price) {
			limit, _, limitErr := s.ledger.LimitFor(ctx, userID)
			if limitErr != nil {
				return "", limitErr
			}
			spent, spentErr := s.ledger.SpentFor(ctx, userID)
			if spentErr != nil {
				return "", spentErr
			}
			return "", &LimitExceededError{Price: price, Limit: limit, Spent: spent, Remaining: remaining}
		}
	}

	taskID, err := s.kie.CreateTask(ctx, schema.ID, buildInput(schema, params))
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	s.log.Info("generation submitted", "user", userID, "model", schema.ID, "task_id", taskID)
	return taskID, nil
}

// Settle performs the exactly-once charge for a successful job: debit for
// regular users, spent-counter bump for delegated admins, nothing for the
// root admin. A debit shortfall at settlement time (balance spent since
// submission) is logged but does not undo delivery.
func (s *GenerationService) Settle(ctx context.Context, userID int64, schema catalog.Schema, params map[string]any, taskID string, role models.Role) decimal.Decimal {
	price := pricing.Price(schema.ID, params, role)

	var charged decimal.Decimal
	switch role {
	case models.RoleUser:
		if err := s.ledger.Debit(ctx, userID, price); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				s.log.Warn("settlement shortfall, delivering anyway", "user", userID, "task_id", taskID, "price", price)
			} else {
				s.log.Error("settlement debit failed", "user", userID, "task_id", taskID, "err", err)
			}
		} else {
			charged = price
		}
	case models.RoleAdmin:
		if err := s.ledger.AddSpent(ctx, userID, price); err != nil {
			s.log.Error("settlement add spent failed", "user", userID, "task_id", taskID, "err", err)
		} else {
			charged = price
		}
	case models.RoleRoot:
		// Uncapped, uncharged.
	}

	s.logOutcome(ctx, &models.GenerationLog{
		UserID:  userID,
		ModelID: schema.ID,
		TaskID:  taskID,
		Status:  models.GenerationSucceeded,
		Charged: charged,
	})
	return charged
}

// LogFailure records a terminal remote failure. Nothing is charged.
func (s *GenerationService) LogFailure(ctx context.Context, userID int64, modelID, taskID, failCode, failMsg string) {
	s.logOutcome(ctx, &models.GenerationLog{
		UserID:   userID,
		ModelID:  modelID,
		TaskID:   taskID,
		Status:   models.GenerationFailed,
		FailCode: failCode,
		FailMsg:  failMsg,
	})
}

// LogTimeout records a poll-cap expiry. Nothing is charged.
func (s *GenerationService) LogTimeout(ctx context.Context, userID int64, modelID, taskID string) {
	s.logOutcome(ctx, &models.GenerationLog{
		UserID:  userID,
		ModelID: modelID,
		TaskID:  taskID,
		Status:  models.GenerationTimedOut,
	})
}

func (s *GenerationService) logOutcome(ctx context.Context, log *models.GenerationLog) {
	if err := s.generations.Log(ctx, log); err != nil {
		s.log.Error("failed to log generation", "user", log.UserID, "task_id", log.TaskID, "err", err)
	}
}

// GenerationTotals reports lifetime successful generations and revenue.
func (s *GenerationService) GenerationTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	return s.generations.Totals(ctx)
}

// ResultURLs extracts the deliverable artifact URLs from a successful
// status, capped at maxArtifacts. For sora-2-text-to-video the
// remove_watermark parameter selects between the watermark-free and
// watermarked field sets, falling back when the preferred one is empty.
func ResultURLs(schema catalog.Schema, params map[string]any, status *kie.TaskStatus) ([]string, error) {
	result, err := status.ParseResult()
	if err != nil {
		return nil, err
	}

	urls := result.ResultURLs
	if schema.ID == "sora-2-text-to-video" {
		removeWatermark := true
		if v, ok := params["remove_watermark"].(bool); ok {
			removeWatermark = v
		}
		if !removeWatermark {
			urls = result.ResultWaterMarkURLs
			if len(urls) == 0 {
				urls = result.ResultURLs
			}
		}
	}

	if len(urls) > maxArtifacts {
		urls = urls[:maxArtifacts]
	}
	return urls, nil
}

// FetchArtifact downloads one result artifact for native re-upload
// (delivery tier one).
func (s *GenerationService) FetchArtifact(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new artifact request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artifact: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// buildInput assembles the remote input payload. seedream/4.5-edit names
// its image list image_urls on the wire while the form collects it as
// image_input.
func buildInput(schema catalog.Schema, params map[string]any) map[string]any {
	input := make(map[string]any, len(params))
	for k, v := range params {
		input[k] = v
	}
	if schema.ID == "seedream/4.5-edit" {
		if imgs, ok := input["image_input"]; ok {
			input["image_urls"] = imgs
			delete(input, "image_input")
		}
	}
	return input
}
