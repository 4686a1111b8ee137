package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role determines the pricing multiplier and the spending cap.
type Role int

const (
	// RoleUser pays the marked-up price from a prepaid balance.
	RoleUser Role = iota
	// RoleAdmin pays the raw price against a configured monthly limit.
	RoleAdmin
	// RoleRoot pays the raw price with no cap.
	RoleRoot
)

func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleRoot }

type Account struct {
	UserID    int64
	Balance   decimal.Decimal
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdminLimit tracks a delegated admin's spending against their cap.
type AdminLimit struct {
	UserID    int64
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	UpdatedAt time.Time
}

// Payment is one verified (or fail-open accepted) top-up. Rows are
// append-only; every row accompanies exactly one balance credit.
type Payment struct {
	ID            int64
	UserID        int64
	Amount        decimal.Decimal
	ScreenshotRef string
	Verified      bool
	Detail        string
	CreatedAt     time.Time
}

type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "success"
	GenerationFailed    GenerationStatus = "fail"
	GenerationTimedOut  GenerationStatus = "timeout"
)

// GenerationLog records one terminal generation outcome.
type GenerationLog struct {
	ID        int64
	UserID    int64
	ModelID   string
	TaskID    string
	Status    GenerationStatus
	Charged   decimal.Decimal
	FailCode  string
	FailMsg   string
	CreatedAt time.Time
}
