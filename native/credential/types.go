package credential

import (
	"math/big"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

const (
	// InitialScore is the reliability score assigned before any payment
	// has been attested.
	InitialScore = 500
	// ScoreScale is the upper bound of the reliability score.
	ScoreScale = 1000
)

// UserProfile is the per-user aggregate maintained by the registry. It is
// created once and never deleted; only RegisterPayment mutates it.
type UserProfile struct {
	UserHash       crypto.Hash `json:"userHash"`
	TotalPayments  uint64      `json:"totalPayments"`
	OnTimePayments uint64      `json:"onTimePayments"`
	Score          uint64      `json:"score"`
	LastUpdate     int64       `json:"lastUpdate"`
	Exists         bool        `json:"exists"`
}

// PaymentRecord is an immutable entry in a user's payment history.
type PaymentRecord struct {
	UserHash    crypto.Hash `json:"userHash"`
	PaymentHash crypto.Hash `json:"paymentHash"`
	Amount      *big.Int    `json:"amount"`
	DueDate     int64       `json:"dueDate"`
	PaymentDate int64       `json:"paymentDate"`
	IsOnTime    bool        `json:"isOnTime"`
	EntityHash  crypto.Hash `json:"entityHash"`
	Category    string      `json:"category"`
}

// Payment is the attested payment submitted by a reporting entity.
type Payment struct {
	UserHash    crypto.Hash
	Amount      *big.Int
	DueDate     int64
	PaymentDate int64
	EntityHash  crypto.Hash
	Category    string
}

// Outcome is the result of a registered payment. It is the sole input the
// reward ledger consumes.
type Outcome struct {
	PaymentHash crypto.Hash
	IsOnTime    bool
	NewScore    uint64
}

// UserStats is the read-model served to the presentation layer.
type UserStats struct {
	TotalPayments    uint64 `json:"totalPayments"`
	OnTimePayments   uint64 `json:"onTimePayments"`
	Score            uint64 `json:"score"`
	OnTimePercentage uint64 `json:"onTimePercentage"`
}
