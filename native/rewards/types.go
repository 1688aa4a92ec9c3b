package rewards

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

// TokenDecimals is the fixed-point precision of the reward token.
const TokenDecimals = 18

// Tokens converts a whole-token count into base units.
func Tokens(n int64) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
	return new(big.Int).Mul(big.NewInt(n), unit)
}

// Params configures the reward computation.
type Params struct {
	// BasePerPayment is the reward for a single on-time payment.
	BasePerPayment *big.Int
	// BonusThreshold is the consecutive on-time count at which the bonus
	// multiplier starts to apply.
	BonusThreshold uint32
	// BonusMultiplier scales the base reward once the threshold is reached.
	BonusMultiplier uint32
	// InitialReserve seeds the ledger's own balance at genesis.
	InitialReserve *big.Int
}

// ApplyDefaults ensures unset fields fall back to module defaults.
func (p *Params) ApplyDefaults() *Params {
	if p == nil {
		return nil
	}
	if p.BasePerPayment == nil || p.BasePerPayment.Sign() <= 0 {
		p.BasePerPayment = Tokens(100)
	}
	if p.BonusThreshold == 0 {
		p.BonusThreshold = 10
	}
	if p.BonusMultiplier == 0 {
		p.BonusMultiplier = 2
	}
	if p.InitialReserve == nil || p.InitialReserve.Sign() <= 0 {
		p.InitialReserve = Tokens(1_000_000)
	}
	return p
}

// DefaultParams returns the shipped reward configuration.
func DefaultParams() Params {
	p := Params{}
	p.ApplyDefaults()
	return p
}

// Account tracks the reward state for a user hash. The address binding is
// set once; token balances are held by the address, not by this record.
type Account struct {
	UserHash         crypto.Hash `json:"userHash"`
	Address          []byte      `json:"address"`
	ConsecutiveCount uint32      `json:"consecutiveCount"`
	TotalEarned      *big.Int    `json:"totalEarned"`
}

// Info is the read-model describing the reward configuration.
type Info struct {
	BasePerPayment  *big.Int `json:"basePerPayment"`
	BonusThreshold  uint32   `json:"bonusThreshold"`
	BonusMultiplier uint32   `json:"bonusMultiplier"`
}

// UserStats is the read-model for a user's reward standing.
type UserStats struct {
	ConsecutiveCount uint32
	TotalEarned      *big.Int
	Balance          *big.Int
	Address          crypto.Address
}

// Distribution reports the effect of one DistributeReward call.
type Distribution struct {
	Amount           *big.Int
	ConsecutiveCount uint32
	BonusApplied     bool
}

// ReserveAddress derives the module address holding the reward reserve.
func ReserveAddress() crypto.Address {
	sum := ethcrypto.Keccak256([]byte("rewards/reserve"))
	return crypto.NewAddress(crypto.CredPrefix, sum[12:])
}
