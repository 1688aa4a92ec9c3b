package events

import (
	"math/big"
	"strconv"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

const (
	// TypeAddressBound is emitted when a reward address is bound to a user
	// hash. The binding is set-once.
	TypeAddressBound = "rewards.address.bound"
	// TypeRewardDistributed is emitted after reward tokens have been paid
	// out for an on-time payment.
	TypeRewardDistributed = "rewards.distributed"
	// TypeConsecutiveReset is emitted when a late payment resets the
	// consecutive on-time counter.
	TypeConsecutiveReset = "rewards.consecutive.reset"
	// TypeRewardSkipped is emitted when an on-time payment could not be
	// rewarded, e.g. because the reserve is exhausted.
	TypeRewardSkipped = "rewards.skipped"
	// TypeReserveMinted is emitted when the owner tops up the reserve.
	TypeReserveMinted = "rewards.reserve.minted"
	// TypeCallerAuthorized is emitted when the authorized-caller set changes.
	TypeCallerAuthorized = "rewards.caller.authorized"
)

// AddressBound captures the one-time binding of a payout address.
type AddressBound struct {
	UserHash crypto.Hash
	Address  crypto.Address
}

// EventType implements the Event interface.
func (AddressBound) EventType() string { return TypeAddressBound }

// Wire implements the WireConvertible interface.
func (e AddressBound) Wire() Wire {
	return Wire{Type: TypeAddressBound, Attributes: map[string]string{
		"userHash": e.UserHash.String(),
		"address":  e.Address.String(),
	}}
}

// RewardDistributed captures a successful reward payout.
type RewardDistributed struct {
	UserHash         crypto.Hash
	Address          crypto.Address
	Amount           *big.Int
	ConsecutiveCount uint32
	BonusApplied     bool
}

// EventType implements the Event interface.
func (RewardDistributed) EventType() string { return TypeRewardDistributed }

// Wire implements the WireConvertible interface.
func (e RewardDistributed) Wire() Wire {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return Wire{Type: TypeRewardDistributed, Attributes: map[string]string{
		"userHash":         e.UserHash.String(),
		"address":          e.Address.String(),
		"amount":           amount,
		"consecutiveCount": strconv.FormatUint(uint64(e.ConsecutiveCount), 10),
		"bonusApplied":     strconv.FormatBool(e.BonusApplied),
	}}
}

// ConsecutiveReset captures the counter reset caused by a late payment.
type ConsecutiveReset struct {
	UserHash      crypto.Hash
	PreviousCount uint32
}

// EventType implements the Event interface.
func (ConsecutiveReset) EventType() string { return TypeConsecutiveReset }

// Wire implements the WireConvertible interface.
func (e ConsecutiveReset) Wire() Wire {
	return Wire{Type: TypeConsecutiveReset, Attributes: map[string]string{
		"userHash":      e.UserHash.String(),
		"previousCount": strconv.FormatUint(uint64(e.PreviousCount), 10),
	}}
}

// RewardSkipped captures an on-time payment whose payout failed.
type RewardSkipped struct {
	UserHash crypto.Hash
	Reason   string
}

// EventType implements the Event interface.
func (RewardSkipped) EventType() string { return TypeRewardSkipped }

// Wire implements the WireConvertible interface.
func (e RewardSkipped) Wire() Wire {
	return Wire{Type: TypeRewardSkipped, Attributes: map[string]string{
		"userHash": e.UserHash.String(),
		"reason":   e.Reason,
	}}
}

// ReserveMinted captures an owner top-up of the reward reserve.
type ReserveMinted struct {
	Amount     *big.Int
	NewReserve *big.Int
}

// EventType implements the Event interface.
func (ReserveMinted) EventType() string { return TypeReserveMinted }

// Wire implements the WireConvertible interface.
func (e ReserveMinted) Wire() Wire {
	attrs := map[string]string{"amount": "0", "newReserve": "0"}
	if e.Amount != nil {
		attrs["amount"] = e.Amount.String()
	}
	if e.NewReserve != nil {
		attrs["newReserve"] = e.NewReserve.String()
	}
	return Wire{Type: TypeReserveMinted, Attributes: attrs}
}

// CallerAuthorized captures a mutation of the authorized-caller set.
type CallerAuthorized struct {
	Caller     crypto.Address
	Authorized bool
}

// EventType implements the Event interface.
func (CallerAuthorized) EventType() string { return TypeCallerAuthorized }

// Wire implements the WireConvertible interface.
func (e CallerAuthorized) Wire() Wire {
	return Wire{Type: TypeCallerAuthorized, Attributes: map[string]string{
		"caller":     e.Caller.String(),
		"authorized": strconv.FormatBool(e.Authorized),
	}}
}
