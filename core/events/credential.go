package events

import (
	"math/big"
	"strconv"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

const (
	// TypeUserCreated is emitted when a credential profile is first
	// registered.
	TypeUserCreated = "credential.user.created"
	// TypePaymentRegistered is emitted after an attested payment has been
	// appended to a user's history. It is the sole signal consumed by the
	// reward ledger.
	TypePaymentRegistered = "credential.payment.registered"
	// TypeEntityAuthorized is emitted when the reporting-entity set changes.
	TypeEntityAuthorized = "credential.entity.authorized"
)

// UserCreated captures the registration of a new credential profile.
type UserCreated struct {
	UserHash crypto.Hash
	Caller   crypto.Address
}

// EventType implements the Event interface.
func (UserCreated) EventType() string { return TypeUserCreated }

// Wire implements the WireConvertible interface.
func (e UserCreated) Wire() Wire {
	attrs := map[string]string{
		"userHash": e.UserHash.String(),
	}
	if !e.Caller.IsZero() {
		attrs["caller"] = e.Caller.String()
	}
	return Wire{Type: TypeUserCreated, Attributes: attrs}
}

// PaymentRegistered carries the outcome of a registered payment.
type PaymentRegistered struct {
	UserHash    crypto.Hash
	PaymentHash crypto.Hash
	EntityHash  crypto.Hash
	Amount      *big.Int
	IsOnTime    bool
	NewScore    uint64
}

// EventType implements the Event interface.
func (PaymentRegistered) EventType() string { return TypePaymentRegistered }

// Wire implements the WireConvertible interface.
func (e PaymentRegistered) Wire() Wire {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return Wire{Type: TypePaymentRegistered, Attributes: map[string]string{
		"userHash":    e.UserHash.String(),
		"paymentHash": e.PaymentHash.String(),
		"entityHash":  e.EntityHash.String(),
		"amount":      amount,
		"isOnTime":    strconv.FormatBool(e.IsOnTime),
		"newScore":    strconv.FormatUint(e.NewScore, 10),
	}}
}

// EntityAuthorized captures a mutation of the reporting-entity set.
type EntityAuthorized struct {
	Entity     crypto.Address
	Authorized bool
}

// EventType implements the Event interface.
func (EntityAuthorized) EventType() string { return TypeEntityAuthorized }

// Wire implements the WireConvertible interface.
func (e EntityAuthorized) Wire() Wire {
	return Wire{Type: TypeEntityAuthorized, Attributes: map[string]string{
		"entity":     e.Entity.String(),
		"authorized": strconv.FormatBool(e.Authorized),
	}}
}
