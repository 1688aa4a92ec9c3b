package events

import (
	"math/big"
	"strconv"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

const (
	// TypeBenefitCreated is emitted when the owner adds a benefit to the
	// catalog.
	TypeBenefitCreated = "catalog.benefit.created"
	// TypeBenefitUpdated is emitted when a benefit's active flag is toggled.
	TypeBenefitUpdated = "catalog.benefit.updated"
	// TypeBenefitRedeemed is emitted after a committed redemption.
	TypeBenefitRedeemed = "catalog.benefit.redeemed"
)

// BenefitCreated captures a new catalog entry.
type BenefitCreated struct {
	ID          uint64
	Name        string
	Cost        *big.Int
	Stock       *big.Int
	BenefitType string
}

// EventType implements the Event interface.
func (BenefitCreated) EventType() string { return TypeBenefitCreated }

// Wire implements the WireConvertible interface.
func (e BenefitCreated) Wire() Wire {
	attrs := map[string]string{
		"id":          strconv.FormatUint(e.ID, 10),
		"name":        e.Name,
		"benefitType": e.BenefitType,
		"cost":        "0",
		"stock":       "0",
	}
	if e.Cost != nil {
		attrs["cost"] = e.Cost.String()
	}
	if e.Stock != nil {
		attrs["stock"] = e.Stock.String()
	}
	return Wire{Type: TypeBenefitCreated, Attributes: attrs}
}

// BenefitUpdated captures an active-flag toggle.
type BenefitUpdated struct {
	ID     uint64
	Active bool
}

// EventType implements the Event interface.
func (BenefitUpdated) EventType() string { return TypeBenefitUpdated }

// Wire implements the WireConvertible interface.
func (e BenefitUpdated) Wire() Wire {
	return Wire{Type: TypeBenefitUpdated, Attributes: map[string]string{
		"id":     strconv.FormatUint(e.ID, 10),
		"active": strconv.FormatBool(e.Active),
	}}
}

// BenefitRedeemed captures a committed redemption.
type BenefitRedeemed struct {
	ID       uint64
	Redeemer crypto.Address
	Quantity uint64
	Paid     *big.Int
}

// EventType implements the Event interface.
func (BenefitRedeemed) EventType() string { return TypeBenefitRedeemed }

// Wire implements the WireConvertible interface.
func (e BenefitRedeemed) Wire() Wire {
	paid := "0"
	if e.Paid != nil {
		paid = e.Paid.String()
	}
	return Wire{Type: TypeBenefitRedeemed, Attributes: map[string]string{
		"id":       strconv.FormatUint(e.ID, 10),
		"redeemer": e.Redeemer.String(),
		"quantity": strconv.FormatUint(e.Quantity, 10),
		"paid":     paid,
	}}
}
