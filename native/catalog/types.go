package catalog

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

// BenefitType tags what kind of benefit a catalog entry represents.
type BenefitType uint8

const (
	BenefitDiscount BenefitType = iota
	BenefitFeeReduction
	BenefitPremiumAccess
	BenefitCertificate
	BenefitCashback
	BenefitCreditLine
)

var benefitTypeNames = map[BenefitType]string{
	BenefitDiscount:      "discount",
	BenefitFeeReduction:  "fee_reduction",
	BenefitPremiumAccess: "premium_access",
	BenefitCertificate:   "certificate",
	BenefitCashback:      "cashback",
	BenefitCreditLine:    "credit_line",
}

// String returns the canonical name of the benefit type.
func (t BenefitType) String() string {
	if name, ok := benefitTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// Valid reports whether t is one of the defined benefit kinds.
func (t BenefitType) Valid() bool {
	_, ok := benefitTypeNames[t]
	return ok
}

// ParseBenefitType resolves a canonical name back to its tag.
func ParseBenefitType(name string) (BenefitType, error) {
	for t, n := range benefitTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: benefit type %q", ErrInvalidBenefit, name)
}

// Benefit is a redeemable catalog entry. Ids are monotonic from 1; entries
// are never deleted, only toggled inactive. A zero stock means unlimited.
type Benefit struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Cost        *big.Int    `json:"cost"`
	Stock       *big.Int    `json:"stock"`
	Active      bool        `json:"active"`
	BenefitType BenefitType `json:"benefitType"`
}

// Unlimited reports whether the benefit has no stock bound.
func (b *Benefit) Unlimited() bool {
	return b.Stock == nil || b.Stock.Sign() == 0
}

// Redemption records how many times an address redeemed a benefit.
type Redemption struct {
	BenefitID uint64 `json:"benefitId"`
	Count     uint64 `json:"count"`
}

// CollectorAddress derives the module address that receives redemption
// payments.
func CollectorAddress() crypto.Address {
	sum := ethcrypto.Keccak256([]byte("catalog/collector"))
	return crypto.NewAddress(crypto.CredPrefix, sum[12:])
}
