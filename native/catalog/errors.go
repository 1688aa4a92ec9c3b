package catalog

import "errors"

var (
	ErrNotOwner        = errors.New("catalog: not owner")
	ErrUnknownBenefit  = errors.New("catalog: unknown benefit")
	ErrInactive        = errors.New("catalog: benefit inactive")
	ErrOutOfStock      = errors.New("catalog: out of stock")
	ErrInvalidBenefit  = errors.New("catalog: invalid benefit")
	ErrInvalidQuantity = errors.New("catalog: invalid quantity")
)
