package rewards

import "errors"

var (
	ErrNotAuthorized         = errors.New("rewards: not authorized")
	ErrNotOwner              = errors.New("rewards: not owner")
	ErrAlreadyBound          = errors.New("rewards: address already bound")
	ErrNoAddressBound        = errors.New("rewards: no address bound")
	ErrInsufficientReserve   = errors.New("rewards: insufficient reserve")
	ErrInsufficientFunds     = errors.New("rewards: insufficient funds")
	ErrInsufficientAllowance = errors.New("rewards: insufficient allowance")
	ErrInvalidAmount         = errors.New("rewards: invalid amount")
	ErrBalanceOverflow       = errors.New("rewards: balance overflow")
	ErrReservedAddress       = errors.New("rewards: address reserved for module use")
)
