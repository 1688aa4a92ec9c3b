package rewards

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/events"
	"github.com/Davidcuama/SisteCredito-Hackaton/core/state"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

type ledgerState interface {
	HasRole(role string, addr []byte) bool
	IsOwner(addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger owns the reward token book (balances, allowances, reserve) and the
// consecutive-on-time reward engine driven by credential outcomes.
type Ledger struct {
	st       ledgerState
	emitter  events.Emitter
	params   Params
	reserved map[string]struct{}
}

// NewLedger creates a ledger backed by the provided state manager.
func NewLedger(st ledgerState) *Ledger {
	l := &Ledger{st: st, emitter: events.NoopEmitter{}, params: DefaultParams(), reserved: make(map[string]struct{})}
	l.RestrictAddress(ReserveAddress())
	return l
}

// RestrictAddress marks addr as a module-held account. Restricted addresses
// can never be bound as a user's payout address.
func (l *Ledger) RestrictAddress(addr crypto.Address) {
	l.reserved[hex.EncodeToString(addr.Bytes())] = struct{}{}
}

func (l *Ledger) isReserved(addr []byte) bool {
	_, ok := l.reserved[hex.EncodeToString(addr)]
	return ok
}

// SetEmitter configures the event emitter used to broadcast ledger updates.
// Passing nil resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetParams overrides the reward configuration. Unset fields fall back to
// module defaults.
func (l *Ledger) SetParams(p Params) {
	p.ApplyDefaults()
	l.params = p
}

func accountKey(userHash crypto.Hash) []byte {
	return []byte("rewards/accounts/" + hex.EncodeToString(userHash[:]))
}

func balanceKey(addr []byte) []byte {
	return []byte("rewards/balances/" + hex.EncodeToString(addr))
}

func allowanceKey(owner, spender []byte) []byte {
	return []byte("rewards/allowances/" + hex.EncodeToString(owner) + "/" + hex.EncodeToString(spender))
}

var seededKey = []byte("rewards/seeded")

// Seed credits the initial reserve to the ledger's own address. It is a
// no-op when the reserve has already been seeded.
func (l *Ledger) Seed() error {
	var seeded bool
	if _, err := l.st.KVGet(seededKey, &seeded); err != nil {
		return err
	}
	if seeded {
		return nil
	}
	reserve := ReserveAddress()
	if err := l.setBalance(reserve.Bytes(), new(big.Int).Set(l.params.InitialReserve)); err != nil {
		return err
	}
	return l.st.KVPut(seededKey, true)
}

// --- Token book ---

func (l *Ledger) getBalance(addr []byte) (*big.Int, error) {
	var encoded string
	found, err := l.st.KVGet(balanceKey(addr), &encoded)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("rewards: corrupt balance for %x", addr)
	}
	return value, nil
}

func (l *Ledger) setBalance(addr []byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative balance", ErrInvalidAmount)
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrBalanceOverflow
	}
	return l.st.KVPut(balanceKey(addr), amount.String())
}

// BalanceOf returns the token balance held by addr.
func (l *Ledger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	return l.getBalance(addr.Bytes())
}

// ReserveBalance returns the ledger's own undistributed balance.
func (l *Ledger) ReserveBalance() (*big.Int, error) {
	return l.getBalance(ReserveAddress().Bytes())
}

func (l *Ledger) move(from, to []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	fromBal, err := l.getBalance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	// A self-transfer must conserve the balance: writing both legs would
	// apply the credit over the stale pre-debit read.
	if bytes.Equal(from, to) {
		return nil
	}
	toBal, err := l.getBalance(to)
	if err != nil {
		return err
	}
	if err := l.setBalance(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.setBalance(to, new(big.Int).Add(toBal, amount))
}

// Transfer moves tokens between addresses.
func (l *Ledger) Transfer(from, to crypto.Address, amount *big.Int) error {
	return l.move(from.Bytes(), to.Bytes(), amount)
}

// Approve sets the allowance spender may pull from owner. Approvals replace
// the previous allowance rather than accumulating.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: allowance must be non-negative", ErrInvalidAmount)
	}
	return l.st.KVPut(allowanceKey(owner.Bytes(), spender.Bytes()), amount.String())
}

// Allowance returns the amount spender may still pull from owner.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	var encoded string
	found, err := l.st.KVGet(allowanceKey(owner.Bytes(), spender.Bytes()), &encoded)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("rewards: corrupt allowance")
	}
	return value, nil
}

// TransferFrom moves tokens from `from` to `to` on behalf of spender,
// consuming the pre-approved allowance. The allowance check runs before any
// balance mutation so a failure leaves the book untouched.
func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	allowed, err := l.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	fromBal, err := l.getBalance(from.Bytes())
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if err := l.st.KVPut(allowanceKey(from.Bytes(), spender.Bytes()), new(big.Int).Sub(allowed, amount).String()); err != nil {
		return err
	}
	return l.move(from.Bytes(), to.Bytes(), amount)
}

// --- Reward engine ---

// RegisterUserAddress binds the payout address for userHash. The binding is
// set once; rebinding fails with ErrAlreadyBound. Module-held addresses
// (reserve, collector) are rejected so a payout can never route back into
// the ledger's own accounts.
func (l *Ledger) RegisterUserAddress(caller crypto.Address, userHash crypto.Hash, addr crypto.Address) error {
	if !l.st.HasRole(state.RoleRewardCaller, caller.Bytes()) {
		return ErrNotAuthorized
	}
	if l.isReserved(addr.Bytes()) {
		return ErrReservedAddress
	}
	account := new(Account)
	found, err := l.st.KVGet(accountKey(userHash), account)
	if err != nil {
		return err
	}
	if found && len(account.Address) > 0 {
		return ErrAlreadyBound
	}
	account.UserHash = userHash
	account.Address = addr.Bytes()
	if account.TotalEarned == nil {
		account.TotalEarned = big.NewInt(0)
	}
	if err := l.st.KVPut(accountKey(userHash), account); err != nil {
		return err
	}
	l.emit(events.AddressBound{UserHash: userHash, Address: addr})
	return nil
}

// DistributeReward applies one credential outcome to the reward state. A
// late payment resets the consecutive counter and pays nothing. An on-time
// payment increments the counter first and then pays the base reward, doubled
// from the payment that reaches the bonus threshold onwards. The payout is
// funded from the reserve; exhaustion surfaces as ErrInsufficientReserve with
// no state mutation.
func (l *Ledger) DistributeReward(caller crypto.Address, userHash crypto.Hash, isOnTime bool) (*Distribution, error) {
	if !l.st.HasRole(state.RoleRewardCaller, caller.Bytes()) {
		return nil, ErrNotAuthorized
	}
	account := new(Account)
	found, err := l.st.KVGet(accountKey(userHash), account)
	if err != nil {
		return nil, err
	}
	if !found || len(account.Address) == 0 {
		return nil, ErrNoAddressBound
	}
	if account.TotalEarned == nil {
		account.TotalEarned = big.NewInt(0)
	}

	if !isOnTime {
		previous := account.ConsecutiveCount
		account.ConsecutiveCount = 0
		if err := l.st.KVPut(accountKey(userHash), account); err != nil {
			return nil, err
		}
		l.emit(events.ConsecutiveReset{UserHash: userHash, PreviousCount: previous})
		return &Distribution{Amount: big.NewInt(0)}, nil
	}

	newCount := account.ConsecutiveCount + 1
	reward := new(big.Int).Set(l.params.BasePerPayment)
	bonus := newCount >= l.params.BonusThreshold
	if bonus {
		reward.Mul(reward, new(big.Int).SetUint64(uint64(l.params.BonusMultiplier)))
	}

	reserve := ReserveAddress()
	reserveBal, err := l.getBalance(reserve.Bytes())
	if err != nil {
		return nil, err
	}
	if reserveBal.Cmp(reward) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientReserve, reserveBal, reward)
	}
	payoutAddr := crypto.NewAddress(crypto.CredPrefix, account.Address)
	if err := l.move(reserve.Bytes(), account.Address, reward); err != nil {
		return nil, err
	}
	account.ConsecutiveCount = newCount
	account.TotalEarned = new(big.Int).Add(account.TotalEarned, reward)
	if err := l.st.KVPut(accountKey(userHash), account); err != nil {
		return nil, err
	}
	l.emit(events.RewardDistributed{
		UserHash:         userHash,
		Address:          payoutAddr,
		Amount:           new(big.Int).Set(reward),
		ConsecutiveCount: newCount,
		BonusApplied:     bonus,
	})
	return &Distribution{Amount: reward, ConsecutiveCount: newCount, BonusApplied: bonus}, nil
}

// MintAdditional tops up the reserve. The operation is an owner-only escape
// valve outside the reward-computation path.
func (l *Ledger) MintAdditional(caller crypto.Address, amount *big.Int) error {
	if !l.st.IsOwner(caller.Bytes()) {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: mint amount must be positive", ErrInvalidAmount)
	}
	reserve := ReserveAddress()
	balance, err := l.getBalance(reserve.Bytes())
	if err != nil {
		return err
	}
	newBalance := new(big.Int).Add(balance, amount)
	if err := l.setBalance(reserve.Bytes(), newBalance); err != nil {
		return err
	}
	l.emit(events.ReserveMinted{Amount: new(big.Int).Set(amount), NewReserve: newBalance})
	return nil
}

// RewardInfo returns the active reward configuration.
func (l *Ledger) RewardInfo() Info {
	return Info{
		BasePerPayment:  new(big.Int).Set(l.params.BasePerPayment),
		BonusThreshold:  l.params.BonusThreshold,
		BonusMultiplier: l.params.BonusMultiplier,
	}
}

// GetUserRewardStats reports the user's reward standing, including the bound
// address and its current balance.
func (l *Ledger) GetUserRewardStats(userHash crypto.Hash) (*UserStats, error) {
	account := new(Account)
	found, err := l.st.KVGet(accountKey(userHash), account)
	if err != nil {
		return nil, err
	}
	if !found || len(account.Address) == 0 {
		return nil, ErrNoAddressBound
	}
	if account.TotalEarned == nil {
		account.TotalEarned = big.NewInt(0)
	}
	balance, err := l.getBalance(account.Address)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		ConsecutiveCount: account.ConsecutiveCount,
		TotalEarned:      new(big.Int).Set(account.TotalEarned),
		Balance:          balance,
		Address:          crypto.NewAddress(crypto.CredPrefix, account.Address),
	}, nil
}

// BoundAddress returns the payout address bound to userHash, if any.
func (l *Ledger) BoundAddress(userHash crypto.Hash) (crypto.Address, bool, error) {
	account := new(Account)
	found, err := l.st.KVGet(accountKey(userHash), account)
	if err != nil {
		return crypto.Address{}, false, err
	}
	if !found || len(account.Address) == 0 {
		return crypto.Address{}, false, nil
	}
	return crypto.NewAddress(crypto.CredPrefix, account.Address), true, nil
}

func (l *Ledger) emit(event events.Event) {
	if l.emitter == nil {
		return
	}
	l.emitter.Emit(event)
}
