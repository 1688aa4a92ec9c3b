package catalog

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/events"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/rewards"
)

type catalogState interface {
	IsOwner(addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// tokenBook is the slice of the reward ledger the catalog needs: balance
// checks and the two-phase allowance pull.
type tokenBook interface {
	BalanceOf(addr crypto.Address) (*big.Int, error)
	Allowance(owner, spender crypto.Address) (*big.Int, error)
	TransferFrom(spender, from, to crypto.Address, amount *big.Int) error
}

// Catalog owns benefit definitions and redemption history. Redemptions are
// debited against reward-ledger balances through the approve/transferFrom
// discipline; the catalog never moves tokens implicitly.
type Catalog struct {
	st      catalogState
	book    tokenBook
	emitter events.Emitter
}

// NewCatalog creates a catalog backed by the provided state manager and
// token book.
func NewCatalog(st catalogState, book tokenBook) *Catalog {
	return &Catalog{st: st, book: book, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast catalog updates.
// Passing nil resets the emitter to a no-op implementation.
func (c *Catalog) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

func benefitKey(id uint64) []byte {
	return []byte("catalog/benefits/" + strconv.FormatUint(id, 10))
}

var nextIDKey = []byte("catalog/nextId")

func redemptionKey(addr []byte, id uint64) []byte {
	return []byte("catalog/redemptions/" + hex.EncodeToString(addr) + "/" + strconv.FormatUint(id, 10))
}

func redemptionIndexKey(addr []byte) []byte {
	return []byte("catalog/redemptionIndex/" + hex.EncodeToString(addr))
}

func (c *Catalog) nextID() (uint64, error) {
	var next uint64
	found, err := c.st.KVGet(nextIDKey, &next)
	if err != nil {
		return 0, err
	}
	if !found {
		next = 1
	}
	return next, nil
}

// CreateBenefit adds a benefit to the catalog and returns its id. Owner
// only; ids are assigned monotonically starting at 1.
func (c *Catalog) CreateBenefit(caller crypto.Address, name, description string, cost, stock *big.Int, benefitType BenefitType) (uint64, error) {
	if !c.st.IsOwner(caller.Bytes()) {
		return 0, ErrNotOwner
	}
	if name == "" {
		return 0, fmt.Errorf("%w: name required", ErrInvalidBenefit)
	}
	if cost == nil || cost.Sign() <= 0 {
		return 0, fmt.Errorf("%w: cost must be positive", ErrInvalidBenefit)
	}
	if stock != nil && stock.Sign() < 0 {
		return 0, fmt.Errorf("%w: stock must be non-negative", ErrInvalidBenefit)
	}
	if !benefitType.Valid() {
		return 0, fmt.Errorf("%w: benefit type %d", ErrInvalidBenefit, benefitType)
	}

	id, err := c.nextID()
	if err != nil {
		return 0, err
	}
	benefit := &Benefit{
		ID:          id,
		Name:        name,
		Description: description,
		Cost:        new(big.Int).Set(cost),
		Stock:       big.NewInt(0),
		Active:      true,
		BenefitType: benefitType,
	}
	if stock != nil {
		benefit.Stock = new(big.Int).Set(stock)
	}
	if err := c.st.KVPut(benefitKey(id), benefit); err != nil {
		return 0, err
	}
	if err := c.st.KVPut(nextIDKey, id+1); err != nil {
		return 0, err
	}
	c.emit(events.BenefitCreated{
		ID:          id,
		Name:        name,
		Cost:        new(big.Int).Set(benefit.Cost),
		Stock:       new(big.Int).Set(benefit.Stock),
		BenefitType: benefitType.String(),
	})
	return id, nil
}

// SetBenefitActive toggles a benefit's active flag. Owner only; benefits are
// never deleted.
func (c *Catalog) SetBenefitActive(caller crypto.Address, id uint64, active bool) error {
	if !c.st.IsOwner(caller.Bytes()) {
		return ErrNotOwner
	}
	benefit, err := c.GetBenefit(id)
	if err != nil {
		return err
	}
	benefit.Active = active
	if err := c.st.KVPut(benefitKey(id), benefit); err != nil {
		return err
	}
	c.emit(events.BenefitUpdated{ID: id, Active: active})
	return nil
}

// GetBenefit retrieves a benefit by id.
func (c *Catalog) GetBenefit(id uint64) (*Benefit, error) {
	benefit := new(Benefit)
	found, err := c.st.KVGet(benefitKey(id), benefit)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownBenefit, id)
	}
	return benefit, nil
}

// GetActiveBenefits returns the ids of active benefits in creation order.
// The sequence is recomputed on every call.
func (c *Catalog) GetActiveBenefits() ([]uint64, error) {
	next, err := c.nextID()
	if err != nil {
		return nil, err
	}
	active := make([]uint64, 0, next-1)
	for id := uint64(1); id < next; id++ {
		benefit := new(Benefit)
		found, err := c.st.KVGet(benefitKey(id), benefit)
		if err != nil {
			return nil, err
		}
		if found && benefit.Active {
			active = append(active, id)
		}
	}
	return active, nil
}

// RedeemBenefit redeems quantity units of a benefit for the caller. The cost
// is pulled through the caller's pre-approved allowance for the catalog
// collector; payment, stock decrement and history increment commit together
// or not at all.
func (c *Catalog) RedeemBenefit(caller crypto.Address, id, quantity uint64) error {
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}
	benefit, err := c.GetBenefit(id)
	if err != nil {
		return err
	}
	if !benefit.Active {
		return fmt.Errorf("%w: id %d", ErrInactive, id)
	}
	qty := new(big.Int).SetUint64(quantity)
	if !benefit.Unlimited() && benefit.Stock.Cmp(qty) < 0 {
		return fmt.Errorf("%w: id %d has %s left", ErrOutOfStock, id, benefit.Stock)
	}
	total := new(big.Int).Mul(benefit.Cost, qty)
	balance, err := c.book.BalanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(total) < 0 {
		return fmt.Errorf("%w: balance %s < %s", rewards.ErrInsufficientFunds, balance, total)
	}

	// The pull fails without side effects when the allowance or balance is
	// short, so every state write below happens only on a paid redemption.
	collector := CollectorAddress()
	if err := c.book.TransferFrom(collector, caller, collector, total); err != nil {
		return err
	}
	if !benefit.Unlimited() {
		benefit.Stock = new(big.Int).Sub(benefit.Stock, qty)
		if err := c.st.KVPut(benefitKey(id), benefit); err != nil {
			return err
		}
	}
	var count uint64
	found, err := c.st.KVGet(redemptionKey(caller.Bytes(), id), &count)
	if err != nil {
		return err
	}
	if !found {
		var index []uint64
		if _, err := c.st.KVGet(redemptionIndexKey(caller.Bytes()), &index); err != nil {
			return err
		}
		index = append(index, id)
		if err := c.st.KVPut(redemptionIndexKey(caller.Bytes()), index); err != nil {
			return err
		}
	}
	count += quantity
	if err := c.st.KVPut(redemptionKey(caller.Bytes(), id), count); err != nil {
		return err
	}
	c.emit(events.BenefitRedeemed{ID: id, Redeemer: caller, Quantity: quantity, Paid: total})
	return nil
}

// GetUserRedemptionCount returns how many units of benefit id addr has
// redeemed.
func (c *Catalog) GetUserRedemptionCount(addr crypto.Address, id uint64) (uint64, error) {
	var count uint64
	if _, err := c.st.KVGet(redemptionKey(addr.Bytes(), id), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetUserRedemptionHistory returns the user's per-benefit redemption counts
// in first-redemption order.
func (c *Catalog) GetUserRedemptionHistory(addr crypto.Address) ([]Redemption, error) {
	var index []uint64
	if _, err := c.st.KVGet(redemptionIndexKey(addr.Bytes()), &index); err != nil {
		return nil, err
	}
	history := make([]Redemption, 0, len(index))
	for _, id := range index {
		count, err := c.GetUserRedemptionCount(addr, id)
		if err != nil {
			return nil, err
		}
		history = append(history, Redemption{BenefitID: id, Count: count})
	}
	return history, nil
}

func (c *Catalog) emit(event events.Event) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(event)
}
