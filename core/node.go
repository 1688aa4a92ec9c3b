package core

import (
	"errors"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/events"
	"github.com/Davidcuama/SisteCredito-Hackaton/core/state"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/catalog"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/credential"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/rewards"
	"github.com/Davidcuama/SisteCredito-Hackaton/storage"
)

// ErrNotOwner guards the owner-only operations exposed directly by the node.
var ErrNotOwner = errors.New("core: not owner")

// Genesis captures the state seeded on first start: the owner principal,
// the initial authorization sets and the reward parameters.
type Genesis struct {
	Owner             crypto.Address
	ReportingEntities []crypto.Address
	AuthorizedCallers []crypto.Address
	RewardParams      rewards.Params
}

// RegistryAddress derives the module principal the credential registry uses
// when it drives reward distribution. It is granted the reward-caller role
// at genesis, mirroring the registry's standing authorization on the ledger.
func RegistryAddress() crypto.Address {
	sum := ethcrypto.Keccak256([]byte("credential/registry"))
	return crypto.NewAddress(crypto.CredPrefix, sum[12:])
}

// Node composes the credential registry, reward ledger and benefit catalog
// over a single state manager. Every public mutation runs under one lock:
// a state transition is fully applied before the next begins, and events
// reach subscribers only after the transition has committed.
type Node struct {
	mu sync.Mutex

	st       *state.Manager
	registry *credential.Registry
	ledger   *rewards.Ledger
	catalog  *catalog.Catalog

	pending []events.Wire

	streamMu      sync.Mutex
	streamSubs    map[uint64]chan EventUpdate
	streamNextID  uint64
	streamSeq     uint64
	streamHistory []EventUpdate
}

// nodeEmitter buffers module events during an operation so they can be
// published only after the whole transition commits.
type nodeEmitter struct {
	node *Node
}

func (e nodeEmitter) Emit(evt events.Event) {
	wc, ok := evt.(events.WireConvertible)
	if !ok {
		return
	}
	e.node.pending = append(e.node.pending, wc.Wire())
}

// NewNode opens the ledger over db and seeds genesis state on first start.
func NewNode(db storage.Database, genesis Genesis) (*Node, error) {
	st := state.NewManager(db)
	n := &Node{
		st:       st,
		registry: credential.NewRegistry(st),
		ledger:   rewards.NewLedger(st),
	}
	n.ledger.SetParams(genesis.RewardParams)
	n.catalog = catalog.NewCatalog(st, n.ledger)
	n.ledger.RestrictAddress(catalog.CollectorAddress())
	n.ledger.RestrictAddress(RegistryAddress())

	emitter := nodeEmitter{node: n}
	n.registry.SetEmitter(emitter)
	n.ledger.SetEmitter(emitter)
	n.catalog.SetEmitter(emitter)

	if err := n.applyGenesis(genesis); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) applyGenesis(genesis Genesis) error {
	if !genesis.Owner.IsZero() {
		if _, found, err := n.st.Owner(); err != nil {
			return err
		} else if !found {
			if err := n.st.SetOwner(genesis.Owner.Bytes()); err != nil {
				return err
			}
		}
	}
	for _, entity := range genesis.ReportingEntities {
		if err := n.st.SetRole(state.RoleReportingEntity, entity.Bytes(), true); err != nil {
			return err
		}
	}
	for _, caller := range genesis.AuthorizedCallers {
		if err := n.st.SetRole(state.RoleRewardCaller, caller.Bytes(), true); err != nil {
			return err
		}
	}
	// The registry principal always drives distribution for registered
	// payments.
	if err := n.st.SetRole(state.RoleRewardCaller, RegistryAddress().Bytes(), true); err != nil {
		return err
	}
	if err := n.ledger.Seed(); err != nil {
		return err
	}
	n.pending = nil
	return nil
}

// flush publishes buffered events after a committed transition; abort drops
// them after a failed one.
func (n *Node) flush() {
	for _, wire := range n.pending {
		n.publishEvent(wire)
	}
	n.pending = nil
}

func (n *Node) abort() {
	n.pending = nil
}

// --- Credential registry operations ---

// CreateUser registers a new credential profile.
func (n *Node) CreateUser(caller crypto.Address, userHash crypto.Hash) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.registry.CreateUser(caller, userHash); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// PaymentResult reports the combined effect of a registered payment: the
// credential outcome plus the reward distribution it triggered, if any.
type PaymentResult struct {
	Outcome    *credential.Outcome
	Reward     *rewards.Distribution
	RewardSkip string
}

// RegisterPayment records an attested payment and drives the reward ledger
// with its outcome. The credential write is authoritative: a reward payout
// that cannot proceed (no address bound, reserve exhausted) is reported as a
// skip, never by rolling back the payment.
func (n *Node) RegisterPayment(caller crypto.Address, p *credential.Payment) (*PaymentResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	outcome, err := n.registry.RegisterPayment(caller, p)
	if err != nil {
		n.abort()
		return nil, err
	}
	result := &PaymentResult{Outcome: outcome}

	if _, bound, err := n.ledger.BoundAddress(p.UserHash); err != nil {
		n.abort()
		return nil, err
	} else if !bound {
		result.RewardSkip = "no_address_bound"
		n.pending = append(n.pending, events.RewardSkipped{UserHash: p.UserHash, Reason: result.RewardSkip}.Wire())
		n.flush()
		return result, nil
	}

	dist, err := n.ledger.DistributeReward(RegistryAddress(), p.UserHash, outcome.IsOnTime)
	switch {
	case err == nil:
		result.Reward = dist
	case errors.Is(err, rewards.ErrInsufficientReserve):
		result.RewardSkip = "insufficient_reserve"
		n.pending = append(n.pending, events.RewardSkipped{UserHash: p.UserHash, Reason: result.RewardSkip}.Wire())
	default:
		n.abort()
		return nil, err
	}
	n.flush()
	return result, nil
}

// GetUserProfile returns the stored credential profile.
func (n *Node) GetUserProfile(userHash crypto.Hash) (*credential.UserProfile, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.GetUserProfile(userHash)
}

// GetUserStats returns the derived credential read-model.
func (n *Node) GetUserStats(userHash crypto.Hash) (*credential.UserStats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.GetUserStats(userHash)
}

// GetUserPayments returns the user's payment history in append order.
func (n *Node) GetUserPayments(userHash crypto.Hash) ([]credential.PaymentRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.GetUserPayments(userHash)
}

// SetEntityAuthorization mutates the reporting-entity set. Owner only.
func (n *Node) SetEntityAuthorization(caller, entity crypto.Address, authorized bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.st.IsOwner(caller.Bytes()) {
		return ErrNotOwner
	}
	if err := n.st.SetRole(state.RoleReportingEntity, entity.Bytes(), authorized); err != nil {
		n.abort()
		return err
	}
	n.pending = append(n.pending, events.EntityAuthorized{Entity: entity, Authorized: authorized}.Wire())
	n.flush()
	return nil
}

// SetCallerAuthorization mutates the authorized-caller set. Owner only.
func (n *Node) SetCallerAuthorization(caller, principal crypto.Address, authorized bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.st.IsOwner(caller.Bytes()) {
		return ErrNotOwner
	}
	if err := n.st.SetRole(state.RoleRewardCaller, principal.Bytes(), authorized); err != nil {
		n.abort()
		return err
	}
	n.pending = append(n.pending, events.CallerAuthorized{Caller: principal, Authorized: authorized}.Wire())
	n.flush()
	return nil
}

// --- Reward ledger operations ---

// RegisterUserAddress binds the payout address for a user hash.
func (n *Node) RegisterUserAddress(caller crypto.Address, userHash crypto.Hash, addr crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ledger.RegisterUserAddress(caller, userHash, addr); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// DistributeReward applies one payment outcome to the reward state on behalf
// of an external authorized caller.
func (n *Node) DistributeReward(caller crypto.Address, userHash crypto.Hash, isOnTime bool) (*rewards.Distribution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	dist, err := n.ledger.DistributeReward(caller, userHash, isOnTime)
	if err != nil {
		n.abort()
		return nil, err
	}
	n.flush()
	return dist, nil
}

// MintAdditional tops up the reward reserve. Owner only.
func (n *Node) MintAdditional(caller crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ledger.MintAdditional(caller, amount); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// GetUserRewardStats returns the user's reward standing.
func (n *Node) GetUserRewardStats(userHash crypto.Hash) (*rewards.UserStats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.GetUserRewardStats(userHash)
}

// RewardInfo returns the active reward configuration.
func (n *Node) RewardInfo() rewards.Info {
	return n.ledger.RewardInfo()
}

// BalanceOf returns the reward-token balance held by addr.
func (n *Node) BalanceOf(addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(addr)
}

// ReserveBalance returns the undistributed reserve.
func (n *Node) ReserveBalance() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.ReserveBalance()
}

// Approve sets the allowance the spender may pull from the caller's balance.
func (n *Node) Approve(caller, spender crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ledger.Approve(caller, spender, amount); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// Allowance returns the remaining allowance between owner and spender.
func (n *Node) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Allowance(owner, spender)
}

// --- Benefit catalog operations ---

// CreateBenefit adds a benefit to the catalog. Owner only.
func (n *Node) CreateBenefit(caller crypto.Address, name, description string, cost, stock *big.Int, benefitType catalog.BenefitType) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.catalog.CreateBenefit(caller, name, description, cost, stock, benefitType)
	if err != nil {
		n.abort()
		return 0, err
	}
	n.flush()
	return id, nil
}

// SetBenefitActive toggles a benefit's active flag. Owner only.
func (n *Node) SetBenefitActive(caller crypto.Address, id uint64, active bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.catalog.SetBenefitActive(caller, id, active); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// GetBenefit retrieves a benefit by id.
func (n *Node) GetBenefit(id uint64) (*catalog.Benefit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.GetBenefit(id)
}

// GetActiveBenefits returns active benefit ids in creation order.
func (n *Node) GetActiveBenefits() ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.GetActiveBenefits()
}

// RedeemBenefit redeems quantity units of a benefit for the caller.
func (n *Node) RedeemBenefit(caller crypto.Address, id, quantity uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.catalog.RedeemBenefit(caller, id, quantity); err != nil {
		n.abort()
		return err
	}
	n.flush()
	return nil
}

// GetUserRedemptionCount returns how often addr redeemed benefit id.
func (n *Node) GetUserRedemptionCount(addr crypto.Address, id uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.GetUserRedemptionCount(addr, id)
}

// GetUserRedemptionHistory returns addr's redemption history.
func (n *Node) GetUserRedemptionHistory(addr crypto.Address) ([]catalog.Redemption, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.GetUserRedemptionHistory(addr)
}

// IsOwner reports whether addr is the configured owner principal.
func (n *Node) IsOwner(addr crypto.Address) bool {
	return n.st.IsOwner(addr.Bytes())
}

// CollectorAddress exposes the catalog payment collector.
func (n *Node) CollectorAddress() crypto.Address {
	return catalog.CollectorAddress()
}
