package rewards

import (
	"errors"
	"testing"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/state"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
	"github.com/Davidcuama/SisteCredito-Hackaton/storage"
)

func testAddress(seed byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	for i := range raw {
		raw[i] = seed
	}
	return crypto.NewAddress(crypto.CredPrefix, raw)
}

func newTestLedger(t *testing.T) (*Ledger, *state.Manager) {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(st)
	if err := ledger.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return ledger, st
}

func authorizeCaller(t *testing.T, st *state.Manager, caller crypto.Address) {
	t.Helper()
	if err := st.SetRole(state.RoleRewardCaller, caller.Bytes(), true); err != nil {
		t.Fatalf("grant role: %v", err)
	}
}

func bindUser(t *testing.T, ledger *Ledger, caller crypto.Address, userHash crypto.Hash, addr crypto.Address) {
	t.Helper()
	if err := ledger.RegisterUserAddress(caller, userHash, addr); err != nil {
		t.Fatalf("bind address: %v", err)
	}
}

func TestSeedReserve(t *testing.T) {
	ledger, _ := newTestLedger(t)
	reserve, err := ledger.ReserveBalance()
	if err != nil {
		t.Fatalf("reserve balance: %v", err)
	}
	if reserve.Cmp(Tokens(1_000_000)) != 0 {
		t.Fatalf("reserve = %s, want %s", reserve, Tokens(1_000_000))
	}

	// Seeding again must not double the reserve.
	if err := ledger.Seed(); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	reserve, err = ledger.ReserveBalance()
	if err != nil {
		t.Fatalf("reserve balance: %v", err)
	}
	if reserve.Cmp(Tokens(1_000_000)) != 0 {
		t.Fatalf("reserve after reseed = %s", reserve)
	}
}

func TestRewardInfoDefaults(t *testing.T) {
	ledger, _ := newTestLedger(t)
	info := ledger.RewardInfo()
	if info.BasePerPayment.Cmp(Tokens(100)) != 0 {
		t.Fatalf("base = %s, want %s", info.BasePerPayment, Tokens(100))
	}
	if info.BonusThreshold != 10 || info.BonusMultiplier != 2 {
		t.Fatalf("threshold/multiplier = %d/%d, want 10/2", info.BonusThreshold, info.BonusMultiplier)
	}
}

func TestRegisterUserAddress(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	userHash := crypto.UserHash("user123", "")
	wallet := testAddress(2)

	if err := ledger.RegisterUserAddress(caller, userHash, wallet); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("unauthorized bind returned %v", err)
	}
	authorizeCaller(t, st, caller)
	bindUser(t, ledger, caller, userHash, wallet)

	bound, ok, err := ledger.BoundAddress(userHash)
	if err != nil || !ok {
		t.Fatalf("bound address: ok=%v err=%v", ok, err)
	}
	if bound.String() != wallet.String() {
		t.Fatalf("bound = %s, want %s", bound, wallet)
	}

	// Binding is set-once.
	if err := ledger.RegisterUserAddress(caller, userHash, testAddress(3)); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("rebind returned %v, want ErrAlreadyBound", err)
	}
}

func TestDistributeRewardOnTime(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	wallet := testAddress(2)
	bindUser(t, ledger, caller, userHash, wallet)

	dist, err := ledger.DistributeReward(caller, userHash, true)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if dist.Amount.Cmp(Tokens(100)) != 0 {
		t.Fatalf("reward = %s, want %s", dist.Amount, Tokens(100))
	}
	if dist.ConsecutiveCount != 1 || dist.BonusApplied {
		t.Fatalf("unexpected distribution %+v", dist)
	}

	balance, err := ledger.BalanceOf(wallet)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(Tokens(100)) != 0 {
		t.Fatalf("wallet balance = %s", balance)
	}
	reserve, err := ledger.ReserveBalance()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reserve.Cmp(Tokens(999_900)) != 0 {
		t.Fatalf("reserve = %s", reserve)
	}
}

func TestDistributeRewardGuards(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	userHash := crypto.UserHash("user123", "")

	if _, err := ledger.DistributeReward(caller, userHash, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("unauthorized distribute returned %v", err)
	}
	authorizeCaller(t, st, caller)
	if _, err := ledger.DistributeReward(caller, userHash, true); !errors.Is(err, ErrNoAddressBound) {
		t.Fatalf("unbound distribute returned %v", err)
	}
}

func TestLatePaymentResetsCounter(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	bindUser(t, ledger, caller, userHash, testAddress(2))

	for i := 0; i < 4; i++ {
		if _, err := ledger.DistributeReward(caller, userHash, true); err != nil {
			t.Fatalf("distribute %d: %v", i, err)
		}
	}
	stats, err := ledger.GetUserRewardStats(userHash)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ConsecutiveCount != 4 {
		t.Fatalf("count = %d, want 4", stats.ConsecutiveCount)
	}

	dist, err := ledger.DistributeReward(caller, userHash, false)
	if err != nil {
		t.Fatalf("late distribute: %v", err)
	}
	if dist.Amount.Sign() != 0 {
		t.Fatalf("late payment paid %s tokens", dist.Amount)
	}
	stats, err = ledger.GetUserRewardStats(userHash)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ConsecutiveCount != 0 {
		t.Fatalf("count after late = %d, want 0", stats.ConsecutiveCount)
	}
	// Balance is untouched by a late payment.
	if stats.Balance.Cmp(Tokens(400)) != 0 {
		t.Fatalf("balance = %s, want %s", stats.Balance, Tokens(400))
	}
}

func TestBonusTriggersAtThresholdPayment(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	bindUser(t, ledger, caller, userHash, testAddress(2))

	// Payments 1-9 pay the base reward; the 10th reaches the threshold and
	// pays double.
	for i := 1; i <= 10; i++ {
		dist, err := ledger.DistributeReward(caller, userHash, true)
		if err != nil {
			t.Fatalf("distribute %d: %v", i, err)
		}
		want := Tokens(100)
		wantBonus := false
		if i >= 10 {
			want = Tokens(200)
			wantBonus = true
		}
		if dist.Amount.Cmp(want) != 0 {
			t.Fatalf("payment %d reward = %s, want %s", i, dist.Amount, want)
		}
		if dist.BonusApplied != wantBonus {
			t.Fatalf("payment %d bonusApplied = %v", i, dist.BonusApplied)
		}
	}
	stats, err := ledger.GetUserRewardStats(userHash)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ConsecutiveCount != 10 {
		t.Fatalf("count = %d, want 10", stats.ConsecutiveCount)
	}
	// 9×100 + 1×200 = 1100 tokens.
	if stats.TotalEarned.Cmp(Tokens(1100)) != 0 {
		t.Fatalf("total earned = %s, want %s", stats.TotalEarned, Tokens(1100))
	}

	// Beyond the threshold the bonus keeps applying.
	dist, err := ledger.DistributeReward(caller, userHash, true)
	if err != nil {
		t.Fatalf("11th distribute: %v", err)
	}
	if dist.Amount.Cmp(Tokens(200)) != 0 {
		t.Fatalf("11th reward = %s, want %s", dist.Amount, Tokens(200))
	}

	// A late payment drops the user back to the base reward.
	if _, err := ledger.DistributeReward(caller, userHash, false); err != nil {
		t.Fatalf("late distribute: %v", err)
	}
	dist, err = ledger.DistributeReward(caller, userHash, true)
	if err != nil {
		t.Fatalf("post-reset distribute: %v", err)
	}
	if dist.Amount.Cmp(Tokens(100)) != 0 || dist.ConsecutiveCount != 1 {
		t.Fatalf("post-reset distribution %+v", dist)
	}
}

func TestInsufficientReserveSurfaced(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(st)
	ledger.SetParams(Params{InitialReserve: Tokens(150)})
	if err := ledger.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	bindUser(t, ledger, caller, userHash, testAddress(2))

	if _, err := ledger.DistributeReward(caller, userHash, true); err != nil {
		t.Fatalf("first distribute: %v", err)
	}
	_, err := ledger.DistributeReward(caller, userHash, true)
	if !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("got %v, want ErrInsufficientReserve", err)
	}

	// The failed distribution must not advance the counter or move tokens.
	stats, statsErr := ledger.GetUserRewardStats(userHash)
	if statsErr != nil {
		t.Fatalf("stats: %v", statsErr)
	}
	if stats.ConsecutiveCount != 1 {
		t.Fatalf("count = %d, want 1", stats.ConsecutiveCount)
	}
	if stats.Balance.Cmp(Tokens(100)) != 0 {
		t.Fatalf("balance = %s, want %s", stats.Balance, Tokens(100))
	}
}

func TestMintAdditional(t *testing.T) {
	ledger, st := newTestLedger(t)
	owner := testAddress(7)
	if err := ledger.MintAdditional(owner, Tokens(10)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner mint returned %v", err)
	}
	if err := st.SetOwner(owner.Bytes()); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	if err := ledger.MintAdditional(owner, Tokens(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	reserve, err := ledger.ReserveBalance()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reserve.Cmp(Tokens(1_000_010)) != 0 {
		t.Fatalf("reserve = %s", reserve)
	}
}

func TestSelfTransferConservesBalance(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	wallet := testAddress(2)
	bindUser(t, ledger, caller, userHash, wallet)
	if _, err := ledger.DistributeReward(caller, userHash, true); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	if err := ledger.Transfer(wallet, wallet, Tokens(100)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	balance, err := ledger.BalanceOf(wallet)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(Tokens(100)) != 0 {
		t.Fatalf("balance after self transfer = %s, want %s", balance, Tokens(100))
	}

	// The funds check still applies to a self-transfer.
	if err := ledger.Transfer(wallet, wallet, Tokens(500)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraft self transfer returned %v", err)
	}

	// Pulling into the same account consumes the allowance but conserves
	// the balance.
	if err := ledger.Approve(wallet, wallet, Tokens(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(wallet, wallet, wallet, Tokens(100)); err != nil {
		t.Fatalf("self transferFrom: %v", err)
	}
	allowed, err := ledger.Allowance(wallet, wallet)
	if err != nil || allowed.Sign() != 0 {
		t.Fatalf("allowance after self pull = %s err=%v", allowed, err)
	}
	balance, err = ledger.BalanceOf(wallet)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(Tokens(100)) != 0 {
		t.Fatalf("balance after self pull = %s, want %s", balance, Tokens(100))
	}
}

func TestReservedAddressCannotBeBound(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")

	if err := ledger.RegisterUserAddress(caller, userHash, ReserveAddress()); !errors.Is(err, ErrReservedAddress) {
		t.Fatalf("binding the reserve returned %v, want ErrReservedAddress", err)
	}

	collector := testAddress(9)
	ledger.RestrictAddress(collector)
	if err := ledger.RegisterUserAddress(caller, userHash, collector); !errors.Is(err, ErrReservedAddress) {
		t.Fatalf("binding a restricted address returned %v, want ErrReservedAddress", err)
	}

	// The rejected binds must leave the account unbound.
	if _, ok, err := ledger.BoundAddress(userHash); err != nil || ok {
		t.Fatalf("account bound after rejected binds: ok=%v err=%v", ok, err)
	}
	bindUser(t, ledger, caller, userHash, testAddress(2))
}

func TestApproveTransferFrom(t *testing.T) {
	ledger, st := newTestLedger(t)
	caller := testAddress(1)
	authorizeCaller(t, st, caller)
	userHash := crypto.UserHash("user123", "")
	wallet := testAddress(2)
	spender := testAddress(3)
	collector := testAddress(4)
	bindUser(t, ledger, caller, userHash, wallet)
	for i := 0; i < 3; i++ {
		if _, err := ledger.DistributeReward(caller, userHash, true); err != nil {
			t.Fatalf("distribute: %v", err)
		}
	}

	// No allowance yet.
	if err := ledger.TransferFrom(spender, wallet, collector, Tokens(100)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("pull without allowance returned %v", err)
	}

	if err := ledger.Approve(wallet, spender, Tokens(250)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	allowed, err := ledger.Allowance(wallet, spender)
	if err != nil || allowed.Cmp(Tokens(250)) != 0 {
		t.Fatalf("allowance = %s err=%v", allowed, err)
	}

	if err := ledger.TransferFrom(spender, wallet, collector, Tokens(100)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	allowed, err = ledger.Allowance(wallet, spender)
	if err != nil || allowed.Cmp(Tokens(150)) != 0 {
		t.Fatalf("allowance after pull = %s err=%v", allowed, err)
	}
	balance, err := ledger.BalanceOf(collector)
	if err != nil || balance.Cmp(Tokens(100)) != 0 {
		t.Fatalf("collector balance = %s err=%v", balance, err)
	}

	// Allowance larger than balance still fails on funds.
	if err := ledger.Approve(wallet, spender, Tokens(10_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, wallet, collector, Tokens(5_000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraft pull returned %v", err)
	}
}
