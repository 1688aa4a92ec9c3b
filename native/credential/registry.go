package credential

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/events"
	"github.com/Davidcuama/SisteCredito-Hackaton/core/state"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

type registryState interface {
	HasRole(role string, addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Registry owns user profiles and the append-only payment log, and derives
// the reliability score from them.
type Registry struct {
	st      registryState
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}, nowFn: time.Now}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the clock used for LastUpdate stamps. Intended for
// tests.
func (r *Registry) SetNowFunc(now func() time.Time) {
	if now != nil {
		r.nowFn = now
	}
}

func profileKey(userHash crypto.Hash) []byte {
	return []byte("credential/users/" + hex.EncodeToString(userHash[:]))
}

func paymentsKey(userHash crypto.Hash) []byte {
	return []byte("credential/payments/" + hex.EncodeToString(userHash[:]))
}

// CreateUser registers a new, empty credential profile for userHash.
func (r *Registry) CreateUser(caller crypto.Address, userHash crypto.Hash) error {
	if userHash.IsZero() {
		return fmt.Errorf("%w: zero user hash", ErrInvalidPayment)
	}
	exists, err := r.st.KVGet(profileKey(userHash), new(UserProfile))
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}
	profile := &UserProfile{
		UserHash:   userHash,
		Score:      InitialScore,
		LastUpdate: r.nowFn().Unix(),
		Exists:     true,
	}
	if err := r.st.KVPut(profileKey(userHash), profile); err != nil {
		return err
	}
	r.emit(events.UserCreated{UserHash: userHash, Caller: caller})
	return nil
}

// RegisterPayment validates and appends an attested payment, then recomputes
// the user's score. Only callers holding the reporting-entity role may
// submit payments. The returned outcome drives reward distribution.
func (r *Registry) RegisterPayment(caller crypto.Address, p *Payment) (*Outcome, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payment", ErrInvalidPayment)
	}
	if !r.st.HasRole(state.RoleReportingEntity, caller.Bytes()) {
		return nil, ErrNotAuthorized
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	profile := new(UserProfile)
	found, err := r.st.KVGet(profileKey(p.UserHash), profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownUser
	}

	// Paying exactly on the due date counts as on time.
	isOnTime := p.PaymentDate <= p.DueDate

	record := PaymentRecord{
		UserHash:    p.UserHash,
		PaymentHash: crypto.PaymentHash(p.UserHash, p.EntityHash, p.Amount, p.DueDate, p.PaymentDate, p.Category),
		Amount:      new(big.Int).Set(p.Amount),
		DueDate:     p.DueDate,
		PaymentDate: p.PaymentDate,
		IsOnTime:    isOnTime,
		EntityHash:  p.EntityHash,
		Category:    p.Category,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := r.st.KVAppend(paymentsKey(p.UserHash), raw); err != nil {
		return nil, err
	}

	profile.TotalPayments++
	if isOnTime {
		profile.OnTimePayments++
	}
	// Truncating integer division is a compatibility requirement.
	profile.Score = profile.OnTimePayments * ScoreScale / profile.TotalPayments
	profile.LastUpdate = r.nowFn().Unix()
	if err := r.st.KVPut(profileKey(p.UserHash), profile); err != nil {
		return nil, err
	}

	r.emit(events.PaymentRegistered{
		UserHash:    p.UserHash,
		PaymentHash: record.PaymentHash,
		EntityHash:  p.EntityHash,
		Amount:      new(big.Int).Set(p.Amount),
		IsOnTime:    isOnTime,
		NewScore:    profile.Score,
	})
	return &Outcome{PaymentHash: record.PaymentHash, IsOnTime: isOnTime, NewScore: profile.Score}, nil
}

// GetUserProfile retrieves the stored profile for userHash.
func (r *Registry) GetUserProfile(userHash crypto.Hash) (*UserProfile, error) {
	profile := new(UserProfile)
	found, err := r.st.KVGet(profileKey(userHash), profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownUser
	}
	return profile, nil
}

// GetUserStats derives the read-model served to the UI. The on-time
// percentage follows directly from the score formula.
func (r *Registry) GetUserStats(userHash crypto.Hash) (*UserStats, error) {
	profile, err := r.GetUserProfile(userHash)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		TotalPayments:    profile.TotalPayments,
		OnTimePayments:   profile.OnTimePayments,
		Score:            profile.Score,
		OnTimePercentage: profile.Score / 10,
	}, nil
}

// GetUserPayments returns the user's payment history in append order.
func (r *Registry) GetUserPayments(userHash crypto.Hash) ([]PaymentRecord, error) {
	if _, err := r.GetUserProfile(userHash); err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := r.st.KVGetList(paymentsKey(userHash), &raw); err != nil {
		return nil, err
	}
	records := make([]PaymentRecord, 0, len(raw))
	for _, entry := range raw {
		var rec PaymentRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			return nil, fmt.Errorf("credential: corrupt payment record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}
