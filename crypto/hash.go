package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Hash is a 256-bit pseudonym derived from private identifiers. It is the
// only key ever stored for a user or reporting entity; raw identifiers never
// enter the ledger.
type Hash [32]byte

// UserHash derives the pseudonym for a user from their private identifier
// and an optional salt. The derivation is pure: the UI recomputes it locally
// without querying the registry.
func UserHash(identifier, salt string) Hash {
	var h Hash
	copy(h[:], ethcrypto.Keccak256([]byte(identifier+salt)))
	return h
}

// EntityHash derives the pseudonym for a reporting entity from its name and
// registry identifier.
func EntityHash(name, id string) Hash {
	var h Hash
	copy(h[:], ethcrypto.Keccak256([]byte(name+id)))
	return h
}

// PaymentHash fingerprints a payment record for event correlation. The
// encoding is length-prefixed so distinct field values never collide on
// concatenation.
func PaymentHash(user, entity Hash, amount *big.Int, dueDate, paymentDate int64, category string) Hash {
	var buf []byte
	buf = append(buf, user[:]...)
	buf = append(buf, entity[:]...)
	amt := amount
	if amt == nil {
		amt = big.NewInt(0)
	}
	amtBytes := amt.Bytes()
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(amtBytes)))
	buf = append(buf, amtBytes...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(dueDate))
	buf = binary.BigEndian.AppendUint64(buf, uint64(paymentDate))
	buf = append(buf, []byte(category)...)
	var h Hash
	copy(h[:], ethcrypto.Keccak256(buf))
	return h
}

// String renders the hash with a 0x prefix.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns a copy of the raw hash bytes.
func (h Hash) Bytes() []byte {
	return append([]byte(nil), h[:]...)
}

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 0x-prefixed or bare hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash encoding: %w", err)
	}
	if len(raw) != len(Hash{}) {
		return Hash{}, fmt.Errorf("invalid hash length: %d", len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}
