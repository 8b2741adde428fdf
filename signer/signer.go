// Package signer defines the contract the wallet core draws from the
// external signer collaborator (spec.md §6.1). Mnemonic/SLIP-10 derivation
// and hardware-wallet protocols are explicitly out of scope (spec.md §1);
// this package only specifies the interface and a deterministic in-memory
// implementation used by tests and by callers who don't need real custody
// (e.g. integration tests exercising the sync/selection pipeline).
package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"

	"github.com/iotaledger/wallet.go/iotago"
)

// DerivationPath identifies a key the signer should use, per spec.md §3
// invariant 7: (coin_type, account_index, internal, key_index).
type DerivationPath struct {
	CoinType     uint32
	AccountIndex uint32
	Internal     bool
	KeyIndex     uint32
}

// InputSigningData pairs an input with the derivation path that unlocks it,
// the shape sign_transaction's second argument takes in spec.md §6.1.
type InputSigningData struct {
	OutputID       iotago.OutputID
	Path           DerivationPath
}

// Status reports hardware-signer state (spec.md §9 supplemented feature:
// GetStatus, wired through to LedgerLocked/LedgerDisconnected in the actor
// façade).
type Status struct {
	Connected bool
	Locked    bool
}

// Signer is the contract spec.md §6.1 requires.
type Signer interface {
	GenerateAddress(ctx context.Context, accountIndex uint32, internal bool, keyIndex uint32) (iotago.Address, error)
	SignTransaction(ctx context.Context, essenceBytes []byte, inputs []InputSigningData) ([]iotago.UnlockBlock, error)

	// Optional surface, only meaningful for a hardware/mnemonic signer.
	StoreMnemonic(ctx context.Context, mnemonic string) error
	GetStatus(ctx context.Context) (Status, error)
}

// InMemorySigner derives ed25519 keys from a seed using a simple
// HMAC-SHA512 hardened-style KDF. It is NOT the production SLIP-10
// derivation used by the real signer collaborator — that lives entirely
// outside this module's scope — but it is deterministic and
// collision-resistant enough to drive account/sync/txbuilder tests without
// a mock for every call site.
type InMemorySigner struct {
	seed     []byte
	coinType uint32
}

func NewInMemorySigner(seed []byte, coinType uint32) *InMemorySigner {
	return &InMemorySigner{seed: seed, coinType: coinType}
}

func (s *InMemorySigner) derive(accountIndex uint32, internal bool, keyIndex uint32) ed25519.PrivateKey {
	mac := hmac.New(sha512.New, s.seed)
	internalByte := byte(0)
	if internal {
		internalByte = 1
	}
	mac.Write([]byte{
		byte(s.coinType), byte(s.coinType >> 8), byte(s.coinType >> 16), byte(s.coinType >> 24),
		byte(accountIndex), byte(accountIndex >> 8), byte(accountIndex >> 16), byte(accountIndex >> 24),
		internalByte,
		byte(keyIndex), byte(keyIndex >> 8), byte(keyIndex >> 16), byte(keyIndex >> 24),
	})
	sum := mac.Sum(nil)
	return ed25519.NewKeyFromSeed(sum[:ed25519.SeedSize])
}

func (s *InMemorySigner) GenerateAddress(_ context.Context, accountIndex uint32, internal bool, keyIndex uint32) (iotago.Address, error) {
	priv := s.derive(accountIndex, internal, keyIndex)
	pub := priv.Public().(ed25519.PublicKey)
	return iotago.Ed25519AddressFromPublicKey(pub), nil
}

func (s *InMemorySigner) SignTransaction(_ context.Context, essenceBytes []byte, inputs []InputSigningData) ([]iotago.UnlockBlock, error) {
	seen := make(map[DerivationPath]int)
	blocks := make([]iotago.UnlockBlock, 0, len(inputs))
	for _, in := range inputs {
		if idx, ok := seen[in.Path]; ok {
			blocks = append(blocks, iotago.UnlockBlock{Type: iotago.UnlockBlockReference, Reference: uint16(idx)})
			continue
		}
		priv := s.derive(in.Path.AccountIndex, in.Path.Internal, in.Path.KeyIndex)
		sig := ed25519.Sign(priv, essenceBytes)
		pub := priv.Public().(ed25519.PublicKey)
		payload := append(append([]byte{}, pub...), sig...)
		seen[in.Path] = len(blocks)
		blocks = append(blocks, iotago.UnlockBlock{Type: iotago.UnlockBlockSignature, Signature: payload})
	}
	return blocks, nil
}

func (s *InMemorySigner) StoreMnemonic(context.Context, string) error { return nil }

func (s *InMemorySigner) GetStatus(context.Context) (Status, error) {
	return Status{Connected: true, Locked: false}, nil
}
