// Package txbuilder implements input selection and transaction building,
// spec.md §4.3: given required outputs, choose inputs, compute remainder,
// enforce storage deposits, balance native tokens, sign, submit, and
// persist. The algorithm's shape — select, then sign under the account's
// exclusive lock, then submit, then persist — follows the teacher's
// fee-delegated transaction assembly (builder collects inputs and
// signatures before a single submit call; see blockchain/types's
// transaction-signing helpers) generalized from an EVM nonce/gas-price
// model to UTXO input selection.
package txbuilder

import (
	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/iotago"
)

// RemainderStrategy selects where leftover value from input selection goes
// (spec.md §4.3 step 5).
type RemainderStrategy int

const (
	// ReuseAddress sends the remainder to the owning address of the first
	// output in the eligible input pool (not necessarily one of the selected
	// inputs), else to the account's first address holding unspent outputs.
	ReuseAddress RemainderStrategy = iota
	// ChangeAddress generates a fresh internal address for the remainder.
	ChangeAddress
	// CustomAddress sends the remainder to Options.CustomRemainderAddress.
	CustomAddress
)

// Options is the per-send TransactionOptions block of spec.md §4.3.
type Options struct {
	RemainderValueStrategy  RemainderStrategy
	CustomRemainderAddress  *iotago.Address
	TaggedDataPayload       *iotago.TaggedDataPayload
	CustomInputs            []iotago.OutputID
	MandatoryInputs         []iotago.OutputID
	SkipSync                bool
	SkipSubmit              bool
	AllowMicroAmount        bool
	Note                    string

	// BurnNativeTokens names native tokens that must be consumed as input
	// without reappearing in any output (spec.md §4.3 step 4: "with
	// equality when burning is not requested" implies inputs strictly
	// exceed outputs by this amount when it is). Selection adds these
	// amounts to its per-token targets; the remainder step subtracts them
	// back out before computing leftover so the burned amount is destroyed
	// rather than rolled into a remainder output (spec.md §4.4
	// DecreaseNativeTokenSupply/melt).
	BurnNativeTokens map[iotago.TokenID]uint64
}

// DefaultOptions matches spec.md §4.3's implied defaults: no custom inputs,
// reuse the spending address for remainder, always sync and submit.
var DefaultOptions = Options{RemainderValueStrategy: ReuseAddress}

// DeriveAddressFunc derives a fresh address at the next internal key index,
// used only when RemainderValueStrategy is ChangeAddress. internal/manager
// supplies this, wired to the configured Signer.
type DeriveAddressFunc func() (iotago.Address, error)

// SelectionResult is the outcome of input selection (spec.md §4.3 step 4).
type SelectionResult struct {
	Inputs         []*account.OutputData
	RemainderOut   *iotago.BasicOutput
	RemainderOwner iotago.Address
}
