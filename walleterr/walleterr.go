// Package walleterr defines the error taxonomy described in spec.md §7.
// Kinds with structured fields are distinct types so callers can use
// errors.As to recover them (e.g. the available/required amounts of
// InsufficientFundsError) instead of parsing a message string; the other
// kinds share one type built by New/Wrap and are told apart by Kind(). Low-level
// causes are wrapped with github.com/pkg/errors so the original stack trace
// survives through the account/sync/txbuilder layers, matching the
// teacher's habit of wrapping storage/network errors before logging them.
package walleterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the taxonomy from spec.md §7.
type Kind string

const (
	KindIO                    Kind = "io"
	KindStorage               Kind = "storage"
	KindNodeClient            Kind = "node-client"
	KindBlockBuilding         Kind = "block-building"
	KindInvalidAddress        Kind = "invalid-address"
	KindInvalidMnemonic       Kind = "invalid-mnemonic"
	KindInvalidCoinType       Kind = "invalid-coin-type"
	KindAccountNotFound       Kind = "account-not-found"
	KindAccountAliasExists    Kind = "account-alias-already-exists"
	KindRecordNotFound        Kind = "record-not-found"
	KindInsufficientFunds     Kind = "insufficient-funds"
	KindLatestAccountEmpty    Kind = "latest-account-is-empty"
	KindTooManyInputs         Kind = "too-many-inputs"
	KindTooManyOutputs        Kind = "too-many-outputs"
	KindConsolidationRequired Kind = "consolidation-required"
	KindCustomInput           Kind = "custom-input-error"
	KindAddressNotFound       Kind = "address-not-found-in-account"
	KindMintingFailed         Kind = "minting-failed"
	KindBurningOrMelting      Kind = "burning-or-melting-failed"
	KindNftNotFound           Kind = "nft-not-found"
	KindFailedRemainder       Kind = "failed-to-get-remainder"
	KindInvalidOutputKind     Kind = "invalid-output-kind"
	KindMissingParameter      Kind = "missing-parameter"
	KindTimeNotSynced         Kind = "time-not-synced"
	KindTaskJoin              Kind = "task-join"
	KindBackup                Kind = "backup"
	KindLedgerLocked          Kind = "ledger-locked"
	KindLedgerDisconnected    Kind = "ledger-disconnected"
	KindInvalidMessage        Kind = "invalid-message"
	KindPanic                 Kind = "panic"
)

// WalletError is the common shape every taxonomy member satisfies.
type WalletError interface {
	error
	Kind() Kind
}

type simple struct {
	kind Kind
	msg  string
	err  error
}

func (e *simple) Kind() Kind { return e.kind }
func (e *simple) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}
func (e *simple) Unwrap() error { return e.err }
func (e *simple) Cause() error  { return e.err }

// New builds a taxonomy member with a static message.
func New(kind Kind, msg string) error {
	return &simple{kind: kind, msg: msg}
}

// Wrap attaches a taxonomy kind to a lower-level cause, preserving its
// pkg/errors stack trace (callers of an external collaborator — node
// client, storage adapter, signer — should always wrap through here rather
// than returning the raw error).
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &simple{kind: kind, msg: msg, err: errors.WithStack(cause)}
}

// InsufficientFundsError carries the structured fields spec.md §7 requires.
type InsufficientFundsError struct {
	Available uint64
	Required  uint64
}

func (e *InsufficientFundsError) Kind() Kind { return KindInsufficientFunds }
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %d, required %d", e.Available, e.Required)
}

// ConsolidationRequiredError carries the over-threshold input count.
type ConsolidationRequiredError struct {
	InputCount int
	MaxInputs  int
}

func (e *ConsolidationRequiredError) Kind() Kind { return KindConsolidationRequired }
func (e *ConsolidationRequiredError) Error() string {
	return fmt.Sprintf("consolidation required: would need %d inputs, max is %d", e.InputCount, e.MaxInputs)
}

// TooManyInputsError / TooManyOutputsError carry the protocol-limit values.
type TooManyInputsError struct{ Count, Max int }

func (e *TooManyInputsError) Kind() Kind { return KindTooManyInputs }
func (e *TooManyInputsError) Error() string {
	return fmt.Sprintf("too many inputs: %d exceeds max %d", e.Count, e.Max)
}

type TooManyOutputsError struct{ Count, Max int }

func (e *TooManyOutputsError) Kind() Kind { return KindTooManyOutputs }
func (e *TooManyOutputsError) Error() string {
	return fmt.Sprintf("too many outputs: %d exceeds max %d", e.Count, e.Max)
}

// NoOutputsToConsolidateError is the claim-with-nothing-claimable boundary
// case from spec.md §8.
type NoOutputsToConsolidateError struct {
	Available, Threshold int
}

func (e *NoOutputsToConsolidateError) Kind() Kind { return KindConsolidationRequired }
func (e *NoOutputsToConsolidateError) Error() string {
	return fmt.Sprintf("no outputs to consolidate: available %d, threshold %d", e.Available, e.Threshold)
}

// TimeNotSyncedError reports the clock-skew guard from spec.md §7.
type TimeNotSyncedError struct {
	LocalUnix, LatestMilestoneUnix int64
}

func (e *TimeNotSyncedError) Kind() Kind { return KindTimeNotSynced }
func (e *TimeNotSyncedError) Error() string {
	return fmt.Sprintf("local clock not synced with node: local=%d latest-milestone=%d", e.LocalUnix, e.LatestMilestoneUnix)
}

// CustomInputError wraps a caller-supplied reason for a rejected mandatory
// or custom input selection.
type CustomInputError struct{ Reason string }

func (e *CustomInputError) Kind() Kind    { return KindCustomInput }
func (e *CustomInputError) Error() string { return "custom input error: " + e.Reason }

// AddressNotFoundError names the address a high-level operation could not
// resolve to an account-owned address.
type AddressNotFoundError struct{ Address string }

func (e *AddressNotFoundError) Kind() Kind    { return KindAddressNotFound }
func (e *AddressNotFoundError) Error() string { return "address not found in account: " + e.Address }

// NftNotFoundError is spec.md §4.3's NftNotFoundInUnspentOutputs: the
// caller named an nft id the account does not currently hold unspent.
type NftNotFoundError struct{ NFTID string }

func (e *NftNotFoundError) Kind() Kind    { return KindNftNotFound }
func (e *NftNotFoundError) Error() string { return "nft not found in unspent outputs: " + e.NFTID }

// AccountAliasExistsError names the alias CreateAccount rejected as a
// duplicate (spec.md §4.6 create_account: "enforces uniqueness of alias").
type AccountAliasExistsError struct{ Alias string }

func (e *AccountAliasExistsError) Kind() Kind    { return KindAccountAliasExists }
func (e *AccountAliasExistsError) Error() string { return "account alias already exists: " + e.Alias }

// InvalidCoinTypeError reports a coin-type mismatch, either between a new
// account and the manager's established coin type, or between a restored
// backup and the manager (spec.md §4.6 restore_backup).
type InvalidCoinTypeError struct{ Expected, Got uint32 }

func (e *InvalidCoinTypeError) Kind() Kind { return KindInvalidCoinType }
func (e *InvalidCoinTypeError) Error() string {
	return fmt.Sprintf("invalid coin type: expected %d, got %d", e.Expected, e.Got)
}

// AccountNotFoundError names the account index/alias a lookup could not
// resolve (spec.md §4.6 get_account).
type AccountNotFoundError struct{ Ref string }

func (e *AccountNotFoundError) Kind() Kind    { return KindAccountNotFound }
func (e *AccountNotFoundError) Error() string { return "account not found: " + e.Ref }

// StorageExistsError is restore_backup's failure when an account the backup
// would create already exists on disk (spec.md §4.6).
type StorageExistsError struct{ Ref string }

func (e *StorageExistsError) Kind() Kind    { return KindStorage }
func (e *StorageExistsError) Error() string { return "storage already exists for: " + e.Ref }
