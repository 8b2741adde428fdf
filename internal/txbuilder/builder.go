package txbuilder

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/signer"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.TxBuilder)

// Clock supplies the current time/milestone the claim-eligibility predicate
// evaluates against; tests substitute a fixed clock.
type Clock interface {
	Now() (unixTime uint32, milestone uint32)
}

type systemClock struct{ milestone func() uint32 }

func (c systemClock) Now() (uint32, uint32) {
	ms := uint32(0)
	if c.milestone != nil {
		ms = c.milestone()
	}
	return uint32(time.Now().Unix()), ms
}

// Builder assembles, signs, and submits transactions for one account, per
// spec.md §4.3.
type Builder struct {
	Account   *account.Account
	Node      client.NodeClient
	Signer    signer.Signer
	Bus       eventbus.Bus
	NetworkID uint64
	Rent      params.RentStructure
	Clock     Clock

	// PreSync runs spec.md §4.3 step 1 unless Options.SkipSync; nil skips
	// the step entirely (e.g. in tests driving selection directly).
	PreSync func(ctx context.Context) error

	// DeriveRemainderAddress is used only for RemainderValueStrategy ==
	// ChangeAddress.
	DeriveRemainderAddress DeriveAddressFunc
}

func (b *Builder) clock() Clock {
	if b.Clock != nil {
		return b.Clock
	}
	return systemClock{}
}

func (b *Builder) publish(kind eventbus.EventKind, payload interface{}) {
	if b.Bus == nil {
		return
	}
	b.Bus.Publish(eventbus.Event{AccountIndex: b.Account.Index(), Kind: kind, Payload: payload})
}

// Send runs the full input-selection/build/sign/submit/persist pipeline of
// spec.md §4.3 for the given required outputs.
func (b *Builder) Send(ctx context.Context, outputs []iotago.Output, opts Options) (*account.TransactionRecord, error) {
	if !opts.SkipSync && b.PreSync != nil {
		if err := b.PreSync(ctx); err != nil {
			return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "pre-send sync failed")
		}
	}

	if err := b.checkTimeSynced(ctx); err != nil {
		return nil, err
	}

	ownerAddrs := b.ownerAddressSet()
	currentTime, currentMilestone := b.clock().Now()

	pool := b.eligiblePool(ownerAddrs, currentTime, currentMilestone)

	mandatory, err := b.resolveMandatory(opts)
	if err != nil {
		return nil, err
	}

	min := b.Rent.MinStorageDeposit(33, 0)

	outputs, err = b.applyMicroAmountPolicy(outputs, opts, min)
	if err != nil {
		return nil, err
	}

	targetBase, targetTokens := sumOutputSlice(outputs)
	for id, amt := range opts.BurnNativeTokens {
		targetTokens[id] += amt
	}

	remainderAddr, err := b.resolveRemainderAddress(opts, pool)
	if err != nil {
		return nil, err
	}

	chosen, err := selectInputs(pool, mandatory, targetBase, targetTokens)
	if err != nil {
		return nil, err
	}

	if remainderNeedsMoreInputs(chosen, outputs, min, opts.BurnNativeTokens) {
		chosen, err = selectInputs(pool, mandatory, targetBase+min, targetTokens)
		if err != nil {
			return nil, err
		}
	}

	finalOutputs, remainder, err := b.buildRemainder(chosen, outputs, remainderAddr, min, opts.BurnNativeTokens)
	if err != nil {
		return nil, err
	}

	if len(finalOutputs) > params.MaxOutputs {
		return nil, &walleterr.TooManyOutputsError{Count: len(finalOutputs), Max: params.MaxOutputs}
	}

	essence := iotago.TransactionEssence{
		NetworkID: b.NetworkID,
		Inputs:    inputIDs(chosen),
		Outputs:   finalOutputs,
		Payload:   opts.TaggedDataPayload,
	}

	unlocks, err := b.sign(ctx, essence, chosen)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindBlockBuilding, err, "signing failed")
	}
	tx := iotago.Transaction{Essence: essence, UnlockBlocks: unlocks}

	var blockID iotago.BlockID
	if !opts.SkipSubmit {
		blockID, err = b.Node.PostBlock(ctx, &iotago.Block{Payload: &tx})
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "block submission failed")
		}
	}

	txID := blockID // the wallet treats a transaction's id as its containing block id until the real protocol hash is wired in

	lockIDs := make([]iotago.OutputID, 0, len(chosen))
	for _, od := range chosen {
		lockIDs = append(lockIDs, od.OutputID)
	}
	if err := b.Account.LockOutputs(lockIDs...); err != nil {
		return nil, err
	}

	record := &account.TransactionRecord{
		TransactionID:  iotago.TransactionID(txID),
		Payload:        tx,
		BlockID:        &blockID,
		InclusionState: iotago.InclusionPending,
		NetworkID:      b.NetworkID,
		Note:           opts.Note,
	}
	for _, od := range chosen {
		record.Inputs = append(record.Inputs, account.InputSnapshot{OutputID: od.OutputID, Output: od.Output})
	}
	if err := b.Account.RecordPendingTransaction(record); err != nil {
		return nil, err
	}

	if remainder != nil {
		logger.Debugw("transaction produced a remainder output", "amount", remainder.Amount())
	}
	b.publish(eventbus.EventTransactionProgress, record.TransactionID)

	return record, nil
}

// OwnerAddresses returns the set of addresses this account controls,
// exported for internal/ops's claim/consolidate eligibility scans (spec.md
// §4.4), which run the same UnlockableNow predicate outside of a Send call.
func (b *Builder) OwnerAddresses() map[iotago.Address]bool {
	return b.ownerAddressSet()
}

// Now exposes the builder's configured Clock, so callers outside this
// package evaluate unlock conditions against the same time source Send
// uses (spec.md §4.4 claim eligibility predicate).
func (b *Builder) Now() (uint32, uint32) {
	return b.clock().Now()
}

// checkTimeSynced is spec.md §7's clock-skew guard: before evaluating any
// expiration/timelock unlock condition, compare the node's latest-milestone
// timestamp against local time and fail TimeNotSynced on a skew beyond
// params.TimeSyncToleranceSeconds rather than risk locking funds on a
// mis-evaluated condition. A zero LatestMilestoneTimestamp means the node
// hasn't reported one yet (same "0 means no constraint" convention spec.md
// §4.4 uses for unlock-condition milestone/timestamp fields) and is not
// itself treated as unsynced.
func (b *Builder) checkTimeSynced(ctx context.Context) error {
	info, err := b.Node.Info(ctx)
	if err != nil {
		return walleterr.Wrap(walleterr.KindNodeClient, err, "failed to fetch node info for time-sync check")
	}
	if info.LatestMilestoneTimestamp == 0 {
		return nil
	}
	local := time.Now().Unix()
	skew := local - info.LatestMilestoneTimestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > params.TimeSyncToleranceSeconds {
		return &walleterr.TimeNotSyncedError{LocalUnix: local, LatestMilestoneUnix: info.LatestMilestoneTimestamp}
	}
	return nil
}

func (b *Builder) ownerAddressSet() map[iotago.Address]bool {
	set := make(map[iotago.Address]bool)
	for _, r := range b.Account.Addresses() {
		set[r.Address] = true
	}
	return set
}

func (b *Builder) eligiblePool(ownerAddrs map[iotago.Address]bool, currentTime, currentMilestone uint32) []*account.OutputData {
	var pool []*account.OutputData
	for _, od := range b.Account.UnspentOutputs(account.Filter{}) {
		if b.Account.IsOutputLocked(od.OutputID) {
			continue
		}
		if iotago.HasTag(od.Output, params.ParticipationTag) {
			continue
		}
		if UnlockableNow(od.Output, ownerAddrs, currentTime, currentMilestone) {
			pool = append(pool, od)
		}
	}
	return pool
}

// resolveMandatory looks mandatory/custom inputs up against every unspent
// output the account knows, not just the UnlockableNow-filtered pool:
// alias/foundry outputs are unlocked by governor/state-controller
// conditions rather than a plain address condition, so they never appear
// in the automatic-selection pool but are exactly what callers pass as
// mandatory inputs for alias/foundry transitions (spec.md §4.4).
func (b *Builder) resolveMandatory(opts Options) ([]*account.OutputData, error) {
	want := make(map[iotago.OutputID]bool)
	for _, id := range opts.MandatoryInputs {
		want[id] = true
	}
	for _, id := range opts.CustomInputs {
		want[id] = true
	}
	if len(want) == 0 {
		return nil, nil
	}
	byID := make(map[iotago.OutputID]*account.OutputData)
	for _, od := range b.Account.UnspentOutputs(account.Filter{}) {
		byID[od.OutputID] = od
	}
	var mandatory []*account.OutputData
	for id := range want {
		if b.Account.IsOutputLocked(id) {
			return nil, &walleterr.CustomInputError{Reason: "mandatory or custom input already locked: " + hex.EncodeToString(id[:])}
		}
		od, ok := byID[id]
		if !ok {
			return nil, &walleterr.CustomInputError{Reason: "mandatory or custom input not available: " + hex.EncodeToString(id[:])}
		}
		mandatory = append(mandatory, od)
	}
	return mandatory, nil
}

func (b *Builder) resolveRemainderAddress(opts Options, pool []*account.OutputData) (iotago.Address, error) {
	switch opts.RemainderValueStrategy {
	case CustomAddress:
		if opts.CustomRemainderAddress == nil {
			return iotago.Address{}, walleterr.New(walleterr.KindMissingParameter, "custom remainder address required")
		}
		return *opts.CustomRemainderAddress, nil
	case ChangeAddress:
		if b.DeriveRemainderAddress == nil {
			return iotago.Address{}, walleterr.New(walleterr.KindMissingParameter, "no change-address deriver configured")
		}
		return b.DeriveRemainderAddress()
	default: // ReuseAddress
		if len(pool) > 0 {
			return pool[0].Address, nil
		}
		recs := b.Account.AddressesWithUnspentOutputs()
		if len(recs) > 0 {
			return recs[0].Address, nil
		}
		return iotago.Address{}, walleterr.New(walleterr.KindAddressNotFound, "no owned address available for remainder")
	}
}

// outputTokensPlusBurn returns requested's per-token totals with burn
// amounts folded in: a melt/burn target is consumed like an output would be,
// except it never reappears anywhere in the transaction (spec.md §4.4
// DecreaseNativeTokenSupply).
func outputTokensPlusBurn(requested []iotago.Output, burn map[iotago.TokenID]uint64) (uint64, map[iotago.TokenID]uint64) {
	sumOut, tokensOut := sumOutputSliceMaps(requested)
	for id, amt := range burn {
		tokensOut[id] += amt
	}
	return sumOut, tokensOut
}

// remainderNeedsMoreInputs reports whether chosen's leftover value over
// requested would produce a remainder output below the minimum storage
// deposit — spec.md §4.3 step 5 ("include additional inputs until it is ≥
// the minimum, or fail InsufficientFunds") and §8's boundary behavior
// ("never produces a dust remainder"). The caller re-runs selection with an
// inflated target when this is true, rather than ever shipping a fabricated
// remainder amount. burn is subtracted out first so a melted token never
// counts as leftover to roll into the remainder.
func remainderNeedsMoreInputs(chosen []*account.OutputData, requested []iotago.Output, min uint64, burn map[iotago.TokenID]uint64) bool {
	sumIn, tokensIn := sumOutputs(chosen)
	sumOut, tokensOut := outputTokensPlusBurn(requested, burn)

	remBase := sumIn - sumOut
	hasTokenRemainder := false
	for id, amt := range tokensIn {
		if amt > tokensOut[id] {
			hasTokenRemainder = true
			break
		}
	}
	if remBase == 0 && !hasTokenRemainder {
		return false
	}
	return remBase < min
}

// buildRemainder appends a remainder basic output to requested when the
// chosen inputs exceed requested outputs' value, enforcing the minimum
// storage deposit (spec.md §4.3 step 5). It never inflates the remainder
// amount above what chosen actually backs: if the real leftover is
// nonzero but still below min after the caller's reselection pass, that is
// an insufficient-funds condition, not a dust remainder to round up. burn
// amounts are subtracted from the leftover before building the remainder, so
// a melted/burned native token is destroyed rather than handed back
// (spec.md §4.4 DecreaseNativeTokenSupply).
func (b *Builder) buildRemainder(chosen []*account.OutputData, requested []iotago.Output, remainderAddr iotago.Address, min uint64, burn map[iotago.TokenID]uint64) ([]iotago.Output, *iotago.BasicOutput, error) {
	sumIn, tokensIn := sumOutputs(chosen)
	sumOut, tokensOut := outputTokensPlusBurn(requested, burn)

	remBase := sumIn - sumOut
	remTokens := make([]iotago.NativeToken, 0)
	for id, amt := range tokensIn {
		if leftover := amt - tokensOut[id]; leftover > 0 {
			remTokens = append(remTokens, iotago.NativeToken{ID: id, Amount: leftover})
		}
	}

	if remBase == 0 && len(remTokens) == 0 {
		return requested, nil, nil
	}

	if remBase < min {
		return nil, nil, &walleterr.InsufficientFundsError{Available: sumIn, Required: sumOut + min}
	}

	remainder := iotago.NewBasicOutput(remBase, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: remainderAddr},
	}, nil, remTokens)

	return append(append([]iotago.Output{}, requested...), remainder), remainder, nil
}

// applyMicroAmountPolicy implements spec.md §4.3 step 6: a requested basic
// output whose amount is below the minimum storage deposit is either
// rejected (InsufficientFunds) or, when opts.AllowMicroAmount is set,
// rebuilt carrying the minimum deposit with a storage-deposit-return
// unlock condition obligating the recipient to return the shortfall, plus
// an expiration so the sender can reclaim the whole output if it is never
// claimed. Outputs already at or above the minimum, and non-basic outputs,
// pass through unchanged.
func (b *Builder) applyMicroAmountPolicy(outputs []iotago.Output, opts Options, min uint64) ([]iotago.Output, error) {
	out := make([]iotago.Output, len(outputs))
	for i, o := range outputs {
		basic, ok := o.(*iotago.BasicOutput)
		if !ok || basic.Amount() >= min {
			out[i] = o
			continue
		}
		if !opts.AllowMicroAmount {
			return nil, &walleterr.InsufficientFundsError{Available: basic.Amount(), Required: min}
		}

		addrCond, ok := addressCondition(basic)
		if !ok {
			return nil, walleterr.New(walleterr.KindMissingParameter, "micro-amount output has no address unlock condition")
		}
		returnAddr, err := b.ownOwnerAddressForRemainder(opts)
		if err != nil {
			return nil, err
		}

		conditions := []iotago.UnlockCondition{
			addrCond,
			iotago.StorageDepositReturnUnlockCondition{ReturnAddress: returnAddr, ReturnAmount: min - basic.Amount()},
			iotago.ExpirationUnlockCondition{ReturnAddress: returnAddr, UnixTime: uint32(time.Now().Unix()) + params.DefaultExpirationSeconds},
		}
		out[i] = iotago.NewBasicOutput(min, conditions, basic.Features(), basic.NativeTokens())
	}
	return out, nil
}

func addressCondition(out iotago.Output) (iotago.AddressUnlockCondition, bool) {
	for _, c := range out.UnlockConditions() {
		if ac, ok := c.(iotago.AddressUnlockCondition); ok {
			return ac, true
		}
	}
	return iotago.AddressUnlockCondition{}, false
}

// ownOwnerAddressForRemainder resolves the address that reclaims a
// micro-amount output's storage deposit: the caller's configured custom
// remainder address if set, else the account's first address holding
// unspent outputs, else its first generated address.
func (b *Builder) ownOwnerAddressForRemainder(opts Options) (iotago.Address, error) {
	if opts.RemainderValueStrategy == CustomAddress && opts.CustomRemainderAddress != nil {
		return *opts.CustomRemainderAddress, nil
	}
	recs := b.Account.AddressesWithUnspentOutputs()
	if len(recs) > 0 {
		return recs[0].Address, nil
	}
	addrs := b.Account.Addresses()
	if len(addrs) > 0 {
		return addrs[0].Address, nil
	}
	return iotago.Address{}, walleterr.New(walleterr.KindAddressNotFound, "no owned address available for micro-amount return")
}

func (b *Builder) sign(ctx context.Context, essence iotago.TransactionEssence, chosen []*account.OutputData) ([]iotago.UnlockBlock, error) {
	signingData := make([]signer.InputSigningData, 0, len(chosen))
	for _, od := range chosen {
		path := signer.DerivationPath{CoinType: b.Account.CoinType(), AccountIndex: b.Account.Index()}
		for _, r := range b.Account.Addresses() {
			if r.Address == od.Address {
				path.Internal = r.Internal
				path.KeyIndex = r.KeyIndex
				break
			}
		}
		signingData = append(signingData, signer.InputSigningData{OutputID: od.OutputID, Path: path})
	}
	return b.Signer.SignTransaction(ctx, essence.SigningBytes(), signingData)
}

func inputIDs(outputs []*account.OutputData) []iotago.OutputID {
	ids := make([]iotago.OutputID, len(outputs))
	for i, od := range outputs {
		ids[i] = od.OutputID
	}
	return ids
}

func sumOutputSlice(outputs []iotago.Output) (uint64, map[iotago.TokenID]uint64) {
	var base uint64
	tokens := make(map[iotago.TokenID]uint64)
	for _, o := range outputs {
		base += o.Amount()
		for _, nt := range o.NativeTokens() {
			tokens[nt.ID] += nt.Amount
		}
	}
	return base, tokens
}

func sumOutputSliceMaps(outputs []iotago.Output) (uint64, map[iotago.TokenID]uint64) {
	return sumOutputSlice(outputs)
}
