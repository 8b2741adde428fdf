package txbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/signer"
	"github.com/iotaledger/wallet.go/walleterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNodeClient is a hand-written NodeClient test double, matching the
// style already established in internal/sync's tests.
type fakeNodeClient struct {
	postedBlockID iotago.BlockID
	info          client.NodeInfo
}

func (f *fakeNodeClient) BasicOutputIDs(context.Context, client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) AliasOutputIDs(context.Context, client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) FoundryOutputIDs(context.Context, client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) NFTOutputIDs(context.Context, client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) GetOutputs(context.Context, []iotago.OutputID) ([]client.OutputResponse, error) {
	return nil, nil
}
func (f *fakeNodeClient) FoundryOutputByID(context.Context, iotago.FoundryID) (client.OutputResponse, bool, error) {
	return client.OutputResponse{}, false, nil
}
func (f *fakeNodeClient) GetBlock(context.Context, iotago.BlockID) (*iotago.Block, error) {
	return &iotago.Block{}, nil
}
func (f *fakeNodeClient) PostBlock(context.Context, *iotago.Block) (iotago.BlockID, error) {
	return f.postedBlockID, nil
}
func (f *fakeNodeClient) GetBlockMetadata(context.Context, iotago.BlockID) (client.BlockMetadata, error) {
	return client.BlockMetadata{Inclusion: iotago.InclusionConfirmed}, nil
}
func (f *fakeNodeClient) RetryUntilIncluded(ctx context.Context, id iotago.BlockID, _ time.Duration, _ int) (iotago.BlockID, error) {
	return id, nil
}
func (f *fakeNodeClient) Info(context.Context) (client.NodeInfo, error) { return f.info, nil }
func (f *fakeNodeClient) RequestFundsFromFaucet(context.Context, string, iotago.Address) error {
	return nil
}

func newTestBuilder(t *testing.T, acc *account.Account) (*Builder, *fakeNodeClient) {
	t.Helper()
	node := &fakeNodeClient{postedBlockID: iotago.BlockID{0xAB}}
	b := &Builder{
		Account:   acc,
		Node:      node,
		Signer:    signer.NewInMemorySigner([]byte("test-seed"), params.CoinTypeShimmer),
		Bus:       eventbus.NewLocalBus(),
		NetworkID: 1,
		Rent:      params.DefaultRentStructure,
	}
	return b, node
}

func accountWithOneOutput(t *testing.T, amount uint64) (*account.Account, iotago.OutputID, iotago.Address) {
	t.Helper()
	acc := account.New(0, "test", params.CoinTypeShimmer, account.DefaultOptions, nil)
	addr := iotago.Ed25519AddressFromPublicKey([]byte("builder-test-address"))
	_, err := acc.GenerateAddresses(1, false, func(uint32, bool) (iotago.Address, error) { return addr, nil })
	require.NoError(t, err)

	var txID iotago.TransactionID
	txID[0] = 77
	outID := iotago.NewOutputID(txID, 0)
	od := &account.OutputData{
		OutputID: outID,
		Output: iotago.NewBasicOutput(amount, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, nil),
		Address: addr,
	}
	require.NoError(t, acc.ApplySyncResult([]*account.OutputData{od}, nil))
	return acc, outID, addr
}

func TestSend_SelectsSignsAndPersistsTransaction(t *testing.T) {
	acc, inputID, addr := accountWithOneOutput(t, 5_000_000)
	b, node := newTestBuilder(t, acc)

	recipient := iotago.Ed25519AddressFromPublicKey([]byte("recipient"))
	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: recipient},
	}, nil, nil)

	record, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, iotago.InclusionPending, record.InclusionState)
	assert.Equal(t, iotago.TransactionID(node.postedBlockID), record.TransactionID)
	assert.True(t, acc.IsOutputLocked(inputID))
	assert.Len(t, acc.PendingTransactions(), 1)

	// Remainder should have gone back to the spending address (ReuseAddress).
	require.Len(t, record.Payload.Essence.Outputs, 2)
	remainder := record.Payload.Essence.Outputs[1]
	assert.Equal(t, uint64(4_000_000), remainder.Amount())
	_ = addr
}

func TestSend_InsufficientFundsReturnsStructuredError(t *testing.T) {
	acc, _, _ := accountWithOneOutput(t, 100)
	b, _ := newTestBuilder(t, acc)

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	_, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.Error(t, err)
	var insufficient *walleterr.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
}

func TestSend_SkipSubmitLeavesZeroBlockID(t *testing.T) {
	acc, _, _ := accountWithOneOutput(t, 5_000_000)
	b, _ := newTestBuilder(t, acc)

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	opts := DefaultOptions
	opts.SkipSubmit = true
	record, err := b.Send(context.Background(), []iotago.Output{target}, opts)
	require.NoError(t, err)
	assert.Equal(t, iotago.TransactionID{}, record.TransactionID)
}

// TestSend_DustRemainderFailsInsufficientFundsWhenNoMoreInputs exercises spec.md
// §4.3 step 5: a single input leaves a remainder below the minimum storage
// deposit, so Send must fail InsufficientFunds (no second input available)
// rather than ship a fabricated remainder below min.
func TestSend_DustRemainderFailsInsufficientFundsWhenNoMoreInputs(t *testing.T) {
	min := params.DefaultRentStructure.MinStorageDeposit(33, 0)
	acc, _, _ := accountWithOneOutput(t, 1_000_000+min/2)
	b, _ := newTestBuilder(t, acc)

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	_, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.Error(t, err)
	var insufficient *walleterr.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
}

// TestSend_DustRemainderPullsSecondInputToClearMinimum covers the other half
// of the same step: when a second input is available, Send retries
// selection with an inflated target instead of failing, and the resulting
// remainder clears the minimum storage deposit.
func TestSend_DustRemainderPullsSecondInputToClearMinimum(t *testing.T) {
	min := params.DefaultRentStructure.MinStorageDeposit(33, 0)
	acc, firstID, addr := accountWithOneOutput(t, 1_000_000+min/2)
	b, _ := newTestBuilder(t, acc)

	var txID iotago.TransactionID
	txID[0] = 78
	secondID := iotago.NewOutputID(txID, 0)
	second := &account.OutputData{
		OutputID: secondID,
		Output: iotago.NewBasicOutput(2_000_000, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, nil),
		Address: addr,
	}
	require.NoError(t, acc.ApplySyncResult([]*account.OutputData{second}, nil))

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	record, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.NoError(t, err)
	require.Len(t, record.Payload.Essence.Outputs, 2)
	remainder := record.Payload.Essence.Outputs[1]
	assert.GreaterOrEqual(t, remainder.Amount(), min)
	assert.True(t, acc.IsOutputLocked(firstID))
	assert.True(t, acc.IsOutputLocked(secondID))
}

// TestSend_MicroAmountRejectedWithoutAllowMicroAmount covers spec.md §4.3
// step 6: a requested output below the minimum storage deposit fails
// InsufficientFunds unless the caller opts in.
func TestSend_MicroAmountRejectedWithoutAllowMicroAmount(t *testing.T) {
	acc, _, _ := accountWithOneOutput(t, 5_000_000)
	b, _ := newTestBuilder(t, acc)

	target := iotago.NewBasicOutput(1, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	_, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.Error(t, err)
	var insufficient *walleterr.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
}

// TestSend_MicroAmountAllowedUpgradesOutput covers the opt-in half of the
// same policy: the output is rebuilt at the minimum deposit with a
// storage-deposit-return and expiration condition added.
func TestSend_MicroAmountAllowedUpgradesOutput(t *testing.T) {
	min := params.DefaultRentStructure.MinStorageDeposit(33, 0)
	acc, _, _ := accountWithOneOutput(t, 5_000_000)
	b, _ := newTestBuilder(t, acc)

	target := iotago.NewBasicOutput(1, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	opts := DefaultOptions
	opts.AllowMicroAmount = true
	record, err := b.Send(context.Background(), []iotago.Output{target}, opts)
	require.NoError(t, err)

	sent := record.Payload.Essence.Outputs[0]
	assert.Equal(t, min, sent.Amount())

	var sawSDR, sawExpiration bool
	for _, c := range sent.UnlockConditions() {
		switch c.(type) {
		case iotago.StorageDepositReturnUnlockCondition:
			sawSDR = true
		case iotago.ExpirationUnlockCondition:
			sawExpiration = true
		}
	}
	assert.True(t, sawSDR, "micro-amount output should carry a storage-deposit-return condition")
	assert.True(t, sawExpiration, "micro-amount output should carry an expiration condition")
}

// TestSend_ExcludesVotingOutputFromInputPool covers spec.md §4.3 step 2 /
// §4.5: a tagged voting output sitting in the account's unspent set must
// never be swept into ordinary input selection.
func TestSend_ExcludesVotingOutputFromInputPool(t *testing.T) {
	acc, _, addr := accountWithOneOutput(t, 5_000_000)
	b, _ := newTestBuilder(t, acc)

	var txID iotago.TransactionID
	txID[0] = 99
	votingID := iotago.NewOutputID(txID, 0)
	voting := &account.OutputData{
		OutputID: votingID,
		Output: iotago.NewBasicOutput(2_000_000, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, []iotago.Feature{
			iotago.TagFeature{Tag: []byte(params.ParticipationTag)},
		}, nil),
		Address: addr,
	}
	require.NoError(t, acc.ApplySyncResult([]*account.OutputData{voting}, nil))

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	record, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.NoError(t, err)
	for _, od := range record.Inputs {
		assert.NotEqual(t, votingID, od.OutputID, "voting output must never be selected as an ordinary input")
	}
	assert.True(t, acc.IsOutputLocked(votingID) == false, "voting output must remain unlocked/untouched")
}

// TestSend_BurnNativeTokensConsumesWithoutRemainder covers spec.md §4.4's
// melt semantics end to end at the builder level: an amount named in
// Options.BurnNativeTokens must be pulled in as input and destroyed, never
// reappearing in the remainder.
func TestSend_BurnNativeTokensConsumesWithoutRemainder(t *testing.T) {
	acc := account.New(0, "test", params.CoinTypeShimmer, account.DefaultOptions, nil)
	addr := iotago.Ed25519AddressFromPublicKey([]byte("melt-test-address"))
	_, err := acc.GenerateAddresses(1, false, func(uint32, bool) (iotago.Address, error) { return addr, nil })
	require.NoError(t, err)

	var tokenID iotago.TokenID
	tokenID[0] = 5

	var txID iotago.TransactionID
	txID[0] = 88
	outID := iotago.NewOutputID(txID, 0)
	od := &account.OutputData{
		OutputID: outID,
		Output: iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, []iotago.NativeToken{{ID: tokenID, Amount: 60}}),
		Address: addr,
	}
	require.NoError(t, acc.ApplySyncResult([]*account.OutputData{od}, nil))

	b, _ := newTestBuilder(t, acc)
	opts := DefaultOptions
	opts.BurnNativeTokens = map[iotago.TokenID]uint64{tokenID: 40}

	record, err := b.Send(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, record.Payload.Essence.Outputs, 1)

	remainder := record.Payload.Essence.Outputs[0]
	var gotTokens uint64
	for _, nt := range remainder.NativeTokens() {
		if nt.ID == tokenID {
			gotTokens = nt.Amount
		}
	}
	assert.Equal(t, uint64(20), gotTokens, "remainder must carry only the unburned leftover")
}

// TestSend_FailsTimeNotSyncedOnStaleMilestone covers spec.md §7: Send must
// refuse to proceed if the local clock disagrees with the node's latest
// milestone timestamp by more than the tolerance, rather than risk
// evaluating expiration/timelock conditions against the wrong time.
func TestSend_FailsTimeNotSyncedOnStaleMilestone(t *testing.T) {
	acc, _, _ := accountWithOneOutput(t, 5_000_000)
	b, node := newTestBuilder(t, acc)
	node.info = client.NodeInfo{LatestMilestoneTimestamp: 1} // far in the past

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	_, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.Error(t, err)
	var notSynced *walleterr.TimeNotSyncedError
	assert.ErrorAs(t, err, &notSynced)
}

// TestSend_SignsWithDerivedPathForChosenInput exercises the Signer
// collaborator through a gomock mock instead of the deterministic
// in-memory signer, asserting Send hands SignTransaction exactly the
// derivation path recorded for the chosen input's owning address.
func TestSend_SignsWithDerivedPathForChosenInput(t *testing.T) {
	acc, _, addr := accountWithOneOutput(t, 5_000_000)
	b, _ := newTestBuilder(t, acc)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockSigner := NewMockSigner(ctrl)
	b.Signer = mockSigner

	var rec []account.AddressRecord
	for _, r := range acc.Addresses() {
		if r.Address == addr {
			rec = append(rec, r)
		}
	}
	require.Len(t, rec, 1)
	wantPath := signer.DerivationPath{CoinType: acc.CoinType(), AccountIndex: acc.Index(), Internal: rec[0].Internal, KeyIndex: rec[0].KeyIndex}

	mockSigner.EXPECT().
		SignTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []byte, inputs []signer.InputSigningData) ([]iotago.UnlockBlock, error) {
			require.Len(t, inputs, 1)
			assert.Equal(t, wantPath, inputs[0].Path)
			return []iotago.UnlockBlock{{Type: iotago.UnlockBlockSignature, Signature: []byte("fake-sig")}}, nil
		})

	target := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: iotago.Ed25519AddressFromPublicKey([]byte("recipient"))},
	}, nil, nil)

	_, err := b.Send(context.Background(), []iotago.Output{target}, DefaultOptions)
	require.NoError(t, err)
}
