package account

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireBalanceEqual dumps the full Balance struct via spew on mismatch.
// assert.Equal's default diff is fine for scalars, but Balance carries a
// map of NativeTokens where a silently-wrong key (same amount, wrong token
// id) wouldn't show up as clearly in testify's default formatting.
func requireBalanceEqual(t *testing.T, want, got Balance) {
	t.Helper()
	if !assert.ObjectsAreEqual(want, got) {
		t.Fatalf("balance mismatch:\nwant: %s\ngot:  %s", spew.Sdump(want), spew.Sdump(got))
	}
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	return New(0, "test-account", params0CoinType, DefaultOptions, nil)
}

const params0CoinType = 4219

func TestGenerateAddresses_AssignsSequentialKeyIndices(t *testing.T) {
	a := newTestAccount(t)

	derive := func(keyIndex uint32, internal bool) (iotago.Address, error) {
		var id [32]byte
		id[0] = byte(keyIndex)
		if internal {
			id[1] = 1
		}
		return iotago.Address{Kind: iotago.AddressEd25519, ID: id}, nil
	}

	first, err := a.GenerateAddresses(2, false, derive)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first[0].KeyIndex)
	assert.Equal(t, uint32(1), first[1].KeyIndex)

	second, err := a.GenerateAddresses(1, false, derive)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), second[0].KeyIndex)

	internalAddrs, err := a.GenerateAddresses(1, true, derive)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), internalAddrs[0].KeyIndex)
	assert.True(t, internalAddrs[0].Internal)

	assert.Len(t, a.Addresses(), 4)
}

func TestApplySyncResult_MovesSpentOutputsOutOfUnspent(t *testing.T) {
	a := newTestAccount(t)

	derive := func(keyIndex uint32, internal bool) (iotago.Address, error) {
		var id [32]byte
		id[0] = byte(keyIndex) + 1
		return iotago.Address{Kind: iotago.AddressEd25519, ID: id}, nil
	}
	addrs, err := a.GenerateAddresses(1, false, derive)
	require.NoError(t, err)
	owned := addrs[0].Address

	out := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owned},
	}, nil, nil)
	var txID iotago.TransactionID
	txID[0] = 7
	id := iotago.NewOutputID(txID, 0)

	err = a.ApplySyncResult([]*OutputData{{OutputID: id, Output: out, Address: owned}}, nil)
	require.NoError(t, err)
	assert.Len(t, a.UnspentOutputs(Filter{}), 1)
	requireBalanceEqual(t, Balance{BaseCoin: 1_000_000, NativeTokens: map[iotago.TokenID]uint64{}}, a.Balance())

	require.NoError(t, a.LockOutputs(id))
	assert.True(t, a.IsOutputLocked(id))

	err = a.ApplySyncResult(nil, []iotago.OutputID{id})
	require.NoError(t, err)
	assert.Len(t, a.UnspentOutputs(Filter{}), 0)
	assert.False(t, a.IsOutputLocked(id))
	requireBalanceEqual(t, Balance{BaseCoin: 0, NativeTokens: map[iotago.TokenID]uint64{}}, a.Balance())
}

func TestResolveTransaction_ClearsPendingOnConfirmation(t *testing.T) {
	a := newTestAccount(t)
	var txID iotago.TransactionID
	txID[0] = 1

	require.NoError(t, a.RecordPendingTransaction(&TransactionRecord{
		TransactionID:  txID,
		InclusionState: iotago.InclusionPending,
	}))
	assert.Len(t, a.PendingTransactions(), 1)

	require.NoError(t, a.ResolveTransaction(txID, iotago.InclusionConfirmed, nil))
	assert.Len(t, a.PendingTransactions(), 0)
	assert.Len(t, a.Transactions(), 1)
}

func TestSkipPersistence_NeverInvokesPersister(t *testing.T) {
	called := false
	opts := DefaultOptions
	opts.SkipPersistence = true
	a := New(0, "test", params0CoinType, opts, func(*Snapshot) error {
		called = true
		return nil
	})

	require.NoError(t, a.SetAlias("renamed"))
	assert.False(t, called)
	assert.Equal(t, "renamed", a.Alias())
}
