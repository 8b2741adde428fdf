package txbuilder

import (
	"testing"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/walleterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutputID(b byte, index uint16) iotago.OutputID {
	var txID iotago.TransactionID
	txID[0] = b
	return iotago.NewOutputID(txID, index)
}

func TestUnlockableNow_PlainAddressCondition(t *testing.T) {
	owner := iotago.Ed25519AddressFromPublicKey([]byte("owner"))
	other := iotago.Ed25519AddressFromPublicKey([]byte("other"))
	out := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
	}, nil, nil)

	owners := map[iotago.Address]bool{owner: true}
	assert.True(t, UnlockableNow(out, owners, 1000, 0))

	owners = map[iotago.Address]bool{other: true}
	assert.False(t, UnlockableNow(out, owners, 1000, 0))
}

func TestUnlockableNow_TimelockNotYetReleased(t *testing.T) {
	owner := iotago.Ed25519AddressFromPublicKey([]byte("owner"))
	out := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
		iotago.TimelockUnlockCondition{UnixTime: 2000},
	}, nil, nil)

	owners := map[iotago.Address]bool{owner: true}
	assert.False(t, UnlockableNow(out, owners, 1000, 0))
	assert.True(t, UnlockableNow(out, owners, 2001, 0))
}

func TestUnlockableNow_ExpirationShiftsToReturnAddress(t *testing.T) {
	owner := iotago.Ed25519AddressFromPublicKey([]byte("owner"))
	sender := iotago.Ed25519AddressFromPublicKey([]byte("sender"))
	out := iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
		iotago.ExpirationUnlockCondition{ReturnAddress: sender, UnixTime: 2000},
	}, nil, nil)

	ownerSet := map[iotago.Address]bool{owner: true}
	assert.True(t, UnlockableNow(out, ownerSet, 1000, 0), "owner can still claim before expiration")
	assert.False(t, UnlockableNow(out, ownerSet, 2001, 0), "owner loses claim after expiration")

	senderSet := map[iotago.Address]bool{sender: true}
	assert.False(t, UnlockableNow(out, senderSet, 1000, 0), "sender cannot reclaim before expiration")
	assert.True(t, UnlockableNow(out, senderSet, 2001, 0), "sender reclaims after expiration")
}

func TestSelectInputs_StopsOnceTargetMet(t *testing.T) {
	pool := []*account.OutputData{
		{OutputID: testOutputID(1, 0), Output: iotago.NewBasicOutput(1_000_000, nil, nil, nil)},
		{OutputID: testOutputID(2, 0), Output: iotago.NewBasicOutput(2_000_000, nil, nil, nil)},
		{OutputID: testOutputID(3, 0), Output: iotago.NewBasicOutput(5_000_000, nil, nil, nil)},
	}
	chosen, err := selectInputs(pool, nil, 2_500_000, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chosen), 2)

	var sum uint64
	for _, od := range chosen {
		sum += od.Output.Amount()
	}
	assert.GreaterOrEqual(t, sum, uint64(2_500_000))
}

func TestSelectInputs_MandatoryAlwaysIncluded(t *testing.T) {
	mandatory := []*account.OutputData{
		{OutputID: testOutputID(9, 0), Output: iotago.NewBasicOutput(100, nil, nil, nil)},
	}
	pool := []*account.OutputData{
		mandatory[0],
		{OutputID: testOutputID(1, 0), Output: iotago.NewBasicOutput(1_000_000, nil, nil, nil)},
	}
	chosen, err := selectInputs(pool, mandatory, 1_000_000, nil)
	require.NoError(t, err)

	found := false
	for _, od := range chosen {
		if od.OutputID == mandatory[0].OutputID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSelectInputs_InsufficientFunds(t *testing.T) {
	pool := []*account.OutputData{
		{OutputID: testOutputID(1, 0), Output: iotago.NewBasicOutput(100, nil, nil, nil)},
	}
	_, err := selectInputs(pool, nil, 1_000_000, nil)
	require.Error(t, err)

	var insufficient *walleterr.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, uint64(100), insufficient.Available)
	assert.Equal(t, uint64(1_000_000), insufficient.Required)
}

func TestSelectInputs_NativeTokenShortfall(t *testing.T) {
	var tokenID iotago.TokenID
	tokenID[0] = 7
	pool := []*account.OutputData{
		{OutputID: testOutputID(1, 0), Output: iotago.NewBasicOutput(1_000_000, nil, nil, []iotago.NativeToken{{ID: tokenID, Amount: 10}})},
	}
	_, err := selectInputs(pool, nil, 500_000, map[iotago.TokenID]uint64{tokenID: 50})
	require.Error(t, err)

	var insufficient *walleterr.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, uint64(10), insufficient.Available)
	assert.Equal(t, uint64(50), insufficient.Required)
}
