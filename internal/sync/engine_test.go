package sync

import (
	"context"
	"testing"
	"time"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNodeClient is a hand-written NodeClient test double (no grpc/proto
// toolchain in this pack, so mocks here are hand-rolled, matching the
// teacher's own lightweight fake-implementation test style rather than a
// generated mock).
type fakeNodeClient struct {
	basicIDs      map[string][]iotago.OutputID
	outputs       map[iotago.OutputID]client.OutputResponse
	foundriesByID map[iotago.FoundryID]client.OutputResponse
}

func newFakeNodeClient() *fakeNodeClient {
	return &fakeNodeClient{
		basicIDs:      make(map[string][]iotago.OutputID),
		outputs:       make(map[iotago.OutputID]client.OutputResponse),
		foundriesByID: make(map[iotago.FoundryID]client.OutputResponse),
	}
}

func (f *fakeNodeClient) BasicOutputIDs(ctx context.Context, q client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{OutputIDs: f.basicIDs[q.Address.Hex()]}, nil
}
func (f *fakeNodeClient) AliasOutputIDs(ctx context.Context, q client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) FoundryOutputIDs(ctx context.Context, q client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) NFTOutputIDs(ctx context.Context, q client.OutputQuery) (client.OutputIDPage, error) {
	return client.OutputIDPage{}, nil
}
func (f *fakeNodeClient) GetOutputs(ctx context.Context, ids []iotago.OutputID) ([]client.OutputResponse, error) {
	out := make([]client.OutputResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.outputs[id])
	}
	return out, nil
}
func (f *fakeNodeClient) FoundryOutputByID(ctx context.Context, id iotago.FoundryID) (client.OutputResponse, bool, error) {
	resp, ok := f.foundriesByID[id]
	return resp, ok, nil
}
func (f *fakeNodeClient) GetBlock(ctx context.Context, id iotago.BlockID) (*iotago.Block, error) {
	return &iotago.Block{}, nil
}
func (f *fakeNodeClient) PostBlock(ctx context.Context, block *iotago.Block) (iotago.BlockID, error) {
	return iotago.BlockID{}, nil
}
func (f *fakeNodeClient) GetBlockMetadata(ctx context.Context, id iotago.BlockID) (client.BlockMetadata, error) {
	return client.BlockMetadata{Inclusion: iotago.InclusionConfirmed}, nil
}
func (f *fakeNodeClient) RetryUntilIncluded(ctx context.Context, id iotago.BlockID, interval time.Duration, maxAttempts int) (iotago.BlockID, error) {
	return id, nil
}
func (f *fakeNodeClient) Info(ctx context.Context) (client.NodeInfo, error) { return client.NodeInfo{}, nil }
func (f *fakeNodeClient) RequestFundsFromFaucet(ctx context.Context, url string, addr iotago.Address) error {
	return nil
}

func TestSync_DiscoversNewOutputsForKnownAddress(t *testing.T) {
	acc := account.New(0, "test", 4219, account.DefaultOptions, nil)
	addr := iotago.Ed25519AddressFromPublicKey([]byte("test-pubkey"))
	_, err := acc.GenerateAddresses(1, false, func(uint32, bool) (iotago.Address, error) { return addr, nil })
	require.NoError(t, err)

	node := newFakeNodeClient()
	var txID iotago.TransactionID
	txID[0] = 42
	outID := iotago.NewOutputID(txID, 0)
	node.basicIDs[addr.Hex()] = []iotago.OutputID{outID}
	node.outputs[outID] = client.OutputResponse{
		OutputID: outID,
		Output: iotago.NewBasicOutput(5_000_000, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, nil),
	}

	engine := New(acc, node, nil)
	bal, err := engine.Sync(context.Background(), Options{SyncAllAddresses: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), bal.BaseCoin)
	assert.Len(t, acc.UnspentOutputs(account.Filter{}), 1)
}

func TestSync_MarksDisappearedOutputAsSpent(t *testing.T) {
	acc := account.New(0, "test", 4219, account.DefaultOptions, nil)
	addr := iotago.Ed25519AddressFromPublicKey([]byte("test-pubkey-2"))
	_, err := acc.GenerateAddresses(1, false, func(uint32, bool) (iotago.Address, error) { return addr, nil })
	require.NoError(t, err)

	node := newFakeNodeClient()
	var txID iotago.TransactionID
	txID[0] = 9
	outID := iotago.NewOutputID(txID, 0)
	node.outputs[outID] = client.OutputResponse{
		OutputID: outID,
		Output: iotago.NewBasicOutput(1_000_000, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, nil),
	}
	node.basicIDs[addr.Hex()] = []iotago.OutputID{outID}

	engine := New(acc, node, nil)
	_, err = engine.Sync(context.Background(), Options{SyncAllAddresses: true, ForceSync: true})
	require.NoError(t, err)
	require.Len(t, acc.UnspentOutputs(account.Filter{}), 1)

	node.basicIDs[addr.Hex()] = nil
	bal, err := engine.Sync(context.Background(), Options{SyncAllAddresses: true, ForceSync: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal.BaseCoin)
	assert.Len(t, acc.UnspentOutputs(account.Filter{}), 0)
}
