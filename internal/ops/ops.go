// Package ops implements the high-level wallet operations of spec.md §4.4:
// each one reduces to constructing the right output set and handing it to
// internal/txbuilder's Send. This mirrors the teacher's transaction-type
// constructors in blockchain/types (one small function per transaction
// kind, all funneling into the same sign-and-submit path) generalized from
// "pick a TxInternalData variant" to "pick an iotago.Output variant".
package ops

import (
	"context"
	"encoding/hex"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Ops)

// Service exposes the high-level operations over one account.
type Service struct {
	Account *account.Account
	Builder *txbuilder.Builder
}

// New constructs a Service for the given account, sharing its Builder.
func New(acc *account.Account, b *txbuilder.Builder) *Service {
	return &Service{Account: acc, Builder: b}
}

// basicDepositEstimate approximates the minimum storage deposit for a
// basic output carrying numUnlockConditions conditions plus featureBytes
// of feature payload, using the Builder's configured RentStructure. The
// real vbyte costing lives in the node; this estimate is not refreshed from
// client.NodeClient.Info().
func basicDepositEstimate(rent params.RentStructure, numUnlockConditions int, featureBytes int) uint64 {
	keyBytes := uint64(32 + 16*numUnlockConditions)
	return rent.MinStorageDeposit(keyBytes, uint64(featureBytes))
}

func (s *Service) findUnspentByKind(kind iotago.OutputKind, match func(*account.OutputData) bool) *account.OutputData {
	for _, od := range s.Account.UnspentOutputs(account.Filter{OutputTypes: []iotago.OutputKind{kind}}) {
		if match(od) {
			return od
		}
	}
	return nil
}

func (s *Service) findAlias(aliasID iotago.AliasID) (*account.OutputData, error) {
	od := s.findUnspentByKind(iotago.OutputAlias, func(od *account.OutputData) bool {
		return od.Output.(*iotago.AliasOutput).AliasID == aliasID
	})
	if od == nil {
		return nil, walleterr.New(walleterr.KindRecordNotFound, "alias not found in account")
	}
	return od, nil
}

func (s *Service) findFoundry(tokenID iotago.TokenID) (*account.OutputData, error) {
	foundryID := iotago.FoundryID(tokenID)
	od := s.findUnspentByKind(iotago.OutputFoundry, func(od *account.OutputData) bool {
		return od.Output.(*iotago.FoundryOutput).FoundryID == foundryID
	})
	if od == nil {
		return nil, walleterr.New(walleterr.KindRecordNotFound, "foundry not found in account")
	}
	return od, nil
}

func (s *Service) findNFT(nftID iotago.NFTID) (*account.OutputData, error) {
	od := s.findUnspentByKind(iotago.OutputNFT, func(od *account.OutputData) bool {
		return od.Output.(*iotago.NFTOutput).NFTID == nftID
	})
	if od == nil {
		return nil, &walleterr.NftNotFoundError{NFTID: hex.EncodeToString(nftID[:])}
	}
	return od, nil
}

// ownerAddress is the address new outputs originated by this service are
// controlled by when the caller doesn't name one: the first public address,
// matching the voting subsystem's "account's first address" convention
// (spec.md §4.5) generalized to every operation that needs a default owner.
func (s *Service) ownerAddress() (iotago.Address, error) {
	addrs := s.Account.PublicAddresses()
	if len(addrs) == 0 {
		return iotago.Address{}, walleterr.New(walleterr.KindAddressNotFound, "account has no generated addresses")
	}
	return addrs[0].Address, nil
}

func (s *Service) send(ctx context.Context, outputs []iotago.Output, opts txbuilder.Options) (*account.TransactionRecord, error) {
	return s.Builder.Send(ctx, outputs, opts)
}
