package ops

import (
	"context"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
)

// NftMintParams describes one NFT to mint (spec.md §4.4 MintNfts). Address
// defaults to the account's first address when unset.
type NftMintParams struct {
	Address           *iotago.Address
	Metadata          []byte
	ImmutableMetadata []byte
	Tag               []byte
	Sender            *iotago.Address
	Issuer            *iotago.Address
}

// MintNfts builds one NFT output per entry with a null nft_id, assigned by
// the protocol at the output's own output id.
func (s *Service) MintNfts(ctx context.Context, entries []NftMintParams, opts txbuilder.Options) (*account.TransactionRecord, error) {
	rent := s.Builder.Rent
	outputs := make([]iotago.Output, 0, len(entries))
	for _, e := range entries {
		owner := e.Address
		if owner == nil {
			addr, err := s.ownerAddress()
			if err != nil {
				return nil, err
			}
			owner = &addr
		}

		var features, immutable []iotago.Feature
		if e.Sender != nil {
			features = append(features, iotago.SenderFeature{Address: *e.Sender})
		}
		if len(e.Tag) > 0 {
			features = append(features, iotago.TagFeature{Tag: e.Tag})
		}
		if len(e.Metadata) > 0 {
			features = append(features, iotago.MetadataFeature{Data: e.Metadata})
		}
		if e.Issuer != nil {
			immutable = append(immutable, iotago.IssuerFeature{Address: *e.Issuer})
		}
		if len(e.ImmutableMetadata) > 0 {
			immutable = append(immutable, iotago.MetadataFeature{Data: e.ImmutableMetadata})
		}

		deposit := basicDepositEstimate(rent, 1, len(e.Metadata)+len(e.ImmutableMetadata)+len(e.Tag))
		outputs = append(outputs, iotago.NewNFTOutput(deposit, iotago.NFTID{}, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: *owner},
		}, features, immutable, nil))
	}
	return s.send(ctx, outputs, opts)
}

// BurnNft selects the named NFT output and produces no replacement NFT
// output, sending any attached amount/native tokens to an account address
// (spec.md §4.4 BurnNft).
func (s *Service) BurnNft(ctx context.Context, nftID iotago.NFTID, opts txbuilder.Options) (*account.TransactionRecord, error) {
	od, err := s.findNFT(nftID)
	if err != nil {
		return nil, err
	}
	owner, err := s.ownerAddress()
	if err != nil {
		return nil, err
	}

	src := od.Output
	sweep := iotago.NewBasicOutput(src.Amount(), []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
	}, nil, src.NativeTokens())

	opts.MandatoryInputs = append(opts.MandatoryInputs, od.OutputID)
	return s.send(ctx, []iotago.Output{sweep}, opts)
}
