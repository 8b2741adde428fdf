// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package params holds protocol-level constants: input/output count limits,
// the default rent structure used to compute storage deposits, and coin
// types for the two networks named in spec.md §8 (scenarios 1-2).
package params

const (
	// MaxInputs and MaxOutputs bound a single transaction essence. Input
	// selection (internal/txbuilder) fails ConsolidationRequiredError once a
	// selection would need more than MaxInputs inputs, and Builder.Send fails
	// TooManyOutputsError once the final outputs exceed MaxOutputs.
	MaxInputs  = 128
	MaxOutputs = 128

	// CoinTypeIOTA and CoinTypeShimmer are the two coin types exercised by
	// spec.md §8 scenarios 1-2.
	CoinTypeIOTA    uint32 = 4218
	CoinTypeShimmer uint32 = 4219

	// ParticipationTag is the well-known tag feature value that marks a
	// basic output as a voting output (spec.md §4.5).
	ParticipationTag = "PARTICIPATE"

	// DefaultConflictTimeoutSeconds is the Open-Question decision recorded in
	// SPEC_FULL.md §9.2: 2x a 10s milestone interval.
	DefaultConflictTimeoutSeconds = 20

	// DefaultClaimBatchSize bounds the number of outputs claimed per
	// transaction (spec.md §4.4, ClaimOutputs).
	DefaultClaimBatchSize = 60

	// DefaultAddressGapLimit / DefaultAccountGapLimit govern
	// recover_accounts (spec.md §4.6) when the caller doesn't override them.
	DefaultAddressGapLimit = 20
	DefaultAccountGapLimit = 10

	// TimeSyncToleranceSeconds is the clock-skew budget from spec.md §7
	// ("differ by more than five minutes").
	TimeSyncToleranceSeconds = 5 * 60

	// OutputIDFetchBatchSize bounds the size of each get_outputs batch
	// during sync (spec.md §4.2 step 4); batches are fetched one after
	// another.
	OutputIDFetchBatchSize = 100

	// DefaultExpirationSeconds is how far out Builder.Send's micro-amount
	// policy sets the expiration unlock condition of an output it upgrades
	// (spec.md §4.3 step 6): long enough for the recipient to claim, short
	// enough that unclaimed deposits return to the sender in a bounded time.
	// SendMicroTransaction and SendNativeTokens take their expiration from
	// the caller's target instead.
	DefaultExpirationSeconds = 30 * 24 * 60 * 60
)

// RentStructure mirrors the node's byte-cost schedule (spec.md Glossary:
// "Storage deposit"). Values match Shimmer's default protocol parameters.
type RentStructure struct {
	VByteCost          uint64
	VByteFactorData    uint64
	VByteFactorKey     uint64
	MinAddressLength   uint64
}

// DefaultRentStructure is what a Manager uses when its Options.Rent is
// zero. It is not refreshed from NodeClient.Info().
var DefaultRentStructure = RentStructure{
	VByteCost:       500,
	VByteFactorData: 1,
	VByteFactorKey:  10,
}

// MinStorageDeposit computes the minimum amount an output of the given byte
// size must carry, per spec.md Glossary ("Storage deposit").
func (r RentStructure) MinStorageDeposit(numKeyBytes, numDataBytes uint64) uint64 {
	return r.VByteCost * (numKeyBytes*r.VByteFactorKey + numDataBytes*r.VByteFactorData)
}
