// Package voting implements the voting-output lifecycle of spec.md §4.5: a
// single basic output, owned by the account's first address, tagged with
// the well-known participation tag feature and carrying a JSON-encoded
// list of {event_id, answers} in its metadata feature. Rebuilding that
// output on every vote/power-change reuses internal/txbuilder.Builder.Send
// exactly like internal/ops does, following the same "reduce the intent to
// an output set, let the builder select/sign/submit" shape spec.md §4.4
// establishes for every other high-level operation.
package voting

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/storage"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Voting)

// EventID identifies a participation event (spec.md §3 "Participation
// event").
type EventID [32]byte

func (id EventID) String() string { return hex.EncodeToString(id[:]) }

// Question is one question of a participation event, carrying the answer
// choices a voter may pick by index.
type Question struct {
	Text    string
	Answers []string
}

// EventData is the milestone window and question set of a participation
// event (spec.md §3).
type EventData struct {
	MilestoneIndexCommence uint32
	MilestoneIndexStart    uint32
	MilestoneIndexEnd      uint32
	Questions              []Question
}

// Event is the full participation-event record (spec.md §3).
type Event struct {
	EventID EventID
	Data    EventData
	Nodes   []string
}

// Participation is one registered {event_id, answers} entry, either held
// in a voting output's metadata feature or in the local registry (spec.md
// §4.5 vote/stop_participating/decrease_voting_power).
type Participation struct {
	EventID EventID `json:"event_id"`
	Answers []byte  `json:"answers"`
}

// TrackedParticipation is what a participation event's node(s) report back
// for one voting output (spec.md §4.5 get_participation_overview).
type TrackedParticipation struct {
	Answers             []byte
	Amount              uint64
	StartMilestoneIndex uint32
	EndMilestoneIndex   uint32
}

// Client is the per-event node contract spec.md §4.5 calls "the event's
// client": each registered Event names the nodes that track it, and
// get_participation_overview consults them for the current tally attached
// to one voting output.
type Client interface {
	TrackedParticipation(ctx context.Context, eventID EventID, outputID iotago.OutputID) (TrackedParticipation, error)
}

// Service drives one account's voting-output lifecycle.
type Service struct {
	Account *account.Account
	Builder *txbuilder.Builder
	Storage storage.Storage // local registry persistence; may be nil (registry restore becomes a no-op)
	Client  Client          // may be nil; get_participation_overview then returns no tallies
}

func New(acc *account.Account, b *txbuilder.Builder, store storage.Storage, client Client) *Service {
	return &Service{Account: acc, Builder: b, Storage: store, Client: client}
}

// votingOutput finds the account's current voting output: a basic output
// tagged with params.ParticipationTag. Per spec.md §4.5's invariant, if
// sync ever left two such outputs (e.g. after a crash mid-rebuild), the one
// with the largest amount wins.
func (s *Service) votingOutput() *account.OutputData {
	var best *account.OutputData
	for _, od := range s.Account.UnspentOutputs(account.Filter{OutputTypes: []iotago.OutputKind{iotago.OutputBasic}}) {
		if !isVotingOutput(od.Output) {
			continue
		}
		if best == nil || od.Output.Amount() > best.Output.Amount() {
			best = od
		}
	}
	return best
}

func isVotingOutput(out iotago.Output) bool {
	return iotago.HasTag(out, params.ParticipationTag)
}

func decodeParticipations(out iotago.Output) []Participation {
	for _, f := range out.Features() {
		if md, ok := f.(iotago.MetadataFeature); ok {
			var entries []Participation
			if err := json.Unmarshal(md.Data, &entries); err == nil {
				return entries
			}
		}
	}
	return nil
}

func encodeMetadata(entries []Participation) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].EventID.String() < entries[j].EventID.String() })
	raw, _ := json.Marshal(entries)
	return raw
}

func replaceEntry(entries []Participation, eventID EventID, answers []byte) []Participation {
	out := make([]Participation, 0, len(entries)+1)
	found := false
	for _, e := range entries {
		if e.EventID == eventID {
			out = append(out, Participation{EventID: eventID, Answers: answers})
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		out = append(out, Participation{EventID: eventID, Answers: answers})
	}
	return out
}

func removeEntry(entries []Participation, eventID EventID) []Participation {
	out := make([]Participation, 0, len(entries))
	for _, e := range entries {
		if e.EventID != eventID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) ownerAddress(existing *account.OutputData) (iotago.Address, error) {
	if existing != nil {
		return existing.Address, nil
	}
	addrs := s.Account.PublicAddresses()
	if len(addrs) == 0 {
		return iotago.Address{}, walleterr.New(walleterr.KindAddressNotFound, "account has no generated addresses")
	}
	return addrs[0].Address, nil
}

func (s *Service) rebuild(ctx context.Context, existing *account.OutputData, amount uint64, entries []Participation, opts txbuilder.Options) (*account.TransactionRecord, error) {
	owner, err := s.ownerAddress(existing)
	if err != nil {
		return nil, err
	}
	min := s.Builder.Rent.MinStorageDeposit(33, uint64(len(encodeMetadata(entries))+len(params.ParticipationTag)))
	if amount < min {
		amount = min
	}

	out := iotago.NewBasicOutput(amount, []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
	}, []iotago.Feature{
		iotago.TagFeature{Tag: []byte(params.ParticipationTag)},
		iotago.MetadataFeature{Data: encodeMetadata(entries)},
	}, nil)

	if existing != nil {
		opts.MandatoryInputs = append(opts.MandatoryInputs, existing.OutputID)
	}
	return s.Builder.Send(ctx, []iotago.Output{out}, opts)
}

// loadRegistry reads this account's local participation registry, returning
// nil when there is no storage, no record, or an undecodable one.
func (s *Service) loadRegistry() []Participation {
	if s.Storage == nil {
		return nil
	}
	raw, err := s.Storage.Get(storage.ParticipationEventsKey(s.Account.Index()))
	if err != nil {
		return nil
	}
	var entries []Participation
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func (s *Service) saveRegistry(entries []Participation) {
	if s.Storage == nil {
		return
	}
	raw := encodeMetadata(entries)
	if err := s.Storage.Put(storage.ParticipationEventsKey(s.Account.Index()), raw); err != nil {
		logger.Warnw("failed to persist participation registry", "accountIndex", s.Account.Index(), "err", err)
	}
}

// Vote registers or replaces this account's answers for eventID, rewriting
// the voting output's metadata while preserving its amount (spec.md §4.5
// vote). If the on-chain output currently carries no entries but a local
// registry (populated by a prior DecreaseVotingPower) does, those entries
// are restored alongside the new one.
func (s *Service) Vote(ctx context.Context, eventID EventID, answers []byte, opts txbuilder.Options) (*account.TransactionRecord, error) {
	existing := s.votingOutput()
	var entries []Participation
	var amount uint64
	if existing != nil {
		entries = decodeParticipations(existing.Output)
		amount = existing.Output.Amount()
	}
	if len(entries) == 0 {
		if restored := s.loadRegistry(); len(restored) > 0 {
			entries = restored
		}
	}
	entries = replaceEntry(entries, eventID, answers)

	rec, err := s.rebuild(ctx, existing, amount, entries, opts)
	if err != nil {
		return nil, err
	}
	s.saveRegistry(entries)
	return rec, nil
}

// StopParticipating removes eventID's entry, keeping the output (and its
// voting power) intact even if no entries remain (spec.md §4.5
// stop_participating).
func (s *Service) StopParticipating(ctx context.Context, eventID EventID, opts txbuilder.Options) (*account.TransactionRecord, error) {
	existing := s.votingOutput()
	if existing == nil {
		return nil, walleterr.New(walleterr.KindRecordNotFound, "no voting output to stop participating with")
	}
	entries := removeEntry(decodeParticipations(existing.Output), eventID)
	rec, err := s.rebuild(ctx, existing, existing.Output.Amount(), entries, opts)
	if err != nil {
		return nil, err
	}
	s.saveRegistry(entries)
	return rec, nil
}

// IncreaseVotingPower rebuilds the voting output at its current amount plus
// amount, paying the difference from ordinary inputs that
// internal/txbuilder.Builder.Send's own selection picks up automatically
// (spec.md §4.5 increase_voting_power).
func (s *Service) IncreaseVotingPower(ctx context.Context, amount uint64, opts txbuilder.Options) (*account.TransactionRecord, error) {
	existing := s.votingOutput()
	var entries []Participation
	var current uint64
	if existing != nil {
		entries = decodeParticipations(existing.Output)
		current = existing.Output.Amount()
	}
	return s.rebuild(ctx, existing, current+amount, entries, opts)
}

// DecreaseVotingPower rebuilds the voting output at its current amount
// minus amount, stripping every voting entry because the power backing
// them changed, but first snapshots those entries to the local registry so
// a subsequent Vote call can restore them (spec.md §4.5
// decrease_voting_power).
func (s *Service) DecreaseVotingPower(ctx context.Context, amount uint64, opts txbuilder.Options) (*account.TransactionRecord, error) {
	existing := s.votingOutput()
	if existing == nil {
		return nil, walleterr.New(walleterr.KindRecordNotFound, "no voting output to decrease power of")
	}
	current := existing.Output.Amount()
	if amount > current {
		return nil, &walleterr.InsufficientFundsError{Available: current, Required: amount}
	}
	entries := decodeParticipations(existing.Output)
	s.saveRegistry(entries)
	return s.rebuild(ctx, existing, current-amount, nil, opts)
}

// Overview is one event's tallied result, keyed by event id, per spec.md
// §4.5 get_participation_overview.
type Overview map[EventID]TrackedParticipation

// GetParticipationOverview queries the account's unspent voting outputs for
// the tracked participation of each of eventIDs (or every locally
// registered event when eventIDs is empty), keyed by event id (spec.md
// §4.5). Each event holds the first tally returned; once an event has one,
// later voting outputs are not queried for it.
func (s *Service) GetParticipationOverview(ctx context.Context, eventIDs []EventID) (Overview, error) {
	if s.Client == nil {
		return Overview{}, nil
	}
	if len(eventIDs) == 0 {
		for _, p := range s.loadRegistry() {
			eventIDs = append(eventIDs, p.EventID)
		}
		if existing := s.votingOutput(); existing != nil {
			for _, p := range decodeParticipations(existing.Output) {
				eventIDs = append(eventIDs, p.EventID)
			}
		}
	}

	overview := make(Overview)
	for _, od := range s.Account.UnspentOutputs(account.Filter{OutputTypes: []iotago.OutputKind{iotago.OutputBasic}}) {
		if !isVotingOutput(od.Output) {
			continue
		}
		for _, eventID := range eventIDs {
			if _, ok := overview[eventID]; ok {
				continue
			}
			tracked, err := s.Client.TrackedParticipation(ctx, eventID, od.OutputID)
			if err != nil {
				logger.Warnw("failed to fetch tracked participation", "event", eventID.String(), "err", err)
				continue
			}
			overview[eventID] = tracked
		}
	}
	return overview, nil
}
