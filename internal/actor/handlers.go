package actor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/manager"
	"github.com/iotaledger/wallet.go/internal/ops"
	"github.com/iotaledger/wallet.go/internal/sync"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/internal/voting"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/walleterr"
)

// registry lists the command set this façade exposes, one handler per
// spec.md §4 operation group. Every command name matches the operation's
// name in spec.md so a binding generator can map 1:1.
func registry() map[string]handlerFunc {
	return map[string]handlerFunc{
		"CreateAccount":           handleCreateAccount,
		"GetAccount":              handleGetAccount,
		"GetAccounts":             handleGetAccounts,
		"RemoveLatestAccount":     handleRemoveLatestAccount,
		"SetClientOptions":        handleSetClientOptions,
		"GetClientOptions":        handleGetClientOptions,
		"SyncAccount":             handleSyncAccount,
		"StartBackgroundSyncing":  handleStartBackgroundSyncing,
		"StopBackgroundSyncing":   handleStopBackgroundSyncing,
		"Backup":                  handleBackup,
		"RestoreBackup":           handleRestoreBackup,
		"RecoverAccounts":         handleRecoverAccounts,
		"SendAmount":              handleSendAmount,
		"SendMicroTransaction":    handleSendMicroTransaction,
		"SendNativeTokens":        handleSendNativeTokens,
		"SendNft":                 handleSendNft,
		"MintNfts":                handleMintNfts,
		"BurnNft":                 handleBurnNft,
		"CreateAliasOutput":       handleCreateAliasOutput,
		"MintNativeToken":         handleMintNativeToken,
		"IncreaseNativeTokenSupply": handleIncreaseNativeTokenSupply,
		"DecreaseNativeTokenSupply": handleDecreaseNativeTokenSupply,
		"DestroyFoundry":          handleDestroyFoundry,
		"DestroyAlias":            handleDestroyAlias,
		"ClaimOutputs":            handleClaimOutputs,
		"ConsolidateOutputs":      handleConsolidateOutputs,
		"Vote":                    handleVote,
		"StopParticipating":       handleStopParticipating,
		"GetParticipationOverview": handleGetParticipationOverview,
		"GetLedgerStatus":         handleGetLedgerStatus,
	}
}

// accountRefPayload is the shape every per-account command payload embeds:
// spec.md §4.7 "Each command carries an account_id (numeric index or
// alias)". Handlers below parse account_id through Manager.GetAccount so
// both forms work identically.
type accountRefPayload struct {
	AccountID string `json:"account_id"`
}

func resolveAccountIndex(m *manager.Manager, ref string) (uint32, error) {
	acc, err := m.GetAccount(ref)
	if err != nil {
		return 0, err
	}
	return acc.Index(), nil
}

func handleCreateAccount(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p manager.CreateAccountOptions
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	return m.CreateAccount(ctx, p)
}

func handleGetAccount(_ context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p accountRefPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	return m.GetAccount(p.AccountID)
}

func handleGetAccounts(_ context.Context, m *manager.Manager, _ json.RawMessage) (interface{}, error) {
	return m.GetAccounts(), nil
}

func handleRemoveLatestAccount(_ context.Context, m *manager.Manager, _ json.RawMessage) (interface{}, error) {
	return nil, m.RemoveLatestAccount()
}

func handleSetClientOptions(_ context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p client.ClientOptions
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	m.SetClientOptions(p)
	return nil, nil
}

func handleGetClientOptions(_ context.Context, m *manager.Manager, _ json.RawMessage) (interface{}, error) {
	return m.ClientOptions(), nil
}

type syncAccountPayload struct {
	AccountID string       `json:"account_id"`
	Options   sync.Options `json:"options"`
}

func handleSyncAccount(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p syncAccountPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	return m.Sync(ctx, index, p.Options)
}

type backgroundSyncPayload struct {
	IntervalMillis int64        `json:"interval_ms"`
	Options        sync.Options `json:"options"`
}

func handleStartBackgroundSyncing(_ context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p backgroundSyncPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	m.StartBackgroundSyncing(durationFromMillis(p.IntervalMillis), p.Options)
	return nil, nil
}

func handleStopBackgroundSyncing(_ context.Context, m *manager.Manager, _ json.RawMessage) (interface{}, error) {
	m.StopBackgroundSyncing()
	return nil, nil
}

type backupPayload struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

func handleBackup(_ context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p backupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	return nil, m.Backup(p.Path, p.Password)
}

type restoreBackupPayload struct {
	Path                   string `json:"path"`
	Password               string `json:"password"`
	IgnoreCoinTypeMismatch bool   `json:"ignore_coin_type_mismatch"`
}

func handleRestoreBackup(_ context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p restoreBackupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	return nil, m.RestoreBackup(p.Path, p.Password, p.IgnoreCoinTypeMismatch)
}

func handleRecoverAccounts(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p manager.RecoverAccountsOptions
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	return m.RecoverAccounts(ctx, p)
}

type sendAmountPayload struct {
	AccountID string             `json:"account_id"`
	Targets   []ops.AmountTarget `json:"targets"`
	Options   txbuilder.Options  `json:"options"`
}

func handleSendAmount(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p sendAmountPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	// An omitted "options" field decodes to the zero Options value, which is
	// already txbuilder.DefaultOptions (ReuseAddress is RemainderStrategy's
	// zero value), so no merge step is needed here.
	return svc.SendAmount(ctx, p.Targets, p.Options)
}

type sendMicroTransactionPayload struct {
	AccountID string            `json:"account_id"`
	Targets   []ops.MicroTarget `json:"targets"`
	Options   txbuilder.Options `json:"options"`
}

func handleSendMicroTransaction(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p sendMicroTransactionPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.SendMicroTransaction(ctx, p.Targets, p.Options)
}

type sendNativeTokensPayload struct {
	AccountID string                  `json:"account_id"`
	Targets   []ops.NativeTokenTarget `json:"targets"`
	Options   txbuilder.Options       `json:"options"`
}

func handleSendNativeTokens(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p sendNativeTokensPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.SendNativeTokens(ctx, p.Targets, p.Options)
}

type sendNftPayload struct {
	AccountID string                        `json:"account_id"`
	Targets   map[iotago.NFTID]iotago.Address `json:"targets"`
	Options   txbuilder.Options             `json:"options"`
}

func handleSendNft(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p sendNftPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.SendNft(ctx, p.Targets, p.Options)
}

type mintNftsPayload struct {
	AccountID string              `json:"account_id"`
	Entries   []ops.NftMintParams `json:"entries"`
	Options   txbuilder.Options   `json:"options"`
}

func handleMintNfts(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p mintNftsPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.MintNfts(ctx, p.Entries, p.Options)
}

type burnNftPayload struct {
	AccountID string            `json:"account_id"`
	NftID     iotago.NFTID      `json:"nft_id"`
	Options   txbuilder.Options `json:"options"`
}

func handleBurnNft(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p burnNftPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.BurnNft(ctx, p.NftID, p.Options)
}

type createAliasOutputPayload struct {
	AccountID string                 `json:"account_id"`
	Params    ops.AliasOutputParams  `json:"params"`
	Options   txbuilder.Options      `json:"options"`
}

func handleCreateAliasOutput(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p createAliasOutputPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.CreateAliasOutput(ctx, p.Params, p.Options)
}

type mintNativeTokenPayload struct {
	AccountID string                    `json:"account_id"`
	Params    ops.MintNativeTokenParams `json:"params"`
	Options   txbuilder.Options         `json:"options"`
}

func handleMintNativeToken(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p mintNativeTokenPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.MintNativeToken(ctx, p.Params, p.Options)
}

type tokenSupplyPayload struct {
	AccountID string            `json:"account_id"`
	TokenID   iotago.TokenID    `json:"token_id"`
	Amount    uint64            `json:"amount"`
	Options   txbuilder.Options `json:"options"`
}

func handleIncreaseNativeTokenSupply(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p tokenSupplyPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.IncreaseNativeTokenSupply(ctx, p.TokenID, p.Amount, p.Options)
}

func handleDecreaseNativeTokenSupply(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p tokenSupplyPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.DecreaseNativeTokenSupply(ctx, p.TokenID, p.Amount, p.Options)
}

type destroyFoundryPayload struct {
	AccountID string            `json:"account_id"`
	TokenID   iotago.TokenID    `json:"token_id"`
	Options   txbuilder.Options `json:"options"`
}

func handleDestroyFoundry(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p destroyFoundryPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.DestroyFoundry(ctx, p.TokenID, p.Options)
}

type destroyAliasPayload struct {
	AccountID string            `json:"account_id"`
	AliasID   iotago.AliasID    `json:"alias_id"`
	Options   txbuilder.Options `json:"options"`
}

func handleDestroyAlias(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p destroyAliasPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.DestroyAlias(ctx, p.AliasID, p.Options)
}

type claimOutputsPayload struct {
	AccountID string             `json:"account_id"`
	Kind      ops.ClaimableKind  `json:"kind"`
	Options   txbuilder.Options  `json:"options"`
}

func handleClaimOutputs(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p claimOutputsPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.ClaimOutputs(ctx, p.Kind, p.Options)
}

type consolidateOutputsPayload struct {
	AccountID string            `json:"account_id"`
	Force     bool              `json:"force"`
	Threshold int               `json:"threshold"`
	Options   txbuilder.Options `json:"options"`
}

func handleConsolidateOutputs(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p consolidateOutputsPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Ops(index)
	if err != nil {
		return nil, err
	}
	return svc.ConsolidateOutputs(ctx, p.Force, p.Threshold, p.Options)
}

type votePayload struct {
	AccountID string            `json:"account_id"`
	EventID   string            `json:"event_id"` // hex-encoded voting.EventID
	Answers   []byte            `json:"answers"`
	Options   txbuilder.Options `json:"options"`
}

func decodeEventID(s string) (voting.EventID, error) {
	var id voting.EventID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, walleterr.New(walleterr.KindInvalidMessage, "invalid event id: "+s)
	}
	copy(id[:], raw)
	return id, nil
}

func handleVote(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p votePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Voting(index)
	if err != nil {
		return nil, err
	}
	eventID, err := decodeEventID(p.EventID)
	if err != nil {
		return nil, err
	}
	return svc.Vote(ctx, eventID, p.Answers, p.Options)
}

type stopParticipatingPayload struct {
	AccountID string            `json:"account_id"`
	EventID   string            `json:"event_id"`
	Options   txbuilder.Options `json:"options"`
}

func handleStopParticipating(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p stopParticipatingPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Voting(index)
	if err != nil {
		return nil, err
	}
	eventID, err := decodeEventID(p.EventID)
	if err != nil {
		return nil, err
	}
	return svc.StopParticipating(ctx, eventID, p.Options)
}

type participationOverviewPayload struct {
	AccountID string   `json:"account_id"`
	EventIDs  []string `json:"event_ids"`
}

func handleGetParticipationOverview(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error) {
	var p participationOverviewPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	index, err := resolveAccountIndex(m, p.AccountID)
	if err != nil {
		return nil, err
	}
	svc, err := m.Voting(index)
	if err != nil {
		return nil, err
	}
	ids := make([]voting.EventID, 0, len(p.EventIDs))
	for _, s := range p.EventIDs {
		id, err := decodeEventID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return svc.GetParticipationOverview(ctx, ids)
}

// handleGetLedgerStatus surfaces the hardware-signer status surface
// (SPEC_FULL.md §7 supplemented feature) through the façade.
func handleGetLedgerStatus(ctx context.Context, m *manager.Manager, _ json.RawMessage) (interface{}, error) {
	st, err := m.SignerStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !st.Connected {
		return nil, walleterr.New(walleterr.KindLedgerDisconnected, "hardware signer disconnected")
	}
	if st.Locked {
		return nil, walleterr.New(walleterr.KindLedgerLocked, "hardware signer locked")
	}
	return st, nil
}

func durationFromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
