package manager

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/storage"
	"github.com/iotaledger/wallet.go/walleterr"
)

// seedExporter is an optional capability a Signer may implement so Backup
// can include its key material; the Signer contract itself (spec.md §6.1)
// has no export method since most real signers (hardware, Stronghold) never
// allow one.
type seedExporter interface {
	ExportSeed() ([]byte, error)
}

// backupBlob is the full contents of spec.md §6.5's persisted backup: the
// signer state (when exportable), the client options, the coin type, and
// every account record. json.RawMessage-free struct fields are
// forward-compatible by construction (an older reader ignores added
// fields; a newer reader defaults missing ones to zero), matching "a
// backup produced by version v must restore on version v+1".
type backupBlob struct {
	SchemaVersion int                          `json:"schema_version"`
	CoinType      uint32                       `json:"coin_type"`
	ClientOptions client.ClientOptions          `json:"client_options"`
	SignerSeed    []byte                       `json:"signer_seed,omitempty"`
	Accounts      map[uint32]*account.Snapshot `json:"accounts"`
}

// Backup writes a password-protected snapshot of this manager's signer
// state (best effort), client options, coin type, and every account to
// path, which may be a local filesystem path or an "s3://bucket/key" URL
// (spec.md §4.6 backup; SPEC_FULL.md §4 aws-sdk-go backup driver).
func (m *Manager) Backup(path, password string) error {
	m.mu.RLock()
	blob := backupBlob{
		SchemaVersion: currentSchemaVersion,
		CoinType:      m.coinType,
		ClientOptions: m.clientOptions,
		Accounts:      make(map[uint32]*account.Snapshot, len(m.accounts)),
	}
	for idx, ma := range m.accounts {
		blob.Accounts[idx] = ma.account.Snapshot()
	}
	signerImpl := m.signerImpl
	m.mu.RUnlock()

	if exporter, ok := signerImpl.(seedExporter); ok {
		seed, err := exporter.ExportSeed()
		if err != nil {
			return walleterr.Wrap(walleterr.KindBackup, err, "failed to export signer seed")
		}
		blob.SignerSeed = seed
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return walleterr.Wrap(walleterr.KindBackup, err, "failed to encode backup")
	}
	sealed := storage.Seal(password, raw)

	return writeBackupBlob(path, sealed)
}

// RestoreBackup decrypts and parses path, merging it into this manager
// (spec.md §4.6 restore_backup). It fails StorageExists if any backed-up
// account index already exists locally, and InvalidCoinType if the
// manager already holds accounts and the backup's coin type differs from
// the manager's, unless ignoreCoinTypeMismatch is set. A manager with no
// accounts does not compare coin types.
func (m *Manager) RestoreBackup(path, password string, ignoreCoinTypeMismatch bool) error {
	sealed, err := readBackupBlob(path)
	if err != nil {
		return err
	}
	raw, ok := storage.Open(password, sealed)
	if !ok {
		return walleterr.New(walleterr.KindBackup, "failed to decrypt backup (wrong password?)")
	}
	var blob backupBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return walleterr.Wrap(walleterr.KindBackup, err, "failed to decode backup")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.accounts) > 0 && blob.CoinType != m.coinType && !ignoreCoinTypeMismatch {
		return &walleterr.InvalidCoinTypeError{Expected: m.coinType, Got: blob.CoinType}
	}
	for idx := range blob.Accounts {
		if _, exists := m.accounts[idx]; exists {
			return &walleterr.StorageExistsError{Ref: storage.AccountKeyString(idx)}
		}
	}

	m.coinType = blob.CoinType
	m.clientOptions = blob.ClientOptions
	for idx, snap := range blob.Accounts {
		acc := account.FromSnapshot(snap, m.persisterFor(idx))
		ma := m.wire(acc)
		m.accounts[idx] = ma
		if m.store != nil {
			raw, err := json.Marshal(snap)
			if err != nil {
				return walleterr.Wrap(walleterr.KindStorage, err, "failed to persist restored account")
			}
			if err := m.store.Put(storage.AccountKey(idx), raw); err != nil {
				return walleterr.Wrap(walleterr.KindStorage, err, "failed to persist restored account")
			}
		}
	}
	return nil
}

func writeBackupBlob(path string, data []byte) error {
	if bucket, key, ok := parseS3URL(path); ok {
		sess, err := session.NewSession()
		if err != nil {
			return walleterr.Wrap(walleterr.KindBackup, err, "failed to create s3 session")
		}
		uploader := s3manager.NewUploader(sess)
		_, err = uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return walleterr.Wrap(walleterr.KindBackup, err, "failed to upload backup to s3")
		}
		return nil
	}
	if err := ioutil.WriteFile(path, data, 0o600); err != nil {
		return walleterr.Wrap(walleterr.KindBackup, err, "failed to write backup file")
	}
	return nil
}

func readBackupBlob(path string) ([]byte, error) {
	if bucket, key, ok := parseS3URL(path); ok {
		sess, err := session.NewSession()
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindBackup, err, "failed to create s3 session")
		}
		buf := aws.NewWriteAtBuffer([]byte{})
		downloader := s3manager.NewDownloader(sess)
		if _, err := downloader.Download(buf, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
			return nil, walleterr.Wrap(walleterr.KindBackup, err, "failed to download backup from s3")
		}
		return buf.Bytes(), nil
	}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, walleterr.New(walleterr.KindBackup, "backup file not found: "+path)
		}
		return nil, walleterr.Wrap(walleterr.KindBackup, err, "failed to read backup file")
	}
	return raw, nil
}

func parseS3URL(path string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(path, "s3://") {
		return "", "", false
	}
	u, err := url.Parse(path)
	if err != nil {
		return "", "", false
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), true
}
