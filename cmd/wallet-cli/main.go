// Command wallet-cli drives the message-actor façade end-to-end from a
// terminal, mirroring the teacher's cmd/utils + the original Rust CLI's
// binding shape: every subcommand builds one actor.Message and prints the
// actor.Response JSON it gets back, so the CLI never duplicates business
// logic already implemented by the façade.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli"

	"github.com/iotaledger/wallet.go/internal/actor"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/internal/manager"
	"github.com/iotaledger/wallet.go/signer"
	"github.com/iotaledger/wallet.go/storage"
	"github.com/iotaledger/wallet.go/storage/database"
)

var (
	dataDirFlag = cli.StringFlag{Name: "data-dir", Value: "./wallet-cli-data"}
	nodeFlag    = cli.StringFlag{Name: "node", Usage: "node RPC endpoint"}
)

func main() {
	app := cli.NewApp()
	app.Name = "wallet-cli"
	app.Usage = "drive the wallet account manager from the command line"
	app.Flags = []cli.Flag{dataDirFlag, nodeFlag}
	app.Commands = []cli.Command{
		{Name: "create-account", Usage: "create-account <alias>", Action: withActor(cmdCreateAccount)},
		{Name: "list-accounts", Usage: "list every account", Action: withActor(cmdListAccounts)},
		{Name: "balance", Usage: "balance <account_id>", Action: withActor(cmdBalance)},
		{Name: "sync", Usage: "sync <account_id>", Action: withActor(cmdSync)},
		{Name: "send-amount", Usage: "send-amount <account_id> <hex_address> <amount>", Action: withActor(cmdSendAmount)},
		{Name: "backup", Usage: "backup <path> <password>", Action: withActor(cmdBackup)},
		{Name: "restore-backup", Usage: "restore-backup <path> <password>", Action: withActor(cmdRestoreBackup)},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wallet-cli:", err)
		os.Exit(1)
	}
}

// withActor wraps a subcommand body with manager/actor construction so
// every command shares the exact same wiring path as cmd/walletd, just
// without the daemon's HTTP/metrics surface.
func withActor(fn func(ctx *cli.Context, a *actor.Actor) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		a, closeFn, err := buildActor(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, a)
	}
}

func buildActor(ctx *cli.Context) (*actor.Actor, func(), error) {
	db, err := database.NewBadgerDB(ctx.GlobalString(dataDirFlag.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	store := storage.New(db)

	var nodeClient client.NodeClient
	if node := ctx.GlobalString(nodeFlag.Name); node != "" {
		nodeClient = client.NewRPCClient(newHTTPCaller(node), nil)
	}

	seed := make([]byte, 32)
	_, _ = rand.Read(seed)

	m, err := manager.New(manager.Options{
		Signer:  signer.NewInMemorySigner(seed, 0),
		Node:    nodeClient,
		Storage: store,
		Bus:     eventbus.NewLocalBus(),
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to construct account manager: %w", err)
	}

	return actor.New(m), func() { store.Close() }, nil
}

func dispatch(a *actor.Actor, cmd string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp := a.Dispatch(context.Background(), actor.Message{Cmd: cmd, Payload: raw})
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cmdCreateAccount(ctx *cli.Context, a *actor.Actor) error {
	return dispatch(a, "CreateAccount", map[string]string{"Alias": ctx.Args().First()})
}

func cmdListAccounts(_ *cli.Context, a *actor.Actor) error {
	return dispatch(a, "GetAccounts", nil)
}

func cmdBalance(ctx *cli.Context, a *actor.Actor) error {
	return dispatch(a, "GetAccount", map[string]string{"account_id": ctx.Args().First()})
}

func cmdSync(ctx *cli.Context, a *actor.Actor) error {
	return dispatch(a, "SyncAccount", map[string]string{"account_id": ctx.Args().First()})
}

func cmdSendAmount(ctx *cli.Context, a *actor.Actor) error {
	args := ctx.Args()
	if len(args) < 3 {
		return fmt.Errorf("usage: send-amount <account_id> <hex_address> <amount>")
	}
	amount, err := strconv.ParseUint(args.Get(2), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	payload := map[string]interface{}{
		"account_id": args.Get(0),
		"targets": []map[string]interface{}{
			{"Address": args.Get(1), "Amount": amount},
		},
	}
	return dispatch(a, "SendAmount", payload)
}

func cmdBackup(ctx *cli.Context, a *actor.Actor) error {
	args := ctx.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: backup <path> <password>")
	}
	return dispatch(a, "Backup", map[string]string{"path": args.Get(0), "password": args.Get(1)})
}

func cmdRestoreBackup(ctx *cli.Context, a *actor.Actor) error {
	args := ctx.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: restore-backup <path> <password>")
	}
	return dispatch(a, "RestoreBackup", map[string]string{"path": args.Get(0), "password": args.Get(1)})
}
