// Command walletd runs the account manager as a long-lived daemon,
// exposing the message-actor façade over HTTP and a Prometheus metrics
// endpoint bridging the core's go-metrics instrumentation.
package main

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/iotaledger/wallet.go/internal/actor"
	"github.com/iotaledger/wallet.go/internal/actor/httpactor"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/internal/manager"
	"github.com/iotaledger/wallet.go/internal/sync"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/signer"
	"github.com/iotaledger/wallet.go/storage"
	"github.com/iotaledger/wallet.go/storage/database"
)

var (
	configFlag = cli.StringFlag{Name: "config", Usage: "TOML configuration file"}
	nodeFlag   = cli.StringFlag{Name: "node", Usage: "node RPC endpoint (e.g. https://api.testnet.shimmer.network)"}
	passwordFlag = cli.StringFlag{Name: "password", Usage: "storage encryption password (optional)"}
	syncIntervalFlag = cli.DurationFlag{Name: "sync-interval", Value: 30 * time.Second}
)

func main() {
	app := cli.NewApp()
	app.Name = "walletd"
	app.Usage = "wallet account-manager daemon"
	app.Flags = []cli.Flag{configFlag, nodeFlag, passwordFlag, syncIntervalFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "walletd:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	logger := log.NewModuleLogger(log.Manager)

	cfg := defaultConfig()
	if file := ctx.String(configFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if node := ctx.String(nodeFlag.Name); node != "" {
		cfg.ClientOptions.Nodes = []string{node}
		cfg.ClientOptions.PrimaryNode = node
	}

	db, err := database.NewBadgerDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	var store storage.Storage
	if password := ctx.String(passwordFlag.Name); password != "" {
		store = storage.NewEncrypted(db, password)
	} else {
		store = storage.New(db)
	}
	defer store.Close()

	var nodeClient client.NodeClient
	if cfg.ClientOptions.PrimaryNode != "" {
		caller := newHTTPCaller(cfg.ClientOptions.PrimaryNode)
		nodeClient = client.NewRPCClient(caller, nil)
	}

	var bus eventbus.Bus = eventbus.NewLocalBus()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaBus, err := eventbus.NewKafkaBus(eventbus.DefaultKafkaConfig(cfg.KafkaBrokers, "wallet"))
		if err != nil {
			logger.Warnw("failed to connect to kafka, falling back to local event bus", "err", err)
		} else {
			bus = kafkaBus
		}
	}

	seed := make([]byte, 32)
	_, _ = rand.Read(seed)
	signerImpl := signer.NewInMemorySigner(seed, cfg.CoinType)

	m, err := manager.New(manager.Options{
		Signer:        signerImpl,
		Node:          nodeClient,
		Storage:       store,
		Bus:           bus,
		CoinType:      cfg.CoinType,
		ClientOptions: cfg.ClientOptions,
	})
	if err != nil {
		return fmt.Errorf("failed to construct account manager: %w", err)
	}

	m.StartBackgroundSyncing(ctx.Duration(syncIntervalFlag.Name), sync.DefaultOptions)
	defer m.StopBackgroundSyncing()

	bridge := newMetricsBridge()
	metricsStop := make(chan struct{})
	go bridge.run(15*time.Second, metricsStop)
	defer close(metricsStop)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics server stopped", "err", err)
		}
	}()
	defer metricsServer.Close()

	actorServer := httpactor.New(actor.New(m))
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: actorServer.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("actor http server stopped", "err", err)
		}
	}()
	defer httpServer.Close()

	logger.Infow("walletd started", "httpAddr", cfg.HTTPAddr, "metricsAddr", cfg.MetricsAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Infow("walletd shutting down")
	return nil
}
