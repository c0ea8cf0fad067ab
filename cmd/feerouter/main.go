package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/bitfsorg/feerouter-go/config"
	"github.com/bitfsorg/feerouter-go/crank"
	"github.com/bitfsorg/feerouter-go/distribution"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/ledger"
	"github.com/bitfsorg/feerouter-go/logger"
	"github.com/bitfsorg/feerouter-go/metrics"
	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/receipts"
	"github.com/bitfsorg/feerouter-go/sol"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `Usage: feerouter [flags] <command>

Commands:
  init-config   write a default config file to the data directory
  migrate       apply the postgres ledger migrations
  init          record the creator account (--creator)
  status        show the epoch progress of every stream
  crank         distribute due epochs (--once to run a single pass)
  receipts      list archived payout receipts

Flags:
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDirFlag := flag.String("datadir", config.DefaultDataDir(), "data directory holding config, ledger and streams manifest")
	envFileFlag := flag.String("env-file", ".env", "dotenv file loaded before reading environment overrides")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging, overrides loglevel")

	clusterFlag := flag.String("cluster", "", "Solana cluster (localnet, devnet, testnet, mainnet)")
	rpcURLFlag := flag.String("rpc-url", "", "Solana RPC URL (or set FEEROUTER_RPC_URL env var)")
	rpcRateFlag := flag.Float64("rpc-rate", 0, "RPC requests per second, 0 keeps the configured rate")
	storeFlag := flag.String("store", "", "ledger backend (bolt, postgres)")
	pgDSNFlag := flag.String("pg-dsn", "", "postgres connection string (or set FEEROUTER_PG_DSN env var)")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to serve prometheus metrics on")

	creatorFlag := flag.String("creator", "", "creator account for init (base58)")
	streamFlag := flag.String("stream", "", "limit status and crank to one stream by name")
	onceFlag := flag.Bool("once", false, "crank: run one pass and exit")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return errors.New("exactly one command is required")
	}
	command := flag.Arg(0)

	if err := godotenv.Load(*envFileFlag); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFileFlag, err)
	}

	if command == "init-config" {
		return initConfig(*dataDirFlag)
	}

	cfg, err := config.LoadConfig(config.ConfigPath(*dataDirFlag))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	cfg.DataDir = *dataDirFlag

	// Flags override the config file; environment variables override flags.
	if *clusterFlag != "" {
		cfg.Cluster = *clusterFlag
	}
	if *storeFlag != "" {
		cfg.Store = *storeFlag
	}
	if *pgDSNFlag != "" {
		cfg.PostgresDSN = *pgDSNFlag
	}
	if *metricsAddrFlag != "" {
		cfg.MetricsAddr = *metricsAddrFlag
	}
	if *verboseFlag {
		cfg.LogLevel = "debug"
	}
	if v := os.Getenv("FEEROUTER_PG_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("FEEROUTER_SENTRY_DSN"); v != "" {
		cfg.SentryDSN = v
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	log := logger.NewWithLevel(os.Stdout, cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if command == "migrate" {
		if cfg.Store != config.StorePostgres {
			return fmt.Errorf("migrate requires store = %s", config.StorePostgres)
		}
		if err := ledger.MigratePostgres(ctx, cfg.PostgresDSN); err != nil {
			return err
		}
		log.Info("ledger migrations applied")
		return nil
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch command {
	case "init":
		return initGlobal(ctx, log, store, *creatorFlag)
	case "status":
		return status(ctx, cfg, store, *streamFlag)
	case "receipts":
		return listReceipts(ctx, cfg, *streamFlag)
	case "crank":
		rpcFlags := &network.RPCConfig{URL: *rpcURLFlag, RPS: *rpcRateFlag}
		if rpcFlags.URL == "" {
			rpcFlags.URL = cfg.RPCURL
		}
		if rpcFlags.RPS == 0 {
			rpcFlags.RPS = cfg.RPCRate
		}
		return runCrank(ctx, log, cfg, store, rpcFlags, *streamFlag, *onceFlag)
	}
	flag.Usage()
	return fmt.Errorf("unknown command %q", command)
}

func initConfig(dataDir string) error {
	path := config.ConfigPath(dataDir)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (ledger.Store, error) {
	if cfg.Store == config.StorePostgres {
		if err := ledger.MigratePostgres(ctx, cfg.PostgresDSN); err != nil {
			return nil, err
		}
		return ledger.OpenPgStore(ctx, cfg.PostgresDSN)
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return ledger.OpenBoltStore(cfg.LedgerPath())
}

func initGlobal(ctx context.Context, log *slog.Logger, store ledger.Store, creator string) error {
	if creator == "" {
		return errors.New("--creator is required for init")
	}
	pk, err := solana.PublicKeyFromBase58(creator)
	if err != nil {
		return fmt.Errorf("invalid --creator: %w", err)
	}
	if err := store.InitGlobalConfig(ctx, &ledger.GlobalConfig{Creator: pk}); err != nil {
		return err
	}
	log.Info("global config initialized", "creator", pk)
	return nil
}

func status(ctx context.Context, cfg config.Config, store ledger.Store, name string) error {
	specs, err := config.LoadStreams(cfg.StreamsPath())
	if err != nil {
		return err
	}
	programID, err := programID(cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tADDRESS\tPHASE\tCURSOR\tCARRY\tDISTRIBUTED\tNEXT EPOCH")
	for _, spec := range specs {
		if name != "" && spec.Name != name {
			continue
		}
		id, err := streamID(spec, programID)
		if err != nil {
			return fmt.Errorf("stream %s: %w", spec.Name, err)
		}
		st, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		p := st.Progress
		next := "now"
		if p.LastEpochStart != 0 {
			next = time.Unix(p.NextEpochAt(), 0).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			spec.Name, id, p.Phase(), p.PageCursor, p.CarryOver, p.DailyDistributed, next)
	}
	return tw.Flush()
}

func listReceipts(_ context.Context, cfg config.Config, name string) error {
	archive, err := receipts.NewFileArchive(cfg.ReceiptsPath())
	if err != nil {
		return err
	}
	all, err := archive.List()
	if err != nil {
		return err
	}

	var filter *solana.PublicKey
	if name != "" {
		specs, err := config.LoadStreams(cfg.StreamsPath())
		if err != nil {
			return err
		}
		pid, err := programID(cfg)
		if err != nil {
			return err
		}
		for _, spec := range specs {
			if spec.Name != name {
				continue
			}
			id, err := streamID(spec, pid)
			if err != nil {
				return fmt.Errorf("stream %s: %w", spec.Name, err)
			}
			filter = &id
		}
		if filter == nil {
			return fmt.Errorf("unknown stream %q", name)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tEPOCH\tPAGE\tPAID\tINVESTORS\tSKIPPED\tCREATOR\tSIGNATURE")
	for _, r := range all {
		if filter != nil && r.Stream != *filter {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Stream, time.Unix(r.EpochStart, 0).UTC().Format(time.RFC3339), r.PageIndex,
			r.InvestorTotal, len(r.Payouts), len(r.Skipped), r.CreatorAmount, r.Signature)
	}
	return tw.Flush()
}

func runCrank(ctx context.Context, log *slog.Logger, cfg config.Config, store ledger.Store, rpcFlags *network.RPCConfig, name string, once bool) error {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: version,
		}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	rpcCfg, err := network.ResolveConfig(rpcFlags, map[string]string{
		"FEEROUTER_RPC_URL": os.Getenv("FEEROUTER_RPC_URL"),
	}, cfg.Cluster)
	if err != nil {
		return err
	}
	client := sol.NewLimitedRPC(solanarpc.New(rpcCfg.URL), rpcCfg.RPS)

	if cfg.Keypair == "" {
		return errors.New("keypair is required to sign payouts")
	}
	payer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.Keypair)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	authority := payer
	if cfg.Authority != "" {
		if authority, err = solana.PrivateKeyFromSolanaKeygenFile(cfg.Authority); err != nil {
			return fmt.Errorf("load authority: %w", err)
		}
	}
	executor := sol.NewTokenExecutor(client, payer, authority)

	specs, err := config.LoadStreams(cfg.StreamsPath())
	if err != nil {
		return err
	}
	pid, err := programID(cfg)
	if err != nil {
		return err
	}
	w, err := wireStreams(specs, pid, client, executor)
	if err != nil {
		return err
	}
	streams, err := selectStreams(w.streams, name)
	if err != nil {
		return err
	}

	oracle := network.NewCachedOracle(w.oracle, cfg.PrefetchConcurrency)
	engine := distribution.NewEngine(store, w.fees, oracle, executor, w.roster,
		distribution.WithLogger(log),
		distribution.WithEventSink(distribution.LogSink{Log: log}),
		distribution.WithPageSize(cfg.PageSize),
	)
	archive, err := receipts.NewFileArchive(cfg.ReceiptsPath())
	if err != nil {
		return err
	}
	c, err := crank.New(crank.Config{
		Logger:  log,
		Engine:  engine,
		Store:   store,
		Roster:  w.roster,
		OnError: reportFailure,
		Archive: archive,
	})
	if err != nil {
		return err
	}

	log.Info("feerouter crank starting",
		"version", version, "cluster", rpcCfg.Cluster, "rpc", rpcCfg.URL,
		"store", cfg.Store, "streams", len(streams), "payer", payer.PublicKey())
	if once {
		c.RunOnce(ctx, streams)
		return nil
	}
	if err := c.Run(ctx, streams); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("feerouter crank stopped")
	return nil
}

func programID(cfg config.Config) (solana.PublicKey, error) {
	if cfg.ProgramID == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(cfg.ProgramID)
}

// reportFailure sends failed epoch runs to Sentry. Quote-only violations are
// reported as fatal: they need an operator before the stream can continue.
func reportFailure(s crank.Stream, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("stream", s.Name)
		scope.SetTag("stream_address", s.ID.String())
		if errors.Is(err, guard.ErrDisallowedDenominationDetected) || errors.Is(err, guard.ErrBaseFeeDetected) {
			scope.SetLevel(sentry.LevelFatal)
		}
		sentry.CaptureException(err)
	})
}
