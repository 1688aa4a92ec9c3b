package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/Davidcuama/SisteCredito-Hackaton/config"
	"github.com/Davidcuama/SisteCredito-Hackaton/core"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/rewards"
	"github.com/Davidcuama/SisteCredito-Hackaton/observability/logging"
	"github.com/Davidcuama/SisteCredito-Hackaton/rpc"
	"github.com/Davidcuama/SisteCredito-Hackaton/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "DEV ONLY: keep state in memory instead of the data directory")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CREDD_ENV"))
	logger := logging.Setup("credd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" && cfg.Env != "" {
		logger = logging.Setup("credd", cfg.Env)
	}

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", slog.String("path", cfg.DataDir), slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		logger.Error("failed to assemble genesis", slog.Any("error", err))
		os.Exit(1)
	}

	node, err := core.NewNode(db, genesis)
	if err != nil {
		logger.Error("failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("credential ledger ready",
		slog.String("network", cfg.NetworkName),
		slog.String("owner", cfg.Owner),
		slog.Int("reportingEntities", len(cfg.ReportingEntities)),
		slog.Int("authorizedCallers", len(cfg.AuthorizedCallers)),
	)

	server := rpc.NewServer(node)
	server.SetRateLimit(cfg.RPCRateLimitPerMinute, cfg.RPCRateBurst)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func genesisFromConfig(cfg *config.Config) (core.Genesis, error) {
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return core.Genesis{}, err
	}
	entities, err := cfg.EntityAddresses()
	if err != nil {
		return core.Genesis{}, err
	}
	callers, err := cfg.CallerAddresses()
	if err != nil {
		return core.Genesis{}, err
	}
	params := rewards.Params{
		BasePerPayment:  rewards.Tokens(cfg.RewardBaseTokens),
		BonusThreshold:  cfg.RewardBonusThreshold,
		BonusMultiplier: cfg.RewardBonusMultiplier,
		InitialReserve:  rewards.Tokens(cfg.InitialReserveTokens),
	}
	params.ApplyDefaults()
	return core.Genesis{
		Owner:             owner,
		ReportingEntities: entities,
		AuthorizedCallers: callers,
		RewardParams:      params,
	}, nil
}
