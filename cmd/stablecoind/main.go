package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AndriyAntonenko/defi-stablecoin/config"
	"github.com/AndriyAntonenko/defi-stablecoin/engine"
	"github.com/AndriyAntonenko/defi-stablecoin/events"
	"github.com/AndriyAntonenko/defi-stablecoin/observability/logging"
	"github.com/AndriyAntonenko/defi-stablecoin/observability/metrics"
	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/rpc"
	"github.com/AndriyAntonenko/defi-stablecoin/token"
)

// custodyAddr is the account collateral transfers settle into in local
// custody mode.
var custodyAddr = common.HexToAddress("0x0000000000000000000000000000000000000d5c")

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "stablecoind.toml", "path to stablecoind config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("STABLECOIND_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logOut := io.Writer(os.Stdout)
	if strings.TrimSpace(cfg.LogPath) != "" {
		logOut = logging.RotatingWriter(cfg.LogPath)
	}
	logger := logging.SetupWithWriter("stablecoind", env, logOut)

	journal, err := events.OpenJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("open event journal: %v", err)
	}
	defer journal.Close()

	gateway := oracle.NewGatewayWithTimeout(cfg.StaleTimeout())
	feeds, assets, bank, err := buildCollateral(cfg)
	if err != nil {
		log.Fatalf("configure collateral: %v", err)
	}
	registry, err := engine.NewRegistry(gateway, assets, feeds)
	if err != nil {
		log.Fatalf("register collateral: %v", err)
	}
	debt := token.NewBank(18, custodyAddr)
	eng := engine.New(gateway, registry, bank, debt, custodyAddr,
		engine.WithEmitter(journal),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.Engine()),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(eng, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving queries", "listen", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", "err", err)
	}
}

// buildCollateral assembles the feed and token bindings for every configured
// asset. With an EVM endpoint the price feeds are read from on-chain
// aggregators; otherwise manual feeds are installed and must be driven by an
// operator process.
func buildCollateral(cfg *config.Config) ([]oracle.Feed, []common.Address, engine.TokenBank, error) {
	var caller *ethclient.Client
	if strings.TrimSpace(cfg.EVMEndpoint) != "" {
		client, err := ethclient.Dial(cfg.EVMEndpoint)
		if err != nil {
			return nil, nil, nil, err
		}
		caller = client
	}

	feeds := make([]oracle.Feed, 0, len(cfg.Collateral))
	assets := make([]common.Address, 0, len(cfg.Collateral))
	bank := make(engine.StaticBank, len(cfg.Collateral))
	for _, entry := range cfg.Collateral {
		asset := common.HexToAddress(entry.Asset)
		if caller != nil {
			feeds = append(feeds, oracle.NewChainlinkFeed(caller, common.HexToAddress(entry.Feed)))
		} else {
			feed := oracle.NewManualFeed(oracle.ExpectedDecimals)
			feed.SetAnswer(big.NewInt(entry.InitialPrice), time.Now())
			feeds = append(feeds, feed)
		}
		assets = append(assets, asset)
		bank[asset] = token.NewBank(entry.Decimals, custodyAddr)
	}
	return feeds, assets, bank, nil
}
