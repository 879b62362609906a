// Command cdpctl drives a CDP engine instance in-process: a config-loaded
// collateral set, scripted per-asset oracles, reference collateral/DSC
// ledgers, and either an in-memory or LevelDB-backed position store. Useful
// for scripted demos and manual exploration of the engine's behavior.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/cdp"
	"github.com/MGM103/CDP-Stable-Coin/config"
	"github.com/MGM103/CDP-Stable-Coin/core/events"
	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/ledger"
	"github.com/MGM103/CDP-Stable-Coin/observability/logging"
	"github.com/MGM103/CDP-Stable-Coin/oracle"
	"github.com/MGM103/CDP-Stable-Coin/store"
)

const defaultConfigPath = "./cdpctl.toml"

func main() {
	log := logging.Setup("cdpctl", "local")

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cfgPath := os.Getenv("CDPCTL_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	env, err := newDemoEnvironment(cfg)
	if err != nil {
		log.Error("failed to build engine environment", "error", err)
		os.Exit(1)
	}
	log.Info("engine ready", "pool", cfg.PoolID, "collateral", len(cfg.Collateral))

	switch os.Args[1] {
	case "deposit":
		if len(os.Args) < 5 {
			fmt.Println("usage: cdpctl deposit <user-hex> <asset> <amount>")
			return
		}
		runDeposit(env, os.Args[2], os.Args[3], os.Args[4])
	case "mint":
		if len(os.Args) < 4 {
			fmt.Println("usage: cdpctl mint <user-hex> <dsc-amount>")
			return
		}
		runMint(env, os.Args[2], os.Args[3])
	case "health":
		if len(os.Args) < 3 {
			fmt.Println("usage: cdpctl health <user-hex>")
			return
		}
		runHealth(env, os.Args[2])
	case "events":
		runEvents(env)
	default:
		printUsage()
	}
}

func printUsage() {
	fmt.Println("usage: cdpctl <deposit|mint|health|events> [args...]")
	fmt.Println("config is loaded from $CDPCTL_CONFIG, defaulting to " + defaultConfigPath)
}

type demoEnvironment struct {
	engine  *cdp.Engine
	ledgers map[types.AssetSymbol]*ledger.MemCollateralLedger
	dsc     *ledger.MemDebtToken
	feeds   map[types.AssetSymbol]*oracle.FakeRoundOracle
	log     *events.MemoryLog
}

// newDemoEnvironment builds an engine wired entirely from cfg: one scripted
// oracle and one reference collateral ledger per configured asset, a
// LevelDB-backed store when cfg.DataDir is set or an in-memory store
// otherwise, and the process-wide Prometheus registry from metrics.Cdp()
// (wired automatically inside cdp.NewEngine).
func newDemoEnvironment(cfg *config.Config) (*demoEnvironment, error) {
	now := time.Now()
	engineAddr := types.HexToAddress(cfg.EngineAddress)

	dsc := ledger.NewMemDebtToken(engineAddr)
	configs := make([]cdp.CollateralConfig, 0, len(cfg.Collateral))
	ledgers := make(map[types.AssetSymbol]cdp.CollateralLedger, len(cfg.Collateral))
	memLedgers := make(map[types.AssetSymbol]*ledger.MemCollateralLedger, len(cfg.Collateral))
	feeds := make(map[types.AssetSymbol]*oracle.FakeRoundOracle, len(cfg.Collateral))

	for _, entry := range cfg.Collateral {
		asset := types.AssetSymbol(entry.Asset)
		feed := oracle.NewFakeRoundOracle(entry.DemoUSDPrice, now)
		adapter := oracle.NewAdapter(feed, entry.Timeout())
		coll := ledger.NewMemCollateralLedger(engineAddr)

		configs = append(configs, cdp.CollateralConfig{Asset: asset, Oracle: adapter})
		ledgers[asset] = coll
		memLedgers[asset] = coll
		feeds[asset] = feed
	}

	engine, err := cdp.NewEngine(engineAddr, dsc, configs, ledgers)
	if err != nil {
		return nil, err
	}
	engine.SetPoolID(cfg.PoolID)

	state, err := newEngineState(cfg)
	if err != nil {
		return nil, err
	}
	engine.SetState(state)

	log := events.NewMemoryLog()
	engine.SetEmitter(log)

	return &demoEnvironment{engine: engine, ledgers: memLedgers, dsc: dsc, feeds: feeds, log: log}, nil
}

// newEngineState picks a persistence backend from cfg: a durable
// LevelDB-backed KV store when DataDir is configured, an in-memory map
// otherwise.
func newEngineState(cfg *config.Config) (cdp.EngineState, error) {
	if cfg.DataDir == "" {
		return store.NewMemoryEngineState(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := store.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return store.NewKVEngineState(db), nil
}

func toTokenPrecision(whole string) *uint256.Int {
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		fmt.Println("invalid whole-unit amount:", err)
		os.Exit(1)
	}
	return new(uint256.Int).Mul(uint256.NewInt(uint64(n)), uint256.NewInt(1_000_000_000_000_000_000))
}

func runDeposit(env *demoEnvironment, userHex, assetStr, wholeAmount string) {
	user := types.HexToAddress(userHex)
	asset := types.AssetSymbol(assetStr)
	amount := toTokenPrecision(wholeAmount)
	coll, ok := env.ledgers[asset]
	if !ok {
		fmt.Println("unknown collateral asset:", assetStr)
		return
	}
	coll.Credit(user, amount)
	if err := env.engine.DepositCollateral(user, asset, amount); err != nil {
		fmt.Println("deposit failed:", err)
		return
	}
	fmt.Println("deposit ok")
}

func runMint(env *demoEnvironment, userHex, wholeAmount string) {
	user := types.HexToAddress(userHex)
	amount := toTokenPrecision(wholeAmount)
	if err := env.engine.MintDsc(user, amount); err != nil {
		fmt.Println("mint failed:", err)
		return
	}
	fmt.Println("mint ok")
}

func runHealth(env *demoEnvironment, userHex string) {
	user := types.HexToAddress(userHex)
	hf, err := env.engine.HealthFactor(user)
	if err != nil {
		fmt.Println("health factor query failed:", err)
		return
	}
	fmt.Println("health factor (token precision):", hf.String())
}

func runEvents(env *demoEnvironment) {
	for _, e := range env.log.All() {
		record := e.Event()
		fmt.Printf("%s %v\n", record.Type, record.Attributes)
	}
}
