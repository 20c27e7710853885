// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/genesis"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/lvldb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/pooldb"
	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

func fatal(args ...interface{}) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) *slog.LevelVar {
	logLevel := log.FromLegacyLevel(int(ctx.Uint64(verbosityFlag.Name)))

	level := new(slog.LevelVar)
	level.Set(logLevel)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		useColor := isatty.IsTerminal(os.Stdout.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stdout, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))

	return level
}

func parseOrigins(corsList string) []string {
	origins := strings.Split(strings.TrimSpace(corsList), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	return origins
}

func selectGenesis(ctx *cli.Context) *genesis.Genesis {
	network := ctx.String(networkFlag.Name)
	if network == "" {
		cli.ShowAppHelp(ctx)
		fmt.Println("network flag not specified")
		os.Exit(1)
	}
	if network == "dev" {
		return genesis.NewDevnet()
	}
	gene, err := genesis.Load(network)
	if err != nil {
		fatal(fmt.Sprintf("load genesis file [%v]: %v", network, err))
	}
	return gene
}

func makeConfigDir(ctx *cli.Context) string {
	configDir := ctx.String(configDirFlag.Name)
	if configDir == "" {
		fatal(fmt.Sprintf("unable to infer default config dir, use -%s to specify", configDirFlag.Name))
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fatal(fmt.Sprintf("create config dir [%v]: %v", configDir, err))
	}
	return configDir
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) string {
	dataDir := makeDataDir(ctx)

	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		fatal(fmt.Sprintf("create instance dir [%v]: %v", instanceDir, err))
	}
	return instanceDir
}

func openPoolDB(ctx *cli.Context, dataDir string) *pooldb.PoolDB {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	log.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))

	log.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache := suggestFDCache()
	log.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(dataDir, "pool.db")
	db, err := pooldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		fatal(fmt.Sprintf("open pool database [%v]: %v", dir, err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		fatal("failed to get fd limit:", err)
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

func openEventDB(dataDir string) *eventdb.EventDB {
	dir := filepath.Join(dataDir, "events.db")
	db, err := eventdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open event database [%v]: %v", dir, err))
	}
	return db
}

// initLedger boots the pool from the snapshot store, seeding the store
// from the genesis document on the first boot of a data directory. The
// genesis reserve funding goes through the regular FundReserve path, so
// it lands in the snapshot and, via the returned receipt, the journal.
func initLedger(gene *genesis.Genesis, db *pooldb.PoolDB, journal *eventdb.EventDB) (*staking.Pool, *staking.AdminCap, *vault.Vault) {
	storedID, err := db.GenesisID()
	if err != nil {
		fatal("read genesis id:", err)
	}

	if storedID.IsZero() {
		log.Info("initializing data directory", "genesis", gene.ID())

		vlt := vault.New()
		for _, alloc := range gene.Allocations {
			if _, err := vlt.Deposit(alloc.Address, alloc.Balance); err != nil {
				fatal(fmt.Sprintf("seed allocation [%v]: %v", alloc.Address, err))
			}
		}
		pool, adminCap := staking.New(gene.Admin, vlt)
		if gene.Reserve > 0 {
			rec, err := pool.FundReserve(adminCap, gene.Reserve, uint64(time.Now().Unix()))
			if err != nil {
				fatal("seed reward reserve:", err)
			}
			if _, err := journal.Log(rec.Events); err != nil {
				fatal("journal reserve seeding:", err)
			}
		}

		ledger := &pooldb.Ledger{
			Accounts: make(map[palisade.Address]uint64),
			Stats:    pool.Stats(),
			Seq:      pool.Seq(),
		}
		for _, alloc := range gene.Allocations {
			ledger.Accounts[alloc.Address] = vlt.Balance(alloc.Address)
		}
		if err := db.SaveLedger(ledger, gene.ID()); err != nil {
			fatal("save genesis ledger:", err)
		}
		return pool, adminCap, vlt
	}

	if storedID != gene.ID() {
		fatal(fmt.Sprintf("data directory was initialized with a different genesis (stored %v, given %v)", storedID, gene.ID()))
	}

	ledger, err := db.LoadLedger()
	if err != nil {
		fatal("load ledger snapshot:", err)
	}
	vlt := vault.Restore(ledger.Accounts)
	pool, adminCap, err := staking.Restore(gene.Admin, vlt, ledger.Positions, ledger.Stats, ledger.Seq)
	if err != nil {
		fatal("restore pool:", err)
	}
	log.Info("ledger restored",
		"staked", ledger.Stats.StakedBalance,
		"reserve", ledger.Stats.RewardBalance,
		"stakes", ledger.Stats.TotalStakesCount,
	)
	return pool, adminCap, vlt
}

// checkAdminKey warns when the key in the config dir does not control
// the genesis admin account. The node still runs: reserve funding
// through the admin endpoint works either way, it debits the admin
// vault account directly.
func checkAdminKey(ctx *cli.Context, gene *genesis.Genesis) {
	path := adminKeyPath(ctx)
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no admin key in config dir", "path", path)
			return
		}
		fatal(fmt.Sprintf("load admin key [%v]: %v", path, err))
	}
	addr := palisade.Address(crypto.PubkeyToAddress(key.PublicKey))
	if addr != gene.Admin {
		log.Warn("admin key does not match the genesis admin",
			"key", addr, "admin", gene.Admin)
	}
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func printStartupMessage(
	gene *genesis.Genesis,
	pool *staking.Pool,
	instanceDir string,
	apiURL string,
	metricsURL string,
	adminURL string,
) {
	stats := pool.Stats()
	fmt.Printf(`Starting %v
    Network      [ %v %v ]
    Pool         [ staked %v reserve %v stakes %v ]
    Admin        [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		"Palisade "+fullVersion(),
		gene.ID(), gene.Name,
		stats.StakedBalance, stats.RewardBalance, stats.TotalStakesCount,
		gene.Admin,
		instanceDir,
		apiURL)
	if metricsURL != "" {
		fmt.Printf("    Metrics      [ %v ]\n", metricsURL)
	}
	if adminURL != "" {
		fmt.Printf("    Admin portal [ %v ]\n", adminURL)
	}
}

// copied from go-ethereum
func defaultConfigDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".org.palisadelabs.palisade")
	}
	return ""
}

// copied from go-ethereum
func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.palisadelabs.palisade")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.palisadelabs.palisade")
		default:
			return filepath.Join(home, ".org.palisadelabs.palisade")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
