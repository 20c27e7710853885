// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/palisadelabs/palisade/api"
	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/cmd/palisade/httpserver"
	"github.com/palisadelabs/palisade/cmd/palisade/node"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/genesis"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/metrics"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/pooldb"
)

// soloAction runs a self-contained dev node: devnet genesis, well-known
// funded accounts, in-ram stores unless -persist is given, no NTP
// check.
func soloAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { log.Info("exited") }()

	logLevel := initLogger(ctx)

	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("unable to start metrics server - %v", err))
		}
		metricsURL = url
		defer func() { log.Info("stopping metrics server..."); closeFunc() }()
	}

	gene := genesis.NewDevnet()

	var (
		db          *pooldb.PoolDB
		journal     *eventdb.EventDB
		instanceDir string
		err         error
	)
	if ctx.Bool(persistFlag.Name) {
		instanceDir = makeInstanceDir(ctx, gene)
		db = openPoolDB(ctx, instanceDir)
		journal = openEventDB(instanceDir)
	} else {
		instanceDir = "Memory"
		if db, err = pooldb.NewMem(); err != nil {
			fatal(fmt.Sprintf("open pool database: %v", err))
		}
		if journal, err = eventdb.NewMem(); err != nil {
			fatal(fmt.Sprintf("open event database: %v", err))
		}
	}
	defer func() { log.Info("closing pool database..."); db.Close() }()
	defer func() { log.Info("closing event database..."); journal.Close() }()

	pool, adminCap, vlt := initLedger(gene, db, journal)

	subs := subscriptions.New(journal, parseOrigins(ctx.String(apiCorsFlag.Name)))
	health := new(admin.Health)

	n := node.New(pool, adminCap, vlt, db, journal, subs, health, node.Options{
		SchedulerInterval: time.Duration(ctx.Uint64(schedulerIntervalFlag.Name)) * time.Second,
		SkipClockCheck:    true,
	})

	apiLogs := new(atomic.Bool)
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	apiHandler, apiCloser := api.New(gene.ID(), n, journal, subs, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EventsLimit:     ctx.Uint64(apiEventsLimitFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: apiLogs,
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	defer func() { log.Info("closing subscriptions..."); apiCloser() }()

	apiURL, srvCloser, err := httpserver.StartAPIServer(
		ctx.String(apiAddrFlag.Name),
		apiHandler,
		time.Duration(ctx.Uint64(apiTimeoutFlag.Name))*time.Millisecond,
	)
	if err != nil {
		fatal(fmt.Sprintf("unable to start API server - %v", err))
	}
	defer func() { log.Info("stopping API server..."); srvCloser() }()

	if ctx.Bool(enableAdminFlag.Name) {
		_, closeFunc, err := httpserver.StartAdminServer(
			ctx.String(adminAddrFlag.Name),
			logLevel,
			n,
			health,
			apiLogs,
		)
		if err != nil {
			fatal(fmt.Sprintf("unable to start admin server - %v", err))
		}
		defer func() { log.Info("stopping admin server..."); closeFunc() }()
	}

	printSoloStartupMessage(gene, instanceDir, apiURL, metricsURL)

	return n.Run(exitSignal)
}

func printSoloStartupMessage(
	gene *genesis.Genesis,
	dataDir string,
	apiURL string,
	metricsURL string,
) {
	tableHead := `
┌────────────────────────────────────────────┬────────────────────────────────────────────────────────────────────┐
│                   Address                  │                             Private Key                            │`
	tableContent := `
├────────────────────────────────────────────┼────────────────────────────────────────────────────────────────────┤
│ %v │ %v │`
	tableEnd := `
└────────────────────────────────────────────┴────────────────────────────────────────────────────────────────────┘`

	info := fmt.Sprintf(`Starting %v
    Network     [ %v %v ]
    Data dir    [ %v ]
    API portal  [ %v ]`,
		"Palisade solo "+fullVersion(),
		gene.ID(), gene.Name,
		dataDir,
		apiURL)
	if metricsURL != "" {
		info += fmt.Sprintf(`
    Metrics     [ %v ]`, metricsURL)
	}

	info += tableHead
	for _, a := range genesis.DevAccounts() {
		info += fmt.Sprintf(tableContent,
			a.Address,
			palisade.BytesToBytes32(crypto.FromECDSA(a.PrivateKey)),
		)
	}
	info += tableEnd + "\r\n"

	fmt.Print(info)
}
