// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/palisadelabs/palisade/api"
	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/cmd/palisade/httpserver"
	"github.com/palisadelabs/palisade/cmd/palisade/node"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Palisade",
		Usage:     "Node of the Palisade staking ledger",
		Copyright: "2025 Palisade Labs",
		Flags: []cli.Flag{
			networkFlag,
			configDirFlag,
			dataDirFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiEventsLimitFlag,
			enableAPILogsFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			schedulerIntervalFlag,
			enableAdminFlag,
			adminAddrFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "solo",
				Usage: "client runs in solo mode for test & dev",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					persistFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiTimeoutFlag,
					apiEventsLimitFlag,
					enableAPILogsFlag,
					pprofFlag,
					verbosityFlag,
					jsonLogsFlag,
					schedulerIntervalFlag,
					enableAdminFlag,
					adminAddrFlag,
					enableMetricsFlag,
					metricsAddrFlag,
				},
				Action: soloAction,
			},
			{
				Name:  "admin-key",
				Usage: "import and export admin key",
				Flags: []cli.Flag{
					configDirFlag,
					importKeyFlag,
					exportKeyFlag,
				},
				Action: adminKeyAction,
			},
			{
				Name:  "verify-events",
				Usage: "verify the event journal against the ledger snapshot",
				Flags: []cli.Flag{
					networkFlag,
					dataDirFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: verifyEventsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { log.Info("exited") }()

	logLevel := initLogger(ctx)

	// enable metrics as soon as possible
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

	gene := selectGenesis(ctx)
	instanceDir := makeInstanceDir(ctx, gene)

	db := openPoolDB(ctx, instanceDir)
	defer func() { log.Info("closing pool database..."); db.Close() }()

	journal := openEventDB(instanceDir)
	defer func() { log.Info("closing event database..."); journal.Close() }()

	pool, adminCap, vlt := initLedger(gene, db, journal)
	checkAdminKey(ctx, gene)

	subs := subscriptions.New(journal, parseOrigins(ctx.String(apiCorsFlag.Name)))
	health := new(admin.Health)

	n := node.New(pool, adminCap, vlt, db, journal, subs, health, node.Options{
		SchedulerInterval: time.Duration(ctx.Uint64(schedulerIntervalFlag.Name)) * time.Second,
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

	adminURL := ""
	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(
			ctx.String(adminAddrFlag.Name),
			logLevel,
			n,
			health,
			apiLogs,
		)
		if err != nil {
			fatal(fmt.Sprintf("unable to start admin server - %v", err))
		}
		adminURL = url
		defer func() { log.Info("stopping admin server..."); closeFunc() }()
	}

	printStartupMessage(gene, pool, instanceDir, apiURL, metricsURL, adminURL)

	return n.Run(exitSignal)
}
