package main

import (
	"fmt"
	"io"
	"os"

	"custodial-lottery/internal/audit"
	"custodial-lottery/internal/config"
	"custodial-lottery/internal/handlers"
	"custodial-lottery/internal/ledger"
	"custodial-lottery/internal/lottery"
	"custodial-lottery/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lottery",
		Usage: "custodial lottery state service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the lottery HTTP service",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "path to lottery.toml",
						EnvVars: []string{"LOTTERY_CONFIG"},
					},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	// 1. Load configuration
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	// 2. Initialize logging
	logFile := io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logFile = f
	}
	lg := logger.Init("lottery", cfg.Log.Verbose, false, logFile)
	defer lg.Close()
	policy := audit.DefaultPolicy
	policy.Info = cfg.Log.Info

	// 3. Set up the host ledger
	var (
		funds   lottery.FundTransfer
		options []services.ServiceOption
	)
	switch cfg.Ledger.Driver {
	case "sqlite":
		journal, err := ledger.NewSqliteJournal(cfg.Ledger.DSN)
		if err != nil {
			return err
		}
		defer journal.Close()
		funds = journal
	default:
		memory := ledger.NewMemory()
		funds = memory
		options = append(options, services.WithDeposits(memory))
	}
	custody, err := cfg.CustodyIdentity()
	if err != nil {
		return fmt.Errorf("custody: %w", err)
	}

	// 4. Build the lottery state and service
	state := lottery.NewState(
		lottery.WithAudit(audit.New(policy, audit.NewLoggerSink(lg))),
		lottery.WithFundTransfer(funds),
		lottery.WithCustody(custody),
		lottery.WithCooldowns(cfg.RateLimit.DefaultCooldown, cfg.RateLimit.AllowlistCooldown),
		lottery.WithMaxTicketsPerBuyer(cfg.Tickets.MaxPerBuyer),
	)
	lotteryService := services.NewLotteryService(state, clockwork.NewRealClock(), options...)
	if cfg.Lottery != nil {
		lc, err := cfg.Lottery.LotteryConfig()
		if err != nil {
			return fmt.Errorf("lottery config: %w", err)
		}
		if err := lotteryService.Initialize(lc); err != nil {
			return err
		}
	}

	// 5. Set up the Gin router
	httpHandler := handlers.NewHTTPHandler(lotteryService)
	r := gin.Default()
	httpHandler.RegisterPublicRoutes(r)
	callerRoutes := r.Group("/")
	callerRoutes.Use(httpHandler.CallerMiddleware())
	httpHandler.RegisterCallerRoutes(callerRoutes)

	// 6. Run the server
	logger.Infof("Server starting on %s", cfg.Server.Address)
	if err := r.Run(cfg.Server.Address); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
