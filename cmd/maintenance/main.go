// Command maintenance runs one-off operational tasks against the mystery box stores.
//
// Usage:
//
//	maintenance [-config path] [-yes] <command>
//
// Commands:
//
//	migrate            apply pending schema migrations
//	version            print the current schema version
//	list-prize-types   print the prize types persisted so far
//	reset-claims       delete every prize claim (requires -yes)
//	queue-depth        print notification outbox sizes
//	replay-dlq         move dead-lettered notifications back to pending
//	purge-queue        drop every queued notification (requires -yes)
//	daily-summary      enqueue the daily summary now
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aimd54/mystery-box/internal/catalog"
	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/allocation"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/internal/service/scheduler"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// env holds lazily opened backends so each command only touches what it needs.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *repository.DB
	queue *notify.Queue
	close []func()
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	confirmed := flag.Bool("yes", false, "Confirm destructive commands")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] [-yes] <command>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, log: logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)}
	err = e.run(ctx, flag.Arg(0), *confirmed)
	e.shutdown()
	if err != nil {
		e.log.Error().Err(err).Str("command", flag.Arg(0)).Msg("Maintenance command failed")
		os.Exit(1)
	}
}

func (e *env) run(ctx context.Context, command string, confirmed bool) error {
	switch command {
	case "migrate":
		db, err := e.database()
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			return err
		}
		e.log.Info().Msg("Migrations applied")
		return nil

	case "version":
		db, err := e.database()
		if err != nil {
			return err
		}
		version, dirty, err := db.MigrationVersion()
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"version": version, "dirty": dirty})

	case "list-prize-types":
		db, err := e.database()
		if err != nil {
			return err
		}
		prizeTypes, err := repository.NewPrizeTypeRepository(db).List()
		if err != nil {
			return err
		}
		return printJSON(prizeTypes)

	case "reset-claims":
		if !confirmed {
			return fmt.Errorf("reset-claims deletes every prize claim; rerun with -yes")
		}
		svc, err := e.claimService()
		if err != nil {
			return err
		}
		deleted, err := svc.PurgeAll()
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"deleted": deleted})

	case "queue-depth":
		queue, err := e.outbox(ctx)
		if err != nil {
			return err
		}
		depth, err := queue.Depth(ctx)
		if err != nil {
			return err
		}
		return printJSON(depth)

	case "replay-dlq":
		queue, err := e.outbox(ctx)
		if err != nil {
			return err
		}
		replayed, err := queue.ReplayDeadLetters(ctx)
		if err != nil {
			return err
		}
		e.log.Info().Int("replayed", replayed).Msg("Dead letters replayed")
		return nil

	case "purge-queue":
		if !confirmed {
			return fmt.Errorf("purge-queue drops every queued notification; rerun with -yes")
		}
		queue, err := e.outbox(ctx)
		if err != nil {
			return err
		}
		if err := queue.Purge(ctx); err != nil {
			return err
		}
		e.log.Warn().Msg("Notification queue purged")
		return nil

	case "daily-summary":
		svc, err := e.claimService()
		if err != nil {
			return err
		}
		queue, err := e.outbox(ctx)
		if err != nil {
			return err
		}
		// Start validates the timezone and loads it; the cron itself is not needed.
		sched := scheduler.NewService(&e.cfg.Scheduler, svc, queue, nil, e.log.Component("scheduler"))
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		return sched.RunDailySummary(ctx)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (e *env) database() (*repository.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := repository.NewDB(&e.cfg.Database.Postgres, e.log)
	if err != nil {
		return nil, err
	}
	e.db = db
	e.close = append(e.close, func() { _ = db.Close() })
	return db, nil
}

func (e *env) outbox(ctx context.Context) (*notify.Queue, error) {
	if e.queue != nil {
		return e.queue, nil
	}
	client, err := notify.NewRedisClient(ctx, e.cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	e.queue = notify.NewQueue(client, e.cfg.Notifications.QueueKey)
	e.close = append(e.close, func() { _ = client.Close() })
	return e.queue, nil
}

func (e *env) claimService() (*claims.Service, error) {
	db, err := e.database()
	if err != nil {
		return nil, err
	}
	prizes, err := catalog.Load(e.cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	engine := allocation.NewEngine(prizes, e.cfg.Allocation.WeightConstant, repository.NewPrizeTypeRepository(db))

	// Maintenance operations never announce, so no outbox connection is opened here.
	return claims.NewService(
		repository.NewClaimRepository(db),
		repository.NewUserRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewNotificationRepository(db),
		engine,
		discardNotifier{},
		e.log.Component("claims"),
	), nil
}

func (e *env) shutdown() {
	for i := len(e.close) - 1; i >= 0; i-- {
		e.close[i]()
	}
}

type discardNotifier struct{}

func (discardNotifier) Enqueue(context.Context, notify.Message) error { return nil }

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
