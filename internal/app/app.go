// Package app wires configuration, logging, the Airtable client, the
// Telegram sender, the reconciler, the scheduler, and the relay into one
// runnable unit.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"stampbot/internal/airtable"
	"stampbot/internal/config"
	"stampbot/internal/journal"
	"stampbot/internal/reconcile"
	"stampbot/internal/relay"
	"stampbot/internal/schedule"
	telegram "stampbot/internal/transport/telegram"
	"stampbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	sender *telegram.Sender
	cards  *airtable.CardTable
	store  *journal.Store
	rec    *reconcile.Reconciler
	sched  *schedule.Service
	relay  *relay.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string, secrets config.Secrets) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	sender, err := telegram.New(telegram.Config{
		Token:      secrets.BotToken,
		ChatID:     cfg.Telegram.ChatID,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	client, err := airtable.New(airtable.Config{
		APIKey:     secrets.AirtableAPIKey,
		BaseID:     cfg.Airtable.BaseID,
		RatePerSec: cfg.Airtable.RatePerSec,
		Timeout:    cfg.AirtableTimeout(),
	}, root.With(logx.String("comp", "airtable")))
	if err != nil {
		return nil, err
	}
	cards := airtable.NewCardTable(client, cfg.Airtable.Table)

	store, err := journal.Open(journal.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		BusyTimeout: cfg.JournalBusyTimeout(),
	}, root)
	if err != nil {
		return nil, err
	}

	deps := reconcile.Deps{
		Scan:   func() reconcile.Pager { return cards.ScanCards() },
		Commit: cards.MarkPosted,
		Sender: sender,
		Log:    root,
	}
	if store != nil {
		deps.Recorder = store
	}
	rec, err := reconcile.New(deps)
	if err != nil {
		return nil, err
	}

	sched := schedule.New(schedule.Config{
		Enabled:  cfg.Reconcile.Enabled,
		Cron:     cfg.Reconcile.Cron,
		Timezone: cfg.Reconcile.Timezone,
	}, root)

	addr := cfg.Relay.Addr
	if p := strings.TrimSpace(secrets.Port); p != "" {
		addr = ":" + p
	}
	rel := relay.New(relay.Config{
		Enabled: cfg.Relay.Enabled,
		Addr:    addr,
	}, sender, root)

	return &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		sender: sender,
		cards:  cards,
		store:  store,
		rec:    rec,
		sched:  sched,
		relay:  rel,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Reject bad hot-reloads before they are committed.
	a.cfgm.SetValidator(func(cfg *config.Config) error {
		if err := a.sched.ValidateSpec(cfg.Reconcile.Cron); err != nil {
			return err
		}
		if tz := strings.TrimSpace(cfg.Reconcile.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return err
			}
		}
		return nil
	})

	if err := a.relay.Start(runCtx); err != nil {
		cancel()
		return err
	}
	if err := a.sched.Start(runCtx, a.runCycle); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx, a.applyConfig); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("app started")
	return nil
}

func (a *App) runCycle(ctx context.Context) {
	if _, err := a.rec.TryRun(ctx); errors.Is(err, reconcile.ErrCycleRunning) {
		a.log.Warn("previous cycle still running, tick skipped")
	}
}

// applyConfig handles hot-reload. Logging and cadence apply live; the
// Telegram, Airtable, relay, and journal wiring is fixed at startup.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if err := a.sched.Apply(schedule.Config{
		Enabled:  cfg.Reconcile.Enabled,
		Cron:     cfg.Reconcile.Cron,
		Timezone: cfg.Reconcile.Timezone,
	}); err != nil {
		a.log.Warn("invalid schedule config, keeping previous", logx.Err(err))
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.log.Info("stopping")

	a.sched.Stop(ctx)
	if err := a.relay.Stop(ctx); err != nil {
		a.log.Warn("relay stop", logx.Err(err))
	}
	if err := a.sender.Close(ctx); err != nil {
		a.log.Warn("telegram close", logx.Err(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("journal close", logx.Err(err))
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("stop deadline reached before background loops exited")
	}

	a.log.Info("stopped")
	return a.logs.Close()
}
