package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/followgc/followgc/internal/config"
	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/insights"
	"github.com/followgc/followgc/internal/notify"
	"github.com/followgc/followgc/internal/store"
)

// httpClientTimeout bounds individual API requests so a hung connection
// cannot stall a CLI command forever.
const httpClientTimeout = 30 * time.Second

// errNoToken is returned by commands that talk to the API when no token
// is configured.
var errNoToken = errors.New("no GitHub token configured (set [github] token in the config file or FOLLOWGC_TOKEN)")

// Compile-time checks that the store satisfies the engine contracts.
var (
	_ engine.Ledger       = (*store.Store)(nil)
	_ engine.ListStore    = (*store.Store)(nil)
	_ engine.SettingStore = (*store.Store)(nil)
)

// app is the wired object graph behind every subcommand: config, store,
// API client, and engine components.
type app struct {
	cc    *CLIContext
	cfg   *config.Config
	store *store.Store

	// client and the components that need it are nil without a token;
	// commands that mutate or fetch call requireRemote first.
	client     *github.Client
	collector  *github.Collector
	reconciler *engine.Reconciler
	executor   *engine.Executor
	undoer     *engine.Undoer
	sweeper    *engine.Sweeper
	evaluator  *insights.Evaluator

	dryRun     *engine.DryRun
	exclusions *engine.Exclusions
}

// newApp opens the store and wires the engine. Local-only commands
// (history, lists, exclusions, dryrun) work without a token.
func newApp(ctx context.Context, cc *CLIContext) (*app, error) {
	cfg := cc.Cfg
	logger := cc.Logger

	st, err := store.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	dryRun, err := engine.LoadDryRun(ctx, st, cfg.Engine.DryRun)
	if err != nil {
		st.Close()
		return nil, err
	}

	// An explicit --dry-run beats the persisted setting for this
	// invocation only; it is not written back.
	if cc.Flags.DryRun != nil {
		dryRun.Set(*cc.Flags.DryRun)
	}

	a := &app{
		cc:         cc,
		cfg:        cfg,
		store:      st,
		dryRun:     dryRun,
		exclusions: engine.NewExclusions(st, cfg.Engine.ExclusionList, logger),
	}

	if cfg.GitHub.Token != "" {
		a.client = github.NewClient(cfg.GitHub.APIBaseURL,
			&http.Client{Timeout: httpClientTimeout},
			github.StaticToken(cfg.GitHub.Token), logger)
		a.collector = github.NewCollector(a.client, cfg.Engine.PageSize, cfg.Engine.MaxPages, logger)
		a.reconciler = engine.NewReconciler(a.collector, logger)
		a.executor = engine.NewExecutor(a.client, a.store, a.exclusions, dryRun, cfg.Engine.Workers, logger)
		a.undoer = engine.NewUndoer(a.executor, a.store,
			time.Duration(cfg.Engine.UndoWindowMinutes)*time.Minute, logger)
		a.sweeper = engine.NewSweeper(a.reconciler, a.executor, a.notifier(), logger)
		a.evaluator = insights.NewEvaluator(insights.NewEnricher(a.client, logger), logger)
	}

	return a, nil
}

// notifier returns the sweep mailer, or nil when mail is disabled.
func (a *app) notifier() engine.Notifier {
	if !a.cfg.Mail.Enabled {
		return nil
	}

	return notify.NewMailer(a.cfg.Mail.SMTPAddr, a.cfg.Mail.From, splitRecipients(a.cfg.Mail.To), a.cc.Logger)
}

// splitRecipients turns the comma-separated mail.to setting into a
// recipient list.
func splitRecipients(to string) []string {
	var out []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}

	return out
}

// requireRemote guards commands that need the API client.
func (a *app) requireRemote() error {
	if a.client == nil {
		return errNoToken
	}

	return nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.cc.Logger.Error("closing state database", "error", err)
	}
}

// withApp wraps a command body with app construction and teardown.
func withApp(ctx context.Context, cc *CLIContext, fn func(*app) error) error {
	a, err := newApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
