package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"gridcal/internal/agenda"
	"gridcal/internal/capture"
	"gridcal/internal/config"
	"gridcal/internal/grid"
	"gridcal/internal/ics"
	appLog "gridcal/internal/log"
	"gridcal/internal/nav"
	"gridcal/internal/seed"
	"gridcal/internal/store"
	"gridcal/internal/termview"
	"gridcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	date       string
	view       string
	print      bool
	snapshot   bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := config.ApplyEnv(conf); err != nil {
		appLog.Error("failed to apply environment overrides", err)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"hours", fmt.Sprintf("%d-%d", conf.FirstHour, conf.LastHour),
		"assistant_delay", conf.AssistantDelay,
		"agenda_cron", conf.AgendaCron,
		"import_count", len(conf.Imports),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := loadStore(ctx, conf, time.Now().In(loc))
	if err != nil {
		appLog.Error("failed to build event store", err)
		os.Exit(1)
	}

	state := nav.FromQuery(url.Values{"date": {flags.date}, "view": {flags.view}}, time.Now(), loc)

	switch {
	case flags.print:
		opts := grid.Options{
			WeekStart:   conf.WeekStartDay(),
			FirstHour:   conf.FirstHour,
			LastHour:    conf.LastHour,
			SortByStart: conf.SortByStart,
		}
		termview.Render(color.Output, state, st.List(), time.Now().In(loc), opts)
		return
	case flags.snapshot:
		if err := snapshot(ctx, conf, st, state); err != nil {
			appLog.Error("snapshot failed", err)
			os.Exit(1)
		}
		return
	}

	if conf.AgendaCron != "" {
		sched, err := agenda.New(conf.AgendaCron, loc, st, nil)
		if err != nil {
			appLog.Error("agenda scheduler disabled", err)
		} else {
			sched.Start()
			defer sched.Stop()
		}
	}

	srv := web.NewServer(conf, st, web.Options{Location: loc})
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("gridcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.date, "date", "", "Reference date YYYY-MM-DD for -print and -snapshot (default today)")
	flag.StringVar(&cfg.view, "view", "month", "View for -print and -snapshot: month, week or day")
	flag.BoolVar(&cfg.print, "print", false, "Print the calendar to the terminal and exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Capture a PNG of the calendar page to snapshot_path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// loadStore seeds the sample events and merges the configured ICS imports.
// A failing import is logged and does not prevent startup.
func loadStore(ctx context.Context, conf *config.Config, now time.Time) (*store.Store, error) {
	var st *store.Store
	var err error
	if conf.DisableSeed {
		st, err = store.New()
	} else {
		st, err = store.New(seed.Events(now)...)
	}
	if err != nil {
		return nil, err
	}

	sources := make([]ics.Source, 0, len(conf.Imports))
	for _, imp := range conf.Imports {
		if imp.URL == "" {
			continue
		}
		id := imp.ID
		if id == "" {
			id = imp.Name
		}
		sources = append(sources, ics.Source{ID: id, URL: imp.URL})
	}
	if len(sources) == 0 {
		return st, nil
	}

	fetcher := ics.NewFetcher(conf.ICSCacheDir, nil)
	events, errs := fetcher.Import(ctx, sources)
	if len(errs) > 0 {
		appLog.Error("one or more ICS imports failed", errors.Join(errs...), "error_count", len(errs))
	}
	for _, ev := range events {
		if _, err := st.Upsert(ev); err != nil {
			appLog.Warn("imported event skipped", "id", ev.ID, "reason", err)
		}
	}
	appLog.Info("ics imports loaded", "event_count", len(events), "store_size", st.Len())
	return st, nil
}

// snapshot serves the calendar on conf.Listen just long enough to capture it.
func snapshot(ctx context.Context, conf *config.Config, st *store.Store, state nav.State) error {
	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := web.NewServer(conf, st, web.Options{})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	base := &url.URL{Scheme: "http", Host: conf.Listen}
	if err := waitHealthy(ctx, base.String()+"/health"); err != nil {
		return err
	}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		base.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
	}

	target := base.String() + state.URL("/")
	appLog.Info("capturing calendar", "view", state.View, "date", state.Date.Format(nav.DateLayout), "output", conf.SnapshotPath)
	if err := capture.PNG(ctx, capture.Options{URL: target, OutputPath: conf.SnapshotPath}); err != nil {
		return err
	}
	appLog.Info("snapshot written", "path", conf.SnapshotPath)

	cancel()
	return <-errCh
}

func waitHealthy(ctx context.Context, healthURL string) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("server at %s did not become healthy", healthURL)
}
