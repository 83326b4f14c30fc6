package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/engine"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// app holds the components every command builds Runners from.
type app struct {
	cfg     *config.Config
	prefs   prefs.Store
	history *history.Store
	opts    scan.Options
	engine  []engine.ZXingOption
	host    detect.HostDetector
}

// newApp opens the preference store, loads the history and prepares the
// engine options described by cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := prefs.Open(ctx, cfg.ToPrefsOptions())
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	a := &app{cfg: cfg, prefs: store}

	hopts, err := cfg.ToHistoryOptions()
	if err != nil {
		a.close()
		return nil, err
	}
	a.history = history.New(store, hopts)
	if _, err := a.history.Load(ctx); err != nil {
		slog.Warn("Failed to load history", "error", err)
	}

	if a.opts, err = cfg.ToScanOptions(); err != nil {
		a.close()
		return nil, err
	}
	if a.engine, err = cfg.EngineOptions(); err != nil {
		a.close()
		return nil, err
	}
	if cfg.Detector.Native {
		formats, err := barcode.ParseFormats(cfg.Detector.Formats)
		if err != nil {
			a.close()
			return nil, err
		}
		a.host = barcode.NewHostDetector(formats, cfg.Detector.TryHarder)
	}
	return a, nil
}

// factory returns a scan.Factory building Runners with opts that share the
// history list.
func (a *app) factory(ctx context.Context, opts scan.Options) scan.Factory {
	return func() (*scan.Runner, error) {
		s := detect.NewScanner(ctx, detect.ScannerConfig{
			Loader:    detect.ZXingLoader(a.cfg.HeapLimit(), a.engine...),
			Host:      a.host,
			Weighting: a.cfg.Weighting(),
		})
		return scan.NewRunner(s, a.history, scan.NewNotifier(scan.DefaultRevert), opts), nil
	}
}

// runner builds one ready Runner with the configured options.
func (a *app) runner(ctx context.Context) (*scan.Runner, error) {
	r, err := a.factory(ctx, a.opts)()
	if err != nil {
		return nil, err
	}
	if err := r.Ready(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("load engine: %w", err)
	}
	return r, nil
}

// pool builds size ready Runners with the configured options.
func (a *app) pool(ctx context.Context, size int) (*scan.Pool, error) {
	p, err := scan.NewPool(size, a.factory(ctx, a.opts))
	if err != nil {
		return nil, err
	}
	if err := p.Ready(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("load engine: %w", err)
	}
	return p, nil
}

func (a *app) close() {
	closeStore(a.prefs)
}
