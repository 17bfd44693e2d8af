package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/CyNexa/InSOC/internal/config"
	"github.com/CyNexa/InSOC/internal/runtime"
	httpserver "github.com/CyNexa/InSOC/internal/server/http"
	"github.com/CyNexa/InSOC/internal/services/actions"
	"github.com/CyNexa/InSOC/internal/services/feed"
	"github.com/CyNexa/InSOC/internal/services/hub"
	"github.com/CyNexa/InSOC/internal/services/ingest"
	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
	"github.com/CyNexa/InSOC/internal/sweeper"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the HTTP server and the retention sweeper and blocks until
// ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers
	// without signal awareness still shut down cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	logCfg := &logpkg.Config{
		Level:  getenvDefault("INSOC_LOG_LEVEL", "info"),
		Format: getenvDefault("INSOC_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	cfg := opts.Config
	procLogger.Info("Starting InSOC server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
		logpkg.Int("sub_buf", cfg.SubscriberBuf),
		logpkg.Dur("retention", cfg.RetentionHorizon()),
	)

	log, err := rt.OpenEventLog()
	if err != nil {
		return err
	}
	h := hub.New(procLogger, cfg.SubscriberBuf)
	ing := ingest.New(log, h, procLogger)
	trail := rt.OpenAuditTrail()
	exec := &actions.CommandExecutor{Command: cfg.BlockCommand, Timeout: cfg.BlockTimeout()}
	hsrv := httpserver.New(httpserver.Deps{
		Runtime: rt,
		Log:     log,
		Ingest:  ing,
		Feed:    feed.New(log, h, procLogger),
		Actions: actions.New(trail, ing, exec, procLogger),
		Trail:   trail,
		Logger:  procLogger,
	})
	sw := sweeper.New(log, cfg.RetentionHorizon(), cfg.SweepInterval(), procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Run(sctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut the server down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}
