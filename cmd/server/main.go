package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"voxeledit.ai/internal/config"
	"voxeledit.ai/internal/editor"
	"voxeledit.ai/internal/logger"
	"voxeledit.ai/internal/octree"
	persistlog "voxeledit.ai/internal/persistence/log"
	"voxeledit.ai/internal/persistence/store"
	"voxeledit.ai/internal/transport/httpapi"
	"voxeledit.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to voxeledit.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		levels     = flag.Int("levels", 0, "octree depth (overrides config)")
		scene      = flag.String("scene", "", "scene to load or create at startup (overrides config)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	applyFlags(&cfg, *addr, *dataDir, *levels, *scene, *debug)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, closeLog := logger.Stdout(cfg.Logging.Level, cfg.Logging.FileConfig())
	defer func() { _ = closeLog() }()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	st, err := store.Open(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		log.Fatal("open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer st.Close()

	var journal editor.Journal
	if cfg.Journal.Enabled {
		j := persistlog.NewJournal(cfg.DataDir)
		defer j.Close()
		journal = j
	}

	ed, err := editor.New(editor.Config{
		Levels:        cfg.Levels,
		SceneName:     cfg.DefaultScene,
		Store:         st,
		Journal:       journal,
		Logger:        log.Named("editor"),
		AutosaveEvery: cfg.Autosave,
	})
	if err != nil {
		log.Fatal("create editor", zap.Error(err))
	}

	ctx, cancel := signalContext()
	defer cancel()

	editorDone := make(chan struct{})
	go func() {
		defer close(editorDone)
		if err := ed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("editor stopped", zap.Error(err))
		}
	}()

	if cfg.DefaultScene != "" {
		openScene(ctx, log, ed, cfg.DefaultScene)
	}

	mux := http.NewServeMux()
	apiOpts := httpapi.Options{LoopbackWrites: loopbackWrites()}
	if cfg.Archive.Enabled {
		apiOpts.ArchiveDir = cfg.DataDir
	}
	httpapi.NewHandler(st, apiOpts, log.Named("http")).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/ws", ws.NewServer(ed, ws.Config{
		MaxQueue:     cfg.WS.MaxQueue,
		WriteTimeout: cfg.WS.WriteTimeout,
		ReadLimit:    cfg.WS.ReadLimit,
	}, log.Named("ws")).Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.Info("listening",
		zap.String("addr", cfg.Listen),
		zap.Int("levels", cfg.Levels),
		zap.String("store", cfg.Store.Backend),
		zap.String("scene", cfg.DefaultScene),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("ListenAndServe", zap.Error(err))
		cancel()
	}
	<-editorDone
}

func applyFlags(cfg *config.Config, addr, dataDir string, levels int, scene string, debug bool) {
	if addr != "" {
		cfg.Listen = addr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if levels > 0 {
		cfg.Levels = levels
	}
	if scene != "" {
		cfg.DefaultScene = scene
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
}

// openScene loads name if it was saved before; otherwise the editor keeps
// the empty scene it was created with.
func openScene(ctx context.Context, log *zap.Logger, ed *editor.Editor, name string) {
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := ed.Load(ctx2, name, octree.Vec3{})
	switch {
	case err == nil:
		log.Info("scene opened", zap.String("scene", name), zap.Int("nodes", n))
	case editor.IsNotFound(err):
		log.Info("starting new scene", zap.String("scene", name))
	default:
		log.Fatal("open scene", zap.String("scene", name), zap.Error(err))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func loopbackWrites() bool {
	switch os.Getenv("VOXELEDIT_OPEN_WRITES") {
	case "1", "true":
		return false
	default:
		return true
	}
}
