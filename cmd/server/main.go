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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/term"

	"loanpredictor/internal/config"
	"loanpredictor/internal/handlers/loan"
	apphttp "loanpredictor/internal/http"
	"loanpredictor/internal/logger"
	"loanpredictor/internal/services/apiclient"
	"loanpredictor/internal/services/drafts"
	"loanpredictor/internal/services/flow"
	"loanpredictor/internal/services/metrics"
	"loanpredictor/internal/services/sessions"
	"loanpredictor/internal/services/storage"
	"loanpredictor/internal/templates"
	"loanpredictor/internal/version"
)

var (
	cfg        *config.Config
	appLog     logger.Logger
	renderer   *templates.Renderer
	client     *apiclient.Client
	store      *storage.Storage
	draftStore drafts.Store
	sessionMgr *sessions.Manager
	metricsSvc *metrics.Service
	limiter    *apphttp.RateLimiter
	closers    []func() error
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	unlock := flag.Bool("unlock", false, "Prompt for the draft encryption passphrase")
	decrypt := flag.Bool("decrypt", false, "Decrypt the draft directory in place and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}

	c, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	l := logger.NewStructured(c.Logging.Level, c.Logging.Format)
	defer l.Sync()

	info := version.Get()
	l.Info("Starting loan predictor", map[string]interface{}{
		"version":     info.Version,
		"environment": c.App.Environment,
		"listen":      c.Server.ListenAddr,
		"api":         c.APIBaseURL(),
	})
	if warning := info.Check(); warning != "" {
		l.Warn(warning, nil)
	}

	if *decrypt {
		pass := c.Drafts.Passphrase
		if pass == "" {
			if pass, err = promptPassphrase(); err != nil {
				l.WithError(err).Error("Could not read passphrase", nil)
				os.Exit(1)
			}
		}
		if err := decryptDrafts(c.Drafts.Directory, pass); err != nil {
			l.WithError(err).Error("Could not decrypt drafts", map[string]interface{}{"dir": c.Drafts.Directory})
			os.Exit(1)
		}
		l.Info("Draft storage decrypted", map[string]interface{}{"dir": c.Drafts.Directory})
		return
	}

	if *unlock {
		pass, err := promptPassphrase()
		if err != nil {
			l.WithError(err).Error("Could not read passphrase", nil)
			os.Exit(1)
		}
		c.Drafts.Passphrase = pass
	}

	if err := SetupDependencies(c, l); err != nil {
		l.WithError(err).Error("Failed to set up dependencies", nil)
		os.Exit(1)
	}
	defer Shutdown()

	server := &http.Server{
		Addr:         c.Server.ListenAddr,
		Handler:      SetupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: c.RequestTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		l.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		l.WithError(err).Error("Server failed", nil)
		return
	case <-quit:
		l.Info("Shutting down server", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.WithError(err).Error("Error during server shutdown", nil)
	}
	l.Info("Server exited", nil)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func promptPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Draft passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

// SetupDependencies builds the services the router needs. Calling it again
// releases the previous set first.
func SetupDependencies(c *config.Config, l logger.Logger) error {
	Shutdown()

	cfg = c
	appLog = l

	var err error
	renderer, err = templates.New(cfg.Paths.Templates, cfg.Server.Debug, appLog)
	if err != nil {
		appLog.WithError(err).Warn("Could not load templates", map[string]interface{}{"dir": cfg.Paths.Templates})
	}

	metricsSvc = metrics.New()
	client = apiclient.New(cfg.APIBaseURL(), cfg.RequestTimeout(),
		apiclient.WithLogger(appLog),
		apiclient.WithRecorder(metricsSvc),
	)

	draftStore, err = setupDrafts()
	if err != nil {
		return err
	}

	mgr := sessions.New(sessions.DefaultIdleTimeout, newController)
	closers = append(closers, func() error { mgr.Stop(); return nil })
	metricsSvc.TrackSessions(mgr.Count)
	sessionMgr = mgr

	limiter = nil
	if cfg.RateLimit.Capacity > 0 {
		rl := apphttp.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Window)
		closers = append(closers, func() error { rl.Stop(); return nil })
		limiter = rl
	}

	return nil
}

// newController builds the flow for one browser session
func newController(id string) *flow.Controller {
	hooks := []flow.Hook{
		flow.LogHook(appLog.WithFields(map[string]interface{}{"session": id})),
		metricsSvc.TransitionHook(),
	}
	if cfg.Features.AutoSave {
		hooks = append(hooks, drafts.SaveHook(draftStore, id, appLog))
	}
	return flow.NewController(flow.New(hooks...), client)
}

func setupDrafts() (drafts.Store, error) {
	if !cfg.Features.AutoSave {
		return drafts.NopStore{}, nil
	}

	switch cfg.Drafts.Backend {
	case config.DraftsRedis:
		rc := drafts.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		rs := drafts.NewRedisStore(rc, cfg.Drafts.TTL)
		closers = append(closers, rs.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			appLog.WithError(err).Warn("Redis unreachable, drafts will be retried per request", map[string]interface{}{
				"address": cfg.Redis.Address,
			})
		}
		return rs, nil

	case config.DraftsFile:
		var err error
		store, err = storage.New(cfg.Drafts.Directory)
		if err != nil {
			return nil, fmt.Errorf("draft storage: %w", err)
		}
		if err := setupEncryption(store, cfg.Drafts.Passphrase); err != nil {
			return nil, err
		}
		if store.IsEncrypted() {
			s := store
			closers = append(closers, func() error { s.Lock(); return nil })
		}
		if store.IsEncrypted() && !store.IsUnlocked() {
			appLog.Warn("Draft storage is encrypted and locked, autosave disabled", map[string]interface{}{
				"dir": cfg.Drafts.Directory,
			})
			return drafts.NopStore{}, nil
		}

		fs := drafts.NewFileStore(store, cfg.Drafts.TTL)
		if n, err := fs.Prune(context.Background()); err != nil {
			appLog.WithError(err).Warn("Draft prune failed", nil)
		} else if n > 0 {
			appLog.Info("Pruned expired drafts", map[string]interface{}{"count": n})
		}
		return fs, nil
	}

	return drafts.NopStore{}, nil
}

// setupEncryption unlocks an encrypted store, or encrypts a plain one when a
// passphrase is configured
func setupEncryption(s *storage.Storage, passphrase string) error {
	if passphrase == "" {
		return nil
	}
	if s.IsEncrypted() {
		if err := s.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlock draft storage: %w", err)
		}
		return nil
	}
	if err := s.EnableEncryption(passphrase); err != nil {
		return fmt.Errorf("encrypt draft storage: %w", err)
	}
	appLog.Info("Draft storage encrypted", map[string]interface{}{"dir": s.BaseDir()})
	return nil
}

// decryptDrafts turns an encrypted draft directory back into plain files.
// Unset drafts.passphrase in the config afterwards or the next start encrypts
// it again.
func decryptDrafts(dir, passphrase string) error {
	s, err := storage.New(dir)
	if err != nil {
		return fmt.Errorf("draft storage: %w", err)
	}
	if !s.IsEncrypted() {
		return fmt.Errorf("%s is not encrypted", dir)
	}
	return s.DisableEncryption(passphrase)
}

// Shutdown stops background workers and closes connections
func Shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && appLog != nil {
			appLog.WithError(err).Warn("Shutdown step failed", nil)
		}
	}
	closers = nil
}

// SetupRouter creates the chi router with all routes configured
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apphttp.RequestLogger(appLog))
	r.Use(apphttp.Metrics(metricsSvc))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	fileServer := http.FileServer(http.Dir(cfg.Paths.Static))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/api/health", handleHealth)
	r.Get("/api/version", handleVersion)
	r.Method(http.MethodGet, "/metrics", metricsSvc.Handler())

	h := loan.NewHandler(sessionMgr, draftStore, renderer, cfg, appLog)
	h.RegisterRoutes(r, limiter)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.JSONResponse(w, appLog, http.StatusOK, map[string]string{
		"status": "ok",
		"api":    client.BaseURL(),
	})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.JSONResponse(w, appLog, http.StatusOK, version.Get())
}
