package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"jobportal/internal/config"
	"jobportal/internal/events"
	"jobportal/internal/httpapi"
	"jobportal/internal/instance"
	"jobportal/internal/logger"
	"jobportal/internal/scheduler"
	"jobportal/internal/state"
	"jobportal/internal/tracing"
	"jobportal/internal/validate"
	"jobportal/internal/view"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job portal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	return cmd
}

func serve(ctx context.Context, a *app) error {
	log := logger.Component("serve")
	cfg := a.cfg

	lock, err := instance.Acquire(a.dataDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer("jobportal", os.Stderr)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()
	}

	api, err := a.client()
	if err != nil {
		return err
	}

	hub := events.NewHub()
	defer hub.Close()
	store := state.New(api, hub)
	defer store.Close()

	renderer, err := view.NewRenderer(cfg.Display.SiteTitle)
	if err != nil {
		return err
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)
	var validator atomic.Pointer[validate.Validator]
	validator.Store(validate.New(cfg.Rules()))

	refresh := scheduler.NewLoop(ctx, "refresh jobs", store.FetchJobs)
	defer refresh.Stop()
	lv := &live{
		store:     store,
		renderer:  renderer,
		validator: &validator,
		refresh:   refresh,
	}
	lv.apply(cfg)

	mux := httpapi.NewMux(httpapi.Deps{
		Store:       store,
		Renderer:    renderer,
		Hub:         hub,
		CfgVal:      &cfgVal,
		Validator:   &validator,
		UserCfgPath: a.cfgPath,
		LoadCfg: func() (config.Config, error) {
			c, _, err := a.read()
			return c, err
		},
		OnConfig: func(c config.Config) {
			lv.apply(c)
			log.Info().Str("backend", c.Backend.BaseURL).Msg("config reloaded")
		},
	})
	mux.Handle("/metrics", promhttp.Handler())

	token, err := randomToken(32)
	if err != nil {
		return err
	}
	tokenPath := filepath.Join(a.dataDir, "portal.token")
	if err := os.WriteFile(tokenPath, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write shutdown token: %w", err)
	}
	defer os.Remove(tokenPath)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))

	// The list is fetched once at startup; a failure shows as the error banner.
	go func() {
		if err := store.FetchJobs(ctx); err != nil {
			log.Warn().Err(err).Msg("initial job fetch failed")
		}
	}()

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", "http://"+ln.Addr().String()).
			Str("backend", api.BaseURL()).
			Str("config", a.cfgPath).
			Str("lock", lock.Path()).
			Msg("portal listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		// stopped through /shutdown
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	hub.Close() // ends open event streams so Shutdown does not wait on them
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// live applies a reloaded config to the running server. app.host, app.port
// and tracing.enabled are rejected on reload and never reach it.
type live struct {
	store     *state.Store
	renderer  *view.Renderer
	validator *atomic.Pointer[validate.Validator]
	refresh   *scheduler.Loop
}

func (lv *live) apply(c config.Config) {
	log := logger.Component("serve")

	if api, err := newClient(c); err != nil {
		log.Error().Err(err).Msg("keeping previous backend client")
	} else {
		lv.store.SetBackend(api)
	}
	lv.renderer.SetSite(c.Display.SiteTitle)
	lv.validator.Store(validate.New(c.Rules()))
	lv.refresh.Reset(c.RefreshInterval())
	logger.Init(c.Logging.Level, c.Logging.Pretty)
}
