package main

import (
	"os"

	"jobportal/internal/config"
	"jobportal/internal/jobsapi"
	"jobportal/internal/logger"

	"github.com/spf13/cobra"
)

// app is what every subcommand shares once the config is loaded.
type app struct {
	dataDir string
	backend string

	cfgPath string
	cfg     config.Config
}

func (a *app) load() error {
	path, err := config.EnsureUserConfig(a.dataDir)
	if err != nil {
		return err
	}
	a.cfgPath = path
	cfg, vr, err := a.read()
	if err != nil {
		return err
	}
	if !vr.OK() {
		return config.Validate(cfg)
	}

	a.cfg = cfg
	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	l := logger.Get()
	for _, w := range vr.Warnings {
		l.Warn().Str("config", path).Msg(w)
	}
	return nil
}

// read loads config.yml with the --backend override applied on top.
func (a *app) read() (config.Config, config.Validation, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return cfg, config.Validation{}, err
	}
	if a.backend != "" {
		cfg.Backend.BaseURL = a.backend
	}
	cfg, vr := config.NormalizeAndValidate(cfg)
	return cfg, vr, nil
}

func newClient(cfg config.Config) (*jobsapi.Client, error) {
	return jobsapi.New(jobsapi.Options{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.BackendTimeout(),
		Limiter: jobsapi.NewHostLimiter(cfg.Backend.RateLimitPerSec, cfg.Backend.Burst),
	})
}

func (a *app) client() (*jobsapi.Client, error) {
	return newClient(a.cfg)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "portal",
		Short:        "A small job listing portal in front of a /api/jobs backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", config.DataDir(), "directory holding config.yml (env PORTAL_DATA_DIR)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "backend base URL, overrides backend.base_url")

	root.AddCommand(serveCmd(a))
	root.AddCommand(jobsCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
