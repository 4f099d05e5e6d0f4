package main

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tiller"
	"pkt.systems/tiller/core"
	"pkt.systems/tiller/httpapi"
	"pkt.systems/tiller/internal/appconfig"
	"pkt.systems/tiller/internal/surface"
	"pkt.systems/tiller/internal/upstream"
	"pkt.systems/tiller/schema"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tiller server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}

			provider, err := upstream.NewClient(cfg.Upstream, logger)
			if err != nil {
				return err
			}

			var pageSurface core.Surface
			if noBrowser {
				logger.Warn("browser disabled; page actions will fail until restarted with a browser")
			} else {
				browser, err := surface.NewBrowser(cfg.Browser, logger)
				if err != nil {
					return err
				}
				defer func() { _ = browser.Close() }()
				pageSurface = browser
			}

			srv, err := tiller.New(tiller.ServerConfig{
				Service: schema.ServiceConfig{
					StateDir:            cfg.StateDir,
					TranscriptMaxLines:  cfg.Service.TranscriptMaxLines,
					DefaultSafety:       schema.SafetyTier(cfg.Service.DefaultSafety),
					DisableAuditLogging: cfg.Logging.DisableAuditTrails,
				},
				HTTP: httpapi.Config{
					Addr:                   cfg.HTTP.Addr,
					SessionCookie:          cfg.HTTP.SessionCookie,
					SessionTTLHours:        cfg.HTTP.SessionTTLHours,
					SessionFile:            filepath.Join(cfg.StateDir, "http-sessions.json"),
					InitialTranscriptLines: cfg.HTTP.InitialTranscriptLines,
					UIMaxTranscriptLines:   cfg.HTTP.UIMaxTranscriptLines,
				},
				Auth: tiller.AuthConfig{
					UserFile:  cfg.Auth.UserFile,
					SeedUsers: seedUsersFromConfig(cfg.Auth.SeedUsers),
				},
			}, tiller.ServerDeps{
				ServiceDeps: core.ServiceDeps{
					StreamProvider: provider,
					Surface:        pageSurface,
					Logger:         logger,
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(ctx); err != nil {
				return err
			}
			return srv.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for decisions")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "run without a browser surface")
	return cmd
}

func seedUsersFromConfig(seeds []appconfig.SeedUser) []tiller.SeedUser {
	if len(seeds) == 0 {
		return nil
	}
	out := make([]tiller.SeedUser, 0, len(seeds))
	for _, seed := range seeds {
		out = append(out, tiller.SeedUser{
			Username:     seed.Username,
			PasswordHash: seed.PasswordHash,
			TOTPSecret:   seed.TOTPSecret,
		})
	}
	return out
}

func newConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the tiller config file",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			written, err := appconfig.WriteDefault(path, force)
			if err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", written)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}
