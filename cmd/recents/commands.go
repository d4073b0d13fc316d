package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"recents/internal/config"
	"recents/internal/locale"
	appLog "recents/internal/log"
	"recents/internal/recents"
	"recents/internal/timeconv"
	"recents/internal/web"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	zone        string
	displayZone string
	locale      string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "recents",
		Short:         "Recent calls with relative day/time labels",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "/etc/recents/config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&g.zone, "zone", "", "API reference timezone (overrides config)")
	root.PersistentFlags().StringVar(&g.displayZone, "display-zone", "", "Display timezone for day boundaries (overrides config)")
	root.PersistentFlags().StringVar(&g.locale, "locale", "", "BCP 47 locale for labels (overrides config)")

	root.AddCommand(
		newServeCmd(&g),
		newParseCmd(&g),
		newFormatCmd(&g),
		newLabelCmd(&g),
	)
	return root
}

// loadConfig reads the config file. With create set, a missing file is
// written with defaults (serve); otherwise defaults are used in memory.
func loadConfig(g *globalFlags, create bool) (*config.Config, error) {
	var cfg *config.Config
	if create {
		c, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		_, err := os.Stat(g.configPath)
		switch {
		case err == nil:
			c, err := config.Load(g.configPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		case errors.Is(err, fs.ErrNotExist):
			cfg = config.DefaultConfig()
		default:
			return nil, err
		}
	}

	if g.zone != "" {
		cfg.ReferenceTimezone = g.zone
	}
	if g.displayZone != "" {
		cfg.DisplayTimezone = g.displayZone
	}
	if g.locale != "" {
		cfg.Locale = g.locale
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// appRuntime bundles what the subcommands derive from config.
type appRuntime struct {
	cfg      *config.Config
	codec    timeconv.Codec
	locale   *locale.Locale
	calendar timeconv.Calendar
}

func newRuntime(cfg *config.Config) (*appRuntime, error) {
	ref, err := cfg.ReferenceLocation()
	if err != nil {
		return nil, err
	}
	disp, err := cfg.DisplayLocation()
	if err != nil {
		return nil, err
	}
	l, err := locale.New(cfg.Locale, locale.Options{
		DateLayout: cfg.ShortDateLayout,
		TimeLayout: cfg.ShortTimeLayout,
	})
	if err != nil {
		return nil, err
	}
	return &appRuntime{
		cfg:      cfg,
		codec:    timeconv.NewCodec(ref),
		locale:   l,
		calendar: timeconv.Calendar{Location: disp, Locale: l},
	}, nil
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string
	var once bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Refresh recent calls on a schedule and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, true)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}

			appLog.Info("effective config",
				"version", version,
				"listen", cfg.Listen,
				"reference_timezone", cfg.ReferenceTimezone,
				"display_timezone", cfg.DisplayTimezone,
				"locale", rt.locale.Tag.String(),
				"refresh", cfg.RefreshCron,
				"backfill_days", cfg.BackfillDays,
				"once", once,
			)

			svc := recents.NewService(recents.ServiceConfig{
				Source: recents.NewFetcher(recents.FetcherConfig{
					BaseURL:  cfg.API.BaseURL,
					Username: cfg.API.Username,
					Password: cfg.API.Password,
					Codec:    rt.codec,
					CacheDir: cfg.CacheDir,
				}),
				Codec:        rt.codec,
				Calendar:     rt.calendar,
				Texts:        rt.locale,
				BackfillDays: cfg.BackfillDays,
				Limit:        cfg.API.Limit,
			})

			ctx := cmd.Context()
			if once {
				if err := svc.Refresh(ctx); err != nil {
					return err
				}
				for _, r := range svc.Rows() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-16s %s\n", r.Label, r.Caption, r.Party)
				}
				return nil
			}

			// Initial refresh; failures are logged and retried by cron.
			_ = svc.Refresh(ctx)

			sched := cron.New(cron.WithLocation(rt.calendar.Location))
			if _, err := sched.AddFunc(cfg.RefreshCron, func() {
				_ = svc.Refresh(ctx)
			}); err != nil {
				return fmt.Errorf("refresh schedule: %w", err)
			}
			sched.Start()
			defer func() {
				<-sched.Stop().Done()
				appLog.Info("recents exiting")
			}()

			return web.NewServer(cfg, svc).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&once, "once", false, "Run one refresh, print the list and exit")
	return cmd
}

func newParseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <api-timestamp>",
		Short: "Decode an API timestamp (yyyy-M-d'T'H:m:s) to RFC 3339",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, false)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			t, err := rt.codec.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			return nil
		},
	}
}

func newFormatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "format <rfc3339>",
		Short: "Encode an RFC 3339 instant as an API timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, false)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rt.codec.Format(t))
			return nil
		},
	}
}

func newLabelCmd(g *globalFlags) *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:   "label <api-timestamp>",
		Short: "Print the recents label (time, yesterday or date) for an API timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, false)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			t, err := rt.codec.Parse(args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			if nowFlag != "" {
				now, err = time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), timeconv.RelativeLabel(t, now, rt.calendar))
			return nil
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Reference instant in RFC 3339 (default: current time)")
	return cmd
}
