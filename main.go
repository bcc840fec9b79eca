package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/clinic-booking/cache"
	"github.com/meinhoongagan/clinic-booking/config"
	"github.com/meinhoongagan/clinic-booking/controllers"
	"github.com/meinhoongagan/clinic-booking/cron"
	"github.com/meinhoongagan/clinic-booking/db"
	"github.com/meinhoongagan/clinic-booking/logger"
	"github.com/meinhoongagan/clinic-booking/metrics"
	"github.com/meinhoongagan/clinic-booking/notify"
	"github.com/meinhoongagan/clinic-booking/routes"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-booking",
		Short: "Clinic appointment slots and bookings",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, warnings, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return runServer(cfg, log)
		},
	}
}

func runServer(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DatabaseURL, cfg.IsDev())
	if err != nil {
		return err
	}
	store := db.NewStore(gdb)
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	checks := map[string]routes.HealthCheck{"postgres": sqlDB.PingContext}

	var engineStore scheduling.Store = store
	var invalidator controllers.ScheduleInvalidator
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		scheduleCache := cache.NewScheduleCache(client, cfg.ScheduleCacheTTL)
		engineStore = cache.NewCachedStore(store, scheduleCache, log)
		invalidator = scheduleCache
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		log.Warn().Msg("REDIS_ADDR not set, schedule cache disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	engine := scheduling.NewEngine(engineStore,
		scheduling.WithHoldTTL(cfg.PendingHoldTTL),
		scheduling.WithLogger(log),
		scheduling.WithMetrics(bookingMetrics),
	)

	var mailer notify.Mailer = notify.LogMailer{Log: log}
	if cfg.MailEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.EmailUser,
			Password: cfg.EmailPass,
		})
	}
	notifier := notify.NewNotifier(mailer, log, int(cfg.PendingHoldTTL/time.Minute))

	jobs := cron.New(store, notifier, cfg.Location(), log)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("start cron jobs: %w", err)
	}
	defer jobs.Stop()

	h := controllers.New(controllers.Deps{
		Store:     store,
		Engine:    engine,
		Cache:     invalidator,
		Notifier:  notifier,
		JWTSecret: cfg.JWTSecret,
		Location:  cfg.Location(),
		Log:       log,
	})
	app := routes.NewApp(h, routes.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.Origins(),
		Gatherer:    reg,
		Checks:      checks,
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and booking indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg.DatabaseURL, cfg.IsDev())
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	var clinicID, doctorID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the classified slot grid for one clinic day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg.DatabaseURL, false)
			if err != nil {
				return err
			}
			store := db.NewStore(gdb)
			ctx := cmd.Context()

			if doctorID == "" {
				clinic, err := store.GetClinic(ctx, clinicID)
				if err != nil {
					return err
				}
				doctorID = clinic.DoctorID
			}
			engine := scheduling.NewEngine(store, scheduling.WithHoldTTL(cfg.PendingHoldTTL), scheduling.WithLogger(log))
			day, err := engine.ListAvailableSlots(ctx, clinicID, doctorID, date)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(day)
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	cmd.Flags().StringVar(&doctorID, "doctor", "", "doctor id (defaults to the clinic's doctor)")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("clinic")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
