package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/api"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/document"
	"hostel-allocation-backend/internal/dues"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

var logger = log.New(os.Stdout, "hostel-backend ", log.LstdFlags)

func main() {
	log.SetOutput(os.Stdout)
	log.SetPrefix("hostel-backend ")

	if err := newRootCmd().Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hosteld",
		Short:         "Hostel room allocation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML configuration file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, notification workers and dues scheduler",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, _, err := openDB(configPath)
				if err == nil {
					logger.Println("database schema is up to date")
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "allocate",
			Short: "Run one bulk allocation pass and print the report",
			RunE: func(cmd *cobra.Command, args []string) error {
				return allocateOnce(cmd.Context(), configPath)
			},
		},
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml" // Default path for local development
}

func openDB(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")
	return cfg, gormDB, nil
}

func allocateOnce(ctx context.Context, configPath string) error {
	cfg, gormDB, err := openDB(configPath)
	if err != nil {
		return err
	}

	svc := allocation.NewService(store.NewGormStore(gormDB), nil, nil, metrics.New(), cfg.Allocation)
	report, err := svc.AllocateUnallocatedBulk(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func serve(configPath string) error {
	cfg, gormDB, err := openDB(configPath)
	if err != nil {
		return err
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	var mailer notification.Mailer
	if cfg.Mail.Enabled {
		mailer = notification.NewSMTPMailer(cfg.Mail)
	} else {
		logger.Println("mail is disabled; notifications will not be emailed")
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	m := metrics.New()

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, mailer, webpushOptions, m)
	workerPool.Start(ctx)

	svc := allocation.NewService(appStore, workerPool, document.NewRenderer(), m, cfg.Allocation)

	duesSvc := dues.NewService(cfg.Dues, appStore, workerPool, m)
	go duesSvc.Run(ctx)

	router := api.NewRouter(cfg, svc, appStore, webpushOptions, m)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-errCh:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}

	if err := stopServing(server, cancel, 5*time.Second); err != nil {
		return err
	}

	logger.Println("Server gracefully stopped")
	return nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// stopServing drains in-flight requests, then cancels the worker pool and the
// dues loop. Workers stop only after the last handler has queued its work.
func stopServing(server shutdowner, cancel context.CancelFunc, timeout time.Duration) error {
	defer cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	return nil
}
