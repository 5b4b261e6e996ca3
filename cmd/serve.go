package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/logging"
	"github.com/kenobeee/mettta-space/internal/meeting"
	"github.com/kenobeee/mettta-space/internal/server"
	"github.com/kenobeee/mettta-space/internal/signaling"
	"github.com/kenobeee/mettta-space/internal/store"
)

const shutdownTimeout = 5 * time.Second

var (
	flagAddr          string
	flagDataDir       string
	flagStorage       string
	flagRedisURL      string
	flagTimezone      string
	flagClientLogFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session coordinator",
	Long: `Run the websocket session coordinator.

Examples:
  mira serve
  mira serve --addr :8080 --data-dir /var/lib/mira
  mira serve --storage redis --redis-url redis://localhost:6379/0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{
			Addr:          flagAddr,
			DataDir:       flagDataDir,
			Storage:       flagStorage,
			RedisURL:      flagRedisURL,
			Timezone:      flagTimezone,
			ClientLogFile: flagClientLogFile,
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :3001)")
	serveCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "directory for the file store")
	serveCmd.Flags().StringVar(&flagStorage, "storage", "", "storage backend: file or redis")
	serveCmd.Flags().StringVar(&flagRedisURL, "redis-url", "", "redis URL for the redis store")
	serveCmd.Flags().StringVar(&flagTimezone, "timezone", "", "IANA zone deciding which meetings are today")
	serveCmd.Flags().StringVar(&flagClientLogFile, "client-log-file", "", "append client-submitted logs to this file")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Init(cfg.LogLevel)

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	state := store.LoadState(ctx, st, logger)

	clientLogger, closer, err := logging.NewClientLogger(cfg.ClientLogFile, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	hub := signaling.NewHub(signaling.Options{
		Lobbies:      cfg.Lobbies,
		Channels:     cfg.Channels,
		Schedule:     meeting.NewSchedule(state.Meetings, st),
		Accounts:     account.NewDirectory(state.Users, st),
		Heartbeat:    cfg.HeartbeatInterval,
		Location:     cfg.Location,
		Logger:       logger,
		ClientLogger: clientLogger,
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting coordinator", "addr", cfg.Addr, "storage", cfg.Storage,
			"meetings", len(state.Meetings), "users", len(state.Users))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stopHub()
		<-hubDone
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// the hub goes first so open sockets get a close frame
	stopHub()
	<-hubDone
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
