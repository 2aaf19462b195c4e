package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/config"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/database"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/preview"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/realtime"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/rooms"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uibuilder-api",
		Short: "Collaborative UI builder canvas backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newServeCommand(), newLayoutCommand(), newPreviewCommand(), newRoomsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Postgres DSN")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("buffer-size", defaults.GetInt("realtime.buffer_size"), "Per-subscriber event buffer")
	cmd.PersistentFlags().String("redis-addr", defaults.GetString("relay.redis_addr"), "Redis address for the cross-instance relay")
	cmd.PersistentFlags().String("channel-prefix", defaults.GetString("relay.channel_prefix"), "Redis channel prefix for room relays")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "realtime.buffer_size", "buffer-size")
	bindFlag(cmd, "relay.redis_addr", "redis-addr")
	bindFlag(cmd, "relay.channel_prefix", "channel-prefix")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func openStore(appConfig config.AppConfig, logger *zap.Logger) (*gorm.DB, *rooms.Service, error) {
	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	roomService, err := rooms.NewService(rooms.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, roomService, nil
}

func newRelay(appConfig config.AppConfig, ids canvas.IDProvider, logger *zap.Logger) (*realtime.RedisRelay, func(), error) {
	if !appConfig.RelayEnabled() {
		return nil, func() {}, nil
	}
	origin, err := ids.NewID()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
	relay, err := realtime.NewRedisRelay(realtime.RedisRelayConfig{
		Client:        client,
		ChannelPrefix: appConfig.RelayChannelPrefix,
		Origin:        origin,
		Logger:        logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return relay, func() { _ = client.Close() }, nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, roomService, err := openStore(appConfig, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ids := canvas.NewUUIDProvider()
	relay, closeRelay, err := newRelay(appConfig, ids, logger)
	if err != nil {
		return err
	}
	defer closeRelay()

	hubConfig := realtime.HubConfig{
		IDProvider: ids,
		Store:      roomService,
		Logger:     logger,
		BufferSize: appConfig.RealtimeBufferSize,
	}
	if relay != nil {
		hubConfig.Relay = relay
	}
	hub, err := realtime.NewHub(hubConfig)
	if err != nil {
		return err
	}
	defer hub.Close()

	renderer, err := preview.NewRenderer(preview.Config{Scale: appConfig.PreviewScale})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Hub:            hub,
		Renderer:       renderer,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.Run(signalCtx); err != nil {
			logger.Error("room relay stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.Bool("relay", appConfig.RelayEnabled()))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
