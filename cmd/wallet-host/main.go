package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel/httpChannel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel/redisChannel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/config"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/host"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/logger"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	badgerJournal "github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence/badger"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence/memory"
	redisJournal "github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence/redis"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/signer/localSigner"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "wallet-host",
		Usage: "Reference wallet host for the webview bridge",
		Description: `Plays the application side of the webview wallet bridge.

The host:
- Receives bridge requests over HTTP (POST /bridge/messages) or Redis pub/sub
- Signs transactions and messages with a local ed25519 key
- Answers through the bridge callback URL or the inbound Redis channel
- Journals every request and how it was settled`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8700,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvHostPort},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Aliases: []string{"key"},
				Usage:   "Base58 ed25519 seed or keypair; a throwaway key is generated when empty",
				EnvVars: []string{config.EnvHostPrivateKey},
			},
			&cli.StringFlag{
				Name:    "key-file",
				Usage:   "Encrypted key file; loaded when present, otherwise created from the key in use",
				EnvVars: []string{config.EnvHostKeyFile},
			},
			&cli.StringFlag{
				Name:    "key-password",
				Usage:   "Password protecting the key file",
				EnvVars: []string{config.EnvHostKeyPassword},
			},
			&cli.StringFlag{
				Name:    "transport",
				Value:   string(config.TransportHTTP),
				Usage:   "Channel transport: http or redis",
				EnvVars: []string{config.EnvTransport},
			},
			&cli.StringFlag{
				Name:    "callback-url",
				Usage:   "Bridge result endpoint for the http transport",
				Value:   "http://localhost:8701" + config.PathBridgeResults,
				EnvVars: []string{config.EnvHostCallbackURL},
			},
			&cli.StringFlag{
				Name:    "redis-channel",
				Usage:   "Base name of the Redis pub/sub channel pair",
				Value:   "wallet-bridge",
				EnvVars: []string{config.EnvRedisChannelName},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address for the redis transport or journal",
				Value:   "localhost:6379",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Extra key prefix for the Redis journal",
				EnvVars: []string{config.EnvRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "journal",
				Usage:   "Request journal backend: memory, badger or redis",
				Value:   string(config.JournalTypeMemory),
				EnvVars: []string{config.EnvJournalType},
			},
			&cli.StringFlag{
				Name:    "journal-data-path",
				Usage:   "Data directory for the badger journal",
				Value:   "./data/journal",
				EnvVars: []string{config.EnvJournalDataPath},
			},
			&cli.Float64Flag{
				Name:    "sign-rate-limit",
				Usage:   "Maximum signatures per second (0 disables)",
				Value:   5,
				EnvVars: []string{config.EnvHostSignRateLimit},
			},
			&cli.BoolFlag{
				Name:    "auto-approve",
				Usage:   "Approve every signing request; when false all signing requests are declined",
				Value:   true,
				EnvVars: []string{config.EnvHostAutoApprove},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Action: runWalletHost,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runWalletHost(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	hostConfig := parseHostConfig(c)
	if err := hostConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := loadSigner(hostConfig, l)
	if err != nil {
		return err
	}

	journal, err := openJournal(&hostConfig.Journal, l)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	approver := host.Approver(host.AutoApprove)
	if !hostConfig.AutoApprove {
		l.Sugar().Warnw("Auto-approve disabled, every signing request will be declined")
		approver = host.DenyAll
	}
	hostOpts := []host.Option{
		host.WithSignRateLimit(hostConfig.SignRateLimit, 1),
		host.WithApprover(host.LoggingApprover(l, approver)),
	}

	var responder channel.IOutbound
	var subscriber *redisChannel.Subscriber
	switch hostConfig.Transport {
	case config.TransportRedis:
		client, err := redisChannel.NewClient(ctx, &redisChannel.RedisConfig{
			Address:  hostConfig.Redis.Address,
			Password: hostConfig.Redis.Password,
			DB:       hostConfig.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		outboundName, inboundName := config.RedisChannelNames(hostConfig.RedisChannel)
		responder = redisChannel.NewPublisher(client, inboundName, l)
		subscriber = redisChannel.NewSubscriber(client, outboundName, l)
	default:
		responder = httpChannel.NewClient(hostConfig.CallbackURL, l)
	}

	h, err := host.NewHost(s, responder, journal, l, hostOpts...)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	server := httpChannel.NewServer(hostConfig.Port, config.PathBridgeMessages, h.HandleMessage, l)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
	}()

	if subscriber != nil {
		go func() {
			if err := subscriber.Run(ctx, h.HandleMessage); err != nil {
				l.Sugar().Errorw("Redis subscription ended", "error", err)
				stop()
			}
		}()
	}

	l.Sugar().Infow("Wallet host running",
		"wallet", h.PublicKey(),
		"port", hostConfig.Port,
		"transport", config.DescribeTransport(hostConfig.Transport, hostConfig.CallbackURL, hostConfig.RedisChannel),
		"journal", hostConfig.Journal.Type,
	)
	l.Sugar().Infow("Available endpoints",
		"messages", "POST "+config.PathBridgeMessages,
		"health", "GET "+config.PathHealth)
	l.Sugar().Info("Press Ctrl+C to stop")

	<-ctx.Done()

	records, err := h.Requests()
	if err == nil {
		l.Sugar().Infow("Shutting down", "journaledRequests", len(records))
	}
	return nil
}

func parseHostConfig(c *cli.Context) *config.HostConfig {
	redisConfig := &config.RedisConfig{
		Address:   c.String("redis-address"),
		Password:  c.String("redis-password"),
		DB:        c.Int("redis-db"),
		KeyPrefix: c.String("redis-key-prefix"),
	}
	return &config.HostConfig{
		Port:          c.Int("port"),
		PrivateKey:    c.String("private-key"),
		KeyFile:       c.String("key-file"),
		KeyPassword:   c.String("key-password"),
		Transport:     config.TransportType(c.String("transport")),
		CallbackURL:   c.String("callback-url"),
		RedisChannel:  c.String("redis-channel"),
		Redis:         redisConfig,
		SignRateLimit: c.Float64("sign-rate-limit"),
		AutoApprove:   c.Bool("auto-approve"),
		Journal: config.JournalConfig{
			Type:     config.JournalType(c.String("journal")),
			DataPath: c.String("journal-data-path"),
			Redis:    redisConfig,
		},
		Debug: c.Bool("verbose"),
	}
}

// loadSigner prefers an existing key file, then an explicit key, then a
// generated one. A configured key file that does not exist yet is written.
func loadSigner(cfg *config.HostConfig, l *zap.Logger) (*localSigner.LocalSigner, error) {
	if cfg.KeyFile != "" {
		if _, err := os.Stat(cfg.KeyFile); err == nil {
			s, err := localSigner.NewLocalSignerFromKeyFile(cfg.KeyFile, cfg.KeyPassword, l)
			if err != nil {
				return nil, fmt.Errorf("failed to load key file: %w", err)
			}
			return s, nil
		}
	}

	var s *localSigner.LocalSigner
	var err error
	if cfg.PrivateKey == "" {
		s, err = localSigner.NewLocalSigner(l)
		if err != nil {
			return nil, err
		}
		if cfg.KeyFile == "" {
			fmt.Printf("Generated throwaway wallet %s\nseed (base58): %s\n", s.PublicKey(), s.SeedBase58())
		}
	} else {
		s, err = localSigner.NewLocalSignerFromBase58(cfg.PrivateKey, l)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	}

	if cfg.KeyFile != "" {
		if err := s.WriteKeyFile(cfg.KeyFile, cfg.KeyPassword); err != nil {
			return nil, err
		}
		l.Sugar().Infow("Wrote encrypted key file", "path", cfg.KeyFile, "wallet", s.PublicKey().String())
	}
	return s, nil
}

func openJournal(cfg *config.JournalConfig, l *zap.Logger) (persistence.IJournal, error) {
	switch cfg.Type {
	case config.JournalTypeBadger:
		journal, err := badgerJournal.NewBadgerPersistence(cfg.DataPath, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger journal: %w", err)
		}
		return journal, nil
	case config.JournalTypeRedis:
		journal, err := redisJournal.NewRedisPersistence(&redisJournal.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis journal: %w", err)
		}
		return journal, nil
	default:
		return memory.NewMemoryPersistence(l), nil
	}
}
