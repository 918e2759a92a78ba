package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/bridge"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel/httpChannel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel/redisChannel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/config"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/logger"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "wallet-bridge",
		Usage: "Drive a wallet host through the webview bridge from the command line",
		Description: `Runs the page side of the webview wallet bridge against a host.

This client can:
- Announce connect and disconnect
- Ask the host to sign a base64 legacy transaction
- Ask the host to sign an arbitrary message`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "address",
				Aliases:  []string{"addr"},
				Usage:    "Base58 wallet public key held by the host",
				EnvVars:  []string{config.EnvBridgeAddress},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "transport",
				Value:   string(config.TransportHTTP),
				Usage:   "Channel transport: http or redis",
				EnvVars: []string{config.EnvTransport},
			},
			&cli.StringFlag{
				Name:    "host-url",
				Usage:   "Host message endpoint for the http transport",
				Value:   "http://localhost:8700" + config.PathBridgeMessages,
				EnvVars: []string{config.EnvBridgeHostURL},
			},
			&cli.IntFlag{
				Name:    "callback-port",
				Usage:   "Port the bridge listens on for host results",
				Value:   8701,
				EnvVars: []string{config.EnvBridgeCallbackPort},
			},
			&cli.StringFlag{
				Name:    "redis-channel",
				Usage:   "Base name of the Redis pub/sub channel pair",
				Value:   "wallet-bridge",
				EnvVars: []string{config.EnvRedisChannelName},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Value:   "localhost:6379",
				Usage:   "Redis server address",
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
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "How long to wait for the host",
				Value:   30 * time.Second,
				EnvVars: []string{config.EnvBridgeTimeout},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Announce a connection and print the wallet address",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "only-if-trusted",
						Usage: "Ask the host to connect silently",
					},
				},
				Action: connectCommand,
			},
			{
				Name:   "disconnect",
				Usage:  "Announce a disconnection",
				Action: disconnectCommand,
			},
			{
				Name:  "sign-message",
				Usage: "Ask the host to sign a message",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Usage:    "Message to sign (as string)",
						Required: true,
					},
				},
				Action: signMessageCommand,
			},
			{
				Name:  "sign-transaction",
				Usage: "Ask the host to sign a legacy transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "transaction",
						Usage:    "Serialized legacy transaction (base64)",
						Required: true,
					},
				},
				Action: signTransactionCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connectCommand(c *cli.Context) error {
	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		pub, err := b.Connect(ctx, &types.ConnectOptions{OnlyIfTrusted: c.Bool("only-if-trusted")})
		if err != nil {
			return err
		}
		fmt.Println(pub.String())
		return nil
	})
}

func disconnectCommand(c *cli.Context) error {
	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		return b.Disconnect(ctx)
	})
}

func signMessageCommand(c *cli.Context) error {
	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		sig, err := b.SignMessage(ctx, []byte(c.String("message")))
		if err != nil {
			return fmt.Errorf("sign message failed: %w", err)
		}
		fmt.Printf("Signature (base58): %s\n", solana.EncodeBase58(sig))
		return nil
	})
}

func signTransactionCommand(c *cli.Context) error {
	raw, err := solana.DecodeBase64(c.String("transaction"))
	if err != nil {
		return fmt.Errorf("invalid transaction encoding: %w", err)
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		signed, err := b.SignTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("sign transaction failed: %w", err)
		}
		out, err := signed.Serialize()
		if err != nil {
			return err
		}
		idx := signed.SignerIndex(b.PublicKey())
		fmt.Printf("Signature (base58): %s\n", signed.Signatures[idx].String())
		fmt.Printf("Signed transaction (base64): %s\n", solana.EncodeBase64(out))
		return nil
	})
}

// withBridge builds a bridge on the configured transport, starts listening
// for host results and runs fn under the configured timeout.
func withBridge(c *cli.Context, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	bridgeConfig := parseBridgeConfig(c)
	if err := bridgeConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := c.Context
	if bridgeConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bridgeConfig.Timeout)
		defer cancel()
	}

	switch bridgeConfig.Transport {
	case config.TransportRedis:
		return runOverRedis(ctx, bridgeConfig, l, fn)
	default:
		return runOverHTTP(ctx, bridgeConfig, l, fn)
	}
}

func runOverHTTP(ctx context.Context, cfg *config.BridgeConfig, l *zap.Logger, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	b, err := bridge.NewBridge(cfg.Address, httpChannel.NewClient(cfg.HostURL, l), l)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	server := httpChannel.NewServer(cfg.CallbackPort, config.PathBridgeResults, b.HandleResult, l)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
	}()

	return fn(ctx, b)
}

func runOverRedis(ctx context.Context, cfg *config.BridgeConfig, l *zap.Logger, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	client, err := redisChannel.NewClient(ctx, &redisChannel.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	outboundName, inboundName := config.RedisChannelNames(cfg.RedisChannel)
	b, err := bridge.NewBridge(cfg.Address, redisChannel.NewPublisher(client, outboundName, l), l)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	run, err := redisChannel.NewSubscriber(client, inboundName, l).Subscribe(ctx)
	if err != nil {
		return err
	}
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := run(subCtx, b.HandleResult); err != nil {
			l.Sugar().Warnw("Result subscription ended", "error", err)
		}
	}()

	return fn(ctx, b)
}

func parseBridgeConfig(c *cli.Context) *config.BridgeConfig {
	return &config.BridgeConfig{
		Address:      c.String("address"),
		Transport:    config.TransportType(c.String("transport")),
		HostURL:      c.String("host-url"),
		CallbackPort: c.Int("callback-port"),
		RedisChannel: c.String("redis-channel"),
		Redis: &config.RedisConfig{
			Address:  c.String("redis-address"),
			Password: c.String("redis-password"),
			DB:       c.Int("redis-db"),
		},
		Timeout: c.Duration("timeout"),
		Debug:   c.Bool("verbose"),
	}
}
