package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the host and bridge binaries
const (
	EnvHostPort          = "WALLET_HOST_PORT"
	EnvHostPrivateKey    = "WALLET_HOST_PRIVATE_KEY"
	EnvHostKeyFile       = "WALLET_HOST_KEY_FILE"
	EnvHostKeyPassword   = "WALLET_HOST_KEY_PASSWORD"
	EnvHostCallbackURL   = "WALLET_HOST_CALLBACK_URL"
	EnvHostSignRateLimit = "WALLET_HOST_SIGN_RATE_LIMIT"
	EnvHostAutoApprove   = "WALLET_HOST_AUTO_APPROVE"

	EnvJournalType      = "WALLET_JOURNAL_TYPE"
	EnvJournalDataPath  = "WALLET_JOURNAL_DATA_PATH"
	EnvRedisAddress     = "WALLET_REDIS_ADDRESS"
	EnvRedisPassword    = "WALLET_REDIS_PASSWORD"
	EnvRedisDB          = "WALLET_REDIS_DB"
	EnvRedisKeyPrefix   = "WALLET_REDIS_KEY_PREFIX"
	EnvTransport        = "WALLET_TRANSPORT"
	EnvRedisChannelName = "WALLET_REDIS_CHANNEL"

	EnvBridgeAddress      = "WALLET_BRIDGE_ADDRESS"
	EnvBridgeHostURL      = "WALLET_BRIDGE_HOST_URL"
	EnvBridgeCallbackPort = "WALLET_BRIDGE_CALLBACK_PORT"
	EnvBridgeTimeout      = "WALLET_BRIDGE_TIMEOUT"

	EnvVerbose = "WALLET_VERBOSE"
)

// HTTP paths shared by both binaries.
const (
	PathBridgeMessages = "/bridge/messages"
	PathBridgeResults  = "/bridge/results"
	PathHealth         = "/health"
)

type JournalType string

const (
	JournalTypeMemory JournalType = "memory"
	JournalTypeBadger JournalType = "badger"
	JournalTypeRedis  JournalType = "redis"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportRedis TransportType = "redis"
)

// RedisChannelNames derives the pub/sub channel pair from a base name.
func RedisChannelNames(base string) (outbound string, inbound string) {
	return base + ":outbound", base + ":inbound"
}

type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"keyPrefix"`
}

func (rc *RedisConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if rc.Address == "" {
		allErrors = append(allErrors, field.Required(path.Child("address"), "redis address is required"))
	}
	if rc.DB < 0 || rc.DB > 15 {
		allErrors = append(allErrors, field.Invalid(path.Child("db"), rc.DB, "must be between 0 and 15"))
	}
	return allErrors
}

type JournalConfig struct {
	Type     JournalType  `json:"type"`
	DataPath string       `json:"dataPath"`
	Redis    *RedisConfig `json:"redis,omitempty"`
}

func (jc *JournalConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch jc.Type {
	case JournalTypeMemory:
	case JournalTypeBadger:
		if jc.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "badger journal needs a data path"))
		}
	case JournalTypeRedis:
		if jc.Redis == nil {
			allErrors = append(allErrors, field.Required(path.Child("redis"), "redis journal needs redis settings"))
		} else {
			allErrors = append(allErrors, jc.Redis.validate(path.Child("redis"))...)
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), jc.Type,
			[]string{string(JournalTypeMemory), string(JournalTypeBadger), string(JournalTypeRedis)}))
	}
	return allErrors
}

// HostConfig configures cmd/wallet-host.
type HostConfig struct {
	Port int `json:"port"`

	// PrivateKey is a base58 seed or keypair. Empty generates a throwaway key.
	PrivateKey string `json:"privateKey"`

	// KeyFile is an encrypted seed. Loaded when it exists, otherwise written
	// with the key in use.
	KeyFile     string `json:"keyFile"`
	KeyPassword string `json:"-"`

	Transport    TransportType `json:"transport"`
	CallbackURL  string        `json:"callbackUrl"`
	RedisChannel string        `json:"redisChannel"`
	Redis        *RedisConfig  `json:"redis,omitempty"`

	// SignRateLimit is signatures per second; zero disables pacing.
	SignRateLimit float64 `json:"signRateLimit"`
	AutoApprove   bool    `json:"autoApprove"`

	Journal JournalConfig `json:"journal"`

	Debug bool `json:"debug"`
}

func (c *HostConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}
	if c.KeyFile != "" && c.KeyPassword == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("keyPassword"), "required when keyFile is set"))
	}
	if c.SignRateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("signRateLimit"), c.SignRateLimit, "cannot be negative"))
	}
	allErrors = append(allErrors, validateTransport(c.Transport, c.CallbackURL, "callbackUrl", c.Redis)...)
	allErrors = append(allErrors, c.Journal.validate(field.NewPath("journal"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// BridgeConfig configures cmd/wallet-bridge.
type BridgeConfig struct {
	Address      string        `json:"address"`
	Transport    TransportType `json:"transport"`
	HostURL      string        `json:"hostUrl"`
	CallbackPort int           `json:"callbackPort"`
	RedisChannel string        `json:"redisChannel"`
	Redis        *RedisConfig  `json:"redis,omitempty"`
	Timeout      time.Duration `json:"timeout"`
	Debug        bool          `json:"debug"`
}

func (c *BridgeConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Address == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("address"), "wallet address is required"))
	} else if _, err := solana.PublicKeyFromBase58(c.Address); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("address"), c.Address, err.Error()))
	}
	if c.Transport == TransportHTTP && (c.CallbackPort < 1 || c.CallbackPort > 65535) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("callbackPort"), c.CallbackPort, "must be between 1-65535"))
	}
	if c.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("timeout"), c.Timeout.String(), "cannot be negative"))
	}
	allErrors = append(allErrors, validateTransport(c.Transport, c.HostURL, "hostUrl", c.Redis)...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func validateTransport(transport TransportType, rawURL string, urlField string, redis *RedisConfig) field.ErrorList {
	var allErrors field.ErrorList
	switch transport {
	case TransportHTTP:
		if rawURL == "" {
			allErrors = append(allErrors, field.Required(field.NewPath(urlField), "required for the http transport"))
		} else if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath(urlField), rawURL, "must be an absolute URL"))
		}
	case TransportRedis:
		if redis == nil {
			allErrors = append(allErrors, field.Required(field.NewPath("redis"), "required for the redis transport"))
		} else {
			allErrors = append(allErrors, redis.validate(field.NewPath("redis"))...)
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("transport"), transport,
			[]string{string(TransportHTTP), string(TransportRedis)}))
	}
	return allErrors
}

// DescribeTransport renders a short human label for startup logs.
func DescribeTransport(transport TransportType, rawURL string, channel string) string {
	if transport == TransportRedis {
		return fmt.Sprintf("redis pub/sub on %q", channel)
	}
	return fmt.Sprintf("http via %s", rawURL)
}
