package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration of the vault daemon.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	GRPCPort     int           `mapstructure:"grpc_port"` // agent gateway, 0 disables
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr is the console listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig describes the PostgreSQL connection. An empty URL runs the
// vault without durable audit history.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// RedisConfig describes the Pub/Sub connection for operator signals.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AMQPConfig enables the event publisher when URL is set.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Durable  bool   `mapstructure:"durable"`
}

// AuthConfig holds the RSA key locations and JWT settings.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"` // issuing side only
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
}

// EngineConfig configures the vault core and its execution backend.
type EngineConfig struct {
	Owner      string `mapstructure:"owner"`
	Controller string `mapstructure:"controller"`
	Asset      string `mapstructure:"asset"`

	// Swaps above this amount (human units) wait for approval. Empty disables.
	ApprovalThreshold string `mapstructure:"approval_threshold"`

	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditBatchSize     int           `mapstructure:"audit_batch_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`
	// JournalCapacity bounds the in-memory event window served by /v1/events.
	JournalCapacity int `mapstructure:"journal_capacity"`

	Backend BackendConfig `mapstructure:"backend"`
}

// BackendConfig selects the swap backend: "mock" or "grpc".
type BackendConfig struct {
	Kind   string `mapstructure:"kind"`
	Target string `mapstructure:"target"` // grpc dial target

	// mock pool rate, amountOut = amountIn * RateNum / RateDen minus fee
	RateNum uint64 `mapstructure:"rate_num"`
	RateDen uint64 `mapstructure:"rate_den"`

	// Circuit breaker settings
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`

	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	Attempts    uint          `mapstructure:"attempts"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// BootstrapConfig points to the manifest applied at startup.
type BootstrapConfig struct {
	Manifest string `mapstructure:"manifest"`
}

// LoadConfig merges config.yaml (from . or ./configs) with environment
// overrides: SERVER_PORT=9000 overrides server.port.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom reads the given file instead of searching for config.yaml.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()

	// 1. Config file lookup
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// 2. Environment overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Defaults
	setDefaults(v)

	// 4. Read the file, a missing one is fine
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Keys come inline from ENV (Docker/K8s) or from the configured path
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50052)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("amqp.exchange", "agentvault.events")
	v.SetDefault("amqp.durable", true)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("engine.asset", "USDC")
	v.SetDefault("engine.audit_buffer_size", 1000)
	v.SetDefault("engine.audit_batch_size", 100)
	v.SetDefault("engine.audit_flush_interval", time.Second)
	v.SetDefault("engine.journal_capacity", 100000)
	v.SetDefault("engine.backend.kind", "mock")
	v.SetDefault("engine.backend.rate_num", 1)
	v.SetDefault("engine.backend.rate_den", 1)
	v.SetDefault("engine.backend.attempts", 3)
	v.SetDefault("engine.backend.call_timeout", 10*time.Second)
}

// loadKeyResource prefers PEM data in envDataKey over the file at path.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
