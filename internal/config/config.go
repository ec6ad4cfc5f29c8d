// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	Economy      EconomyConfig      `mapstructure:"economy"`
	Games        GamesConfig        `mapstructure:"games"`
	Stocks       StocksConfig       `mapstructure:"stocks"`
	Leaderboards LeaderboardsConfig `mapstructure:"leaderboards"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection settings.
// The cache is optional; when disabled leaderboards are read from PostgreSQL.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds token signing and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// EconomyConfig holds the fixed amounts used by rewards and fees.
type EconomyConfig struct {
	StartingBalance int64 `mapstructure:"starting_balance"`
	DailyBonus      int64 `mapstructure:"daily_bonus"`
	ClanCreationFee int64 `mapstructure:"clan_creation_fee"`
	ClanMaxMembers  int   `mapstructure:"clan_max_members"`
	XPPerLevel      int64 `mapstructure:"xp_per_level"`
	LevelBonus      int64 `mapstructure:"level_bonus"`
	XPDivisor       int64 `mapstructure:"xp_divisor"`
}

// BetLimits bounds the stake of a single wager.
type BetLimits struct {
	MinBet int64 `mapstructure:"min_bet"`
	MaxBet int64 `mapstructure:"max_bet"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Dice      BetLimits    `mapstructure:"dice"`
	Slots     SlotsConfig  `mapstructure:"slots"`
	Roulette  BetLimits    `mapstructure:"roulette"`
	Crash     CrashConfig  `mapstructure:"crash"`
	Plinko    PlinkoConfig `mapstructure:"plinko"`
	Mines     MinesConfig  `mapstructure:"mines"`
	Wheel     WheelConfig  `mapstructure:"wheel"`
	Blackjack BetLimits    `mapstructure:"blackjack"`
}

// SlotSymbol is one entry of the slot reel alphabet.
type SlotSymbol struct {
	Name   string  `mapstructure:"name"`
	Weight int     `mapstructure:"weight"`
	Three  float64 `mapstructure:"three"`
	Two    float64 `mapstructure:"two"`
}

// SlotsConfig holds slot machine configuration.
type SlotsConfig struct {
	BetLimits `mapstructure:",squash"`
	Symbols   []SlotSymbol `mapstructure:"symbols"`
}

// CrashConfig holds crash game configuration.
type CrashConfig struct {
	BetLimits `mapstructure:",squash"`
	Tick      time.Duration `mapstructure:"tick"`
}

// PlinkoConfig holds plinko board configuration.
type PlinkoConfig struct {
	BetLimits   `mapstructure:",squash"`
	Rows        int       `mapstructure:"rows"`
	Multipliers []float64 `mapstructure:"multipliers"`
}

// MinesConfig holds minesweeper configuration.
type MinesConfig struct {
	BetLimits `mapstructure:",squash"`
	MinMines  int `mapstructure:"min_mines"`
	MaxMines  int `mapstructure:"max_mines"`
}

// WheelSegment is one (multiplier, probability) pair of the wheel.
type WheelSegment struct {
	Multiplier  float64 `mapstructure:"multiplier"`
	Probability float64 `mapstructure:"probability"`
}

// WheelConfig holds wheel configuration.
type WheelConfig struct {
	BetLimits `mapstructure:",squash"`
	Segments  []WheelSegment `mapstructure:"segments"`
}

// StocksConfig holds stock market simulation settings.
type StocksConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Volatility   float64       `mapstructure:"volatility"`
}

// LeaderboardsConfig holds leaderboard materialization settings.
type LeaderboardsConfig struct {
	RecomputeInterval time.Duration `mapstructure:"recompute_interval"`
	EntryLimit        int           `mapstructure:"entry_limit"`
}

// AdminConfig lists the accounts granted the admin role at startup.
// ADMIN_USERNAMES takes a comma-separated list.
type AdminConfig struct {
	Usernames []string `mapstructure:"usernames"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory, then . and ./config.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_JWT_SECRET, REDIS_ENABLED
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults are static, so decoding cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.ttl", "10m")

	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.issuer", "virtual-casino")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("economy.starting_balance", 1000)
	v.SetDefault("economy.daily_bonus", 100)
	v.SetDefault("economy.clan_creation_fee", 1000)
	v.SetDefault("economy.clan_max_members", 50)
	v.SetDefault("economy.xp_per_level", 100)
	v.SetDefault("economy.level_bonus", 50)
	v.SetDefault("economy.xp_divisor", 10)

	for _, game := range []string{"dice", "slots", "roulette", "crash", "plinko", "mines", "wheel", "blackjack"} {
		v.SetDefault("games."+game+".min_bet", 1)
		v.SetDefault("games."+game+".max_bet", 100000)
	}

	v.SetDefault("games.slots.symbols", []map[string]any{
		{"name": "cherry", "weight": 35, "three": 5, "two": 0.5},
		{"name": "lemon", "weight": 25, "three": 10, "two": 1},
		{"name": "orange", "weight": 18, "three": 15, "two": 1},
		{"name": "grape", "weight": 12, "three": 20, "two": 2},
		{"name": "melon", "weight": 6, "three": 25, "two": 3},
		{"name": "seven", "weight": 3, "three": 50, "two": 5},
		{"name": "bag", "weight": 1, "three": 100, "two": 10},
	})

	v.SetDefault("games.crash.tick", "50ms")

	v.SetDefault("games.plinko.rows", 16)
	v.SetDefault("games.plinko.multipliers", []float64{
		1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000,
	})

	v.SetDefault("games.mines.min_mines", 1)
	v.SetDefault("games.mines.max_mines", 24)

	v.SetDefault("games.wheel.segments", []map[string]any{
		{"multiplier": 0, "probability": 0.55},
		{"multiplier": 1.2, "probability": 0.18},
		{"multiplier": 1.5, "probability": 0.12},
		{"multiplier": 2, "probability": 0.08},
		{"multiplier": 3, "probability": 0.04},
		{"multiplier": 5, "probability": 0.02},
		{"multiplier": 10, "probability": 0.009},
		{"multiplier": 50, "probability": 0.001},
	})

	v.SetDefault("stocks.tick_interval", "1m")
	v.SetDefault("stocks.volatility", 0.01)

	v.SetDefault("leaderboards.recompute_interval", "5m")
	v.SetDefault("leaderboards.entry_limit", 100)

	v.SetDefault("admin.usernames", []string{})
}

// Validate checks the game tables and limits once at startup.
func (c *Config) Validate() error {
	var errs []error

	limits := map[string]BetLimits{
		"dice":      c.Games.Dice,
		"slots":     c.Games.Slots.BetLimits,
		"roulette":  c.Games.Roulette,
		"crash":     c.Games.Crash.BetLimits,
		"plinko":    c.Games.Plinko.BetLimits,
		"mines":     c.Games.Mines.BetLimits,
		"wheel":     c.Games.Wheel.BetLimits,
		"blackjack": c.Games.Blackjack,
	}
	for name, l := range limits {
		if l.MinBet < 1 || l.MaxBet < l.MinBet {
			errs = append(errs, fmt.Errorf("games.%s: min_bet must be >= 1 and <= max_bet", name))
		}
	}

	if len(c.Games.Slots.Symbols) < 2 {
		errs = append(errs, errors.New("games.slots: at least two symbols required"))
	}
	for _, s := range c.Games.Slots.Symbols {
		if s.Weight <= 0 || s.Three < 0 || s.Two < 0 {
			errs = append(errs, fmt.Errorf("games.slots: symbol %q has a non-positive weight or negative payout", s.Name))
		}
	}

	if c.Games.Plinko.Rows < 1 || len(c.Games.Plinko.Multipliers) != c.Games.Plinko.Rows+1 {
		errs = append(errs, errors.New("games.plinko: multipliers must have rows+1 entries"))
	} else {
		m := c.Games.Plinko.Multipliers
		for i := range m {
			if m[i] != m[len(m)-1-i] {
				errs = append(errs, errors.New("games.plinko: multipliers must be symmetric"))
				break
			}
		}
	}

	var total float64
	for _, s := range c.Games.Wheel.Segments {
		if s.Probability < 0 || s.Multiplier < 0 {
			errs = append(errs, errors.New("games.wheel: negative segment value"))
		}
		total += s.Probability
	}
	if math.Abs(total-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("games.wheel: probabilities sum to %f, want 1", total))
	}

	if c.Games.Mines.MinMines < 1 || c.Games.Mines.MaxMines > 24 || c.Games.Mines.MinMines > c.Games.Mines.MaxMines {
		errs = append(errs, errors.New("games.mines: mine count bounds must lie within 1..24"))
	}

	if c.Games.Crash.Tick <= 0 {
		errs = append(errs, errors.New("games.crash: tick must be positive"))
	}

	if c.Economy.XPPerLevel <= 0 || c.Economy.XPDivisor <= 0 {
		errs = append(errs, errors.New("economy: xp_per_level and xp_divisor must be positive"))
	}

	for _, name := range c.Admin.Usernames {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("admin.usernames: empty entry"))
			break
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	return errors.Join(errs...)
}
