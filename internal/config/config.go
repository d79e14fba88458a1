package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"custodial-lottery/internal/lottery"
	"custodial-lottery/internal/models"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Configs is the full service configuration.
type Configs struct {
	Server    ServerConfigs    `toml:"server"`
	Log       LogConfigs       `toml:"log"`
	RateLimit RateLimitConfigs `toml:"rate_limit"`
	Tickets   TicketConfigs    `toml:"tickets"`
	Ledger    LedgerConfigs    `toml:"ledger"`
	Lottery   *LotteryConfigs  `toml:"lottery"`
}

// ServerConfigs holds the HTTP listen address.
type ServerConfigs struct {
	Address string `toml:"address"`
}

// LogConfigs controls audit INFO lines, the log file and verbose output.
type LogConfigs struct {
	Info    bool   `toml:"info"`
	File    string `toml:"file"`
	Verbose bool   `toml:"verbose"`
}

// RateLimitConfigs holds the purchase cooldowns in seconds.
type RateLimitConfigs struct {
	DefaultCooldown   uint64 `toml:"default_cooldown"`
	AllowlistCooldown uint64 `toml:"allowlist_cooldown"`
}

// TicketConfigs holds per-buyer ticket limits.
type TicketConfigs struct {
	MaxPerBuyer uint64 `toml:"max_per_buyer"`
}

// LedgerConfigs selects the host ledger: "memory" or "sqlite".
type LedgerConfigs struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LotteryConfigs optionally initializes the lottery at startup.
type LotteryConfigs struct {
	TotalTickets uint64 `toml:"total_tickets"`
	TicketPrice  string `toml:"ticket_price"`
	MinorBP      uint64 `toml:"minor_bp"`
	GrandBP      uint64 `toml:"grand_bp"`
	Admin        string `toml:"admin"`
	Custody      string `toml:"custody"`
}

// Default returns the configuration used when nothing is set.
func Default() Configs {
	return Configs{
		Server: ServerConfigs{Address: ":8080"},
		Log:    LogConfigs{Verbose: true},
		RateLimit: RateLimitConfigs{
			DefaultCooldown:   lottery.DefaultCooldownSeconds,
			AllowlistCooldown: lottery.AllowlistCooldownSeconds,
		},
		Ledger: LedgerConfigs{Driver: "memory"},
	}
}

// Load reads an optional .env, then the TOML file at path (if any), then
// LOTTERY_* environment overrides.
func Load(path string) (Configs, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Ledger.Driver != "memory" && cfg.Ledger.Driver != "sqlite" {
		return cfg, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
	if cfg.Ledger.Driver == "sqlite" && cfg.Ledger.DSN == "" {
		return cfg, errors.New("sqlite ledger requires a dsn")
	}
	return cfg, nil
}

func applyEnv(cfg *Configs) error {
	if v := os.Getenv("LOTTERY_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("LOTTERY_LOG_INFO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOTTERY_LOG_INFO: %w", err)
		}
		cfg.Log.Info = b
	}
	if v := os.Getenv("LOTTERY_LEDGER_DRIVER"); v != "" {
		cfg.Ledger.Driver = v
	}
	if v := os.Getenv("LOTTERY_LEDGER_DSN"); v != "" {
		cfg.Ledger.DSN = v
	}
	if v := os.Getenv("LOTTERY_ADMIN"); v != "" && cfg.Lottery != nil {
		cfg.Lottery.Admin = v
	}
	if v := os.Getenv("LOTTERY_CUSTODY"); v != "" && cfg.Lottery != nil {
		cfg.Lottery.Custody = v
	}
	return nil
}

// LotteryConfig converts the bootstrap block.
func (c *LotteryConfigs) LotteryConfig() (models.LotteryConfig, error) {
	var out models.LotteryConfig
	price, err := models.ParseAmount(c.TicketPrice)
	if err != nil {
		return out, fmt.Errorf("ticket_price: %w", err)
	}
	admin, err := models.ParseIdentityKey(c.Admin)
	if err != nil {
		return out, fmt.Errorf("admin: %w", err)
	}
	out = models.LotteryConfig{
		TotalTickets:    c.TotalTickets,
		TicketPrice:     price,
		PayoutStructure: models.PayoutStructure{Minor: c.MinorBP, Grand: c.GrandBP},
		AdminIdentity:   admin,
	}
	return out, nil
}

// CustodyIdentity is the configured custody account, or the default identity.
func (c *Configs) CustodyIdentity() (models.IdentityKey, error) {
	if c.Lottery == nil || c.Lottery.Custody == "" {
		return models.DefaultIdentity, nil
	}
	return models.ParseIdentityKey(c.Lottery.Custody)
}
