package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/villacheck/server/lock"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Tables   TablesConfig   `mapstructure:"tables"`
	Lock     lock.Config    `mapstructure:"lock"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	IDs      IDsConfig      `mapstructure:"ids"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminIPs restricts /api/admin; empty allows every address.
	AdminIPs []string `mapstructure:"admin_ips"`
	// AllowedOrigins for CORS; empty reflects any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	Mode            string        `mapstructure:"mode"` // sheets | xlsx | memory
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	CredentialsJSON string        `mapstructure:"credentials_json"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	XLSXPath        string        `mapstructure:"xlsx_path"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`
}

// TablesConfig maps each logical table to its worksheet name.
type TablesConfig struct {
	Properties    string `mapstructure:"properties"`
	Inventory     string `mapstructure:"inventory"`
	ChecklistRuns string `mapstructure:"checklist_runs"`
	ChecklistLog  string `mapstructure:"checklist_log"`
	CheckIns      string `mapstructure:"check_ins"`
	Staff         string `mapstructure:"staff"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type CatalogConfig struct {
	// CacheTTL of 0 disables the read-through cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowPlaintextPasswords accepts Staff rows whose password column is not
	// a bcrypt hash. Only for migrating an existing sheet.
	AllowPlaintextPasswords bool `mapstructure:"allow_plaintext_passwords"`
}

type IDsConfig struct {
	RunStrategy string `mapstructure:"run_strategy"` // minute | second_property
	Timezone    string `mapstructure:"timezone"`     // IANA name; empty = process local
}

// Load reads config from the given YAML file path. A missing file is not an
// error: defaults and environment variables are enough to start.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 3002)
	v.SetDefault("server.debug", false)
	v.SetDefault("store.mode", "sheets")
	v.SetDefault("store.xlsx_path", "./data/villas.xlsx")
	v.SetDefault("store.call_timeout", "30s")
	v.SetDefault("store.probe_interval", "1m")
	v.SetDefault("tables.properties", "Properties")
	v.SetDefault("tables.inventory", "Inventory")
	v.SetDefault("tables.checklist_runs", "ChecklistRuns")
	v.SetDefault("tables.checklist_log", "ChecklistLog")
	v.SetDefault("tables.check_ins", "CheckIns")
	v.SetDefault("tables.staff", "Staff")
	v.SetDefault("lock.mode", lock.ModeLocal)
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.retry_interval", "100ms")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("catalog.cache_ttl", "0s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/audit.db")
	v.SetDefault("database.mysql_max_open", 10)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.allow_plaintext_passwords", false)
	v.SetDefault("ids.run_strategy", "minute")

	// Environment names used by existing deployments.
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("store.spreadsheet_id", "SHEET_ID")
	_ = v.BindEnv("store.credentials_json", "GOOGLE_SERVICE_ACCOUNT_JSON")
	_ = v.BindEnv("store.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("lock.redis_addr", "REDIS_ADDRESS")
	_ = v.BindEnv("server.admin_key", "ADMIN_KEY")

	if err := v.ReadInConfig(); err != nil && !missing(err) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func missing(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}
