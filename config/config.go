package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de arbscan.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Analysis AnalysisConfig `yaml:"analysis"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	S3       S3Config       `yaml:"s3"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig controla el loop de ciclos.
type ScannerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	Symbols         []string `yaml:"symbols"`
	QuoteSymbol     string   `yaml:"quote_symbol"`
	FetchWorkers    int      `yaml:"fetch_workers"`    // 0 = NumCPU*2
	FetchTimeoutMS  int      `yaml:"fetch_timeout_ms"` // límite por llamada de red
}

// AnalysisConfig son los umbrales del detector. Cero es un valor válido
// para los umbrales, por eso los defaults se aplican antes de leer el YAML.
type AnalysisConfig struct {
	MinSpreadPercentage float64 `yaml:"min_spread_percentage"` // fracción: 0.02 = 2%
	MinConfidence       float64 `yaml:"min_confidence"`
	MaxPriceAgeSeconds  int     `yaml:"max_price_age_seconds"`
	NotionalTradeSize   float64 `yaml:"notional_trade_size"`
}

// APIConfig contiene los endpoints de las fuentes de precio.
type APIConfig struct {
	OracleBase         string            `yaml:"oracle_base"`
	OracleFeeds        map[string]string `yaml:"oracle_feeds"` // símbolo → feed id
	OracleRatePerSec   float64           `yaml:"oracle_rate_per_sec"`
	SubgraphURL        string            `yaml:"subgraph_url"`
	SubgraphAPIKey     string            `yaml:"subgraph_api_key"`
	SubgraphRatePerSec float64           `yaml:"subgraph_rate_per_sec"`
	PoolsPerQuery      int               `yaml:"pools_per_query"`
	Retries            int               `yaml:"retries"` // reintentos ante 429/5xx; 0 = ninguno
}

// StorageConfig controla dónde se persisten los snapshots.
type StorageConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	DSN          string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// S3Config configura el espejo opcional de snapshots en S3.
type S3Config struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	KeepHistory    bool   `yaml:"keep_history"`
}

// RedisConfig configura la publicación opcional de snapshots en Redis.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TLS        bool   `yaml:"tls"`
	KeyPrefix  string `yaml:"key_prefix"`
	Channel    string `yaml:"channel"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// MetricsConfig controla el endpoint Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`   // opcional: copia rotada en disco
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un documento YAML y aplica entorno y defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Analysis: DefaultAnalysis()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Parse: %w", err)
	}
	return &cfg, nil
}

// DefaultAnalysis devuelve los umbrales por defecto: 2%, 0.7, 300s, $1000.
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		MinSpreadPercentage: 0.02,
		MinConfidence:       0.7,
		MaxPriceAgeSeconds:  300,
		NotionalTradeSize:   1000,
	}
}

// ScanInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// FetchTimeout devuelve el límite por llamada de red.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scanner.FetchTimeoutMS) * time.Millisecond
}

// MaxPriceAge devuelve la antigüedad máxima aceptada para un precio.
func (c *Config) MaxPriceAge() time.Duration {
	return time.Duration(c.Analysis.MaxPriceAgeSeconds) * time.Second
}

// RedisTTL devuelve la expiración de la clave del último snapshot (0 = sin expiración).
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// Validate rechaza valores fuera de rango. Devuelve todos los problemas juntos.
func (c *Config) Validate() error {
	var errs []error
	a := c.Analysis
	if a.MinSpreadPercentage < 0 || a.MinSpreadPercentage >= 1 {
		errs = append(errs, fmt.Errorf("analysis.min_spread_percentage must be in [0, 1), got %v", a.MinSpreadPercentage))
	}
	if a.MinConfidence < 0 || a.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("analysis.min_confidence must be in [0, 1], got %v", a.MinConfidence))
	}
	if a.MaxPriceAgeSeconds <= 0 {
		errs = append(errs, fmt.Errorf("analysis.max_price_age_seconds must be positive, got %d", a.MaxPriceAgeSeconds))
	}
	if a.NotionalTradeSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.notional_trade_size must be positive, got %v", a.NotionalTradeSize))
	}
	if len(c.Scanner.Symbols) == 0 {
		errs = append(errs, errors.New("scanner.symbols must not be empty"))
	}
	if c.API.Retries < 0 {
		errs = append(errs, fmt.Errorf("api.retries must not be negative, got %d", c.API.Retries))
	}
	if c.S3.Enabled && (c.S3.Bucket == "" || c.S3.Region == "") {
		errs = append(errs, errors.New("s3.bucket and s3.region are required when s3 is enabled"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ARBSCAN_SYMBOLS"); v != "" {
		cfg.Scanner.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("SUBGRAPH_API_KEY"); v != "" {
		cfg.API.SubgraphAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.S3.SecretKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}
	if cfg.Scanner.QuoteSymbol == "" {
		cfg.Scanner.QuoteSymbol = "USDC"
	}
	if cfg.Scanner.FetchTimeoutMS <= 0 {
		cfg.Scanner.FetchTimeoutMS = 10_000
	}
	if cfg.API.OracleBase == "" {
		cfg.API.OracleBase = "https://hermes.pyth.network"
	}
	if cfg.API.OracleRatePerSec <= 0 {
		cfg.API.OracleRatePerSec = 10
	}
	if cfg.API.SubgraphURL == "" {
		cfg.API.SubgraphURL = "https://gateway.thegraph.com/api/subgraphs/id/5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV"
	}
	if cfg.API.SubgraphRatePerSec <= 0 {
		cfg.API.SubgraphRatePerSec = 5
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "data/arbitrage-analysis.json"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "arbscan"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":2112"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
}

// SplitSymbols interpreta una lista separada por comas ("ETH, btc,,LINK").
func SplitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
