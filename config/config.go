package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de agrisim.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Market  MarketConfig  `yaml:"market"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla el pipeline de análisis.
type EngineConfig struct {
	Workers     int           `yaml:"workers"`      // 0 = NumCPU
	Timeout     time.Duration `yaml:"timeout"`      // 0 = sin límite
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // 0 = cache desactivada
	CacheBucket time.Duration `yaml:"cache_bucket"` // ventana de la clave de cache
	HistoryDays int           `yaml:"history_days"` // <0 desactiva el histórico de precios
	Materiality float64       `yaml:"materiality"`  // umbral de parámetro crítico (fracción del beneficio)

	RiskDiscount         float64            `yaml:"risk_discount"`
	DefaultBudgetPerAcre float64            `yaml:"default_budget_per_acre"`
	NitrogenReference    float64            `yaml:"nitrogen_reference"` // lb N/acre para el objetivo ambiental
	BudgetWeights        map[string]float64 `yaml:"budget_weights"`
}

// MarketConfig configura el proveedor de precios.
type MarketConfig struct {
	BaseURL      string        `yaml:"base_url"`
	RatePerSec   float64       `yaml:"rate_per_sec"`
	Burst        int           `yaml:"burst"`
	RetryMax     int           `yaml:"retry_max"`
	Timeout      time.Duration `yaml:"timeout"`
	FixturesFile string        `yaml:"fixtures_file"` // YAML estático para -dry-run o sin base_url
}

// StorageConfig controla dónde se persisten los análisis.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = sin endpoint /metrics
}

// TracingConfig controla la exportación OTLP.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // host:port; vacío = desactivado
	Insecure     bool   `yaml:"insecure"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta YAML ya leído y aplica overrides de entorno y defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Parse: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración con todos los defaults, sin archivo.
func Default() *Config {
	var cfg Config
	_ = applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("AGRISIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("AGRISIM_MARKET_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
	if v := os.Getenv("AGRISIM_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.OTLPEndpoint = v
	}
	if v := os.Getenv("AGRISIM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AGRISIM_WORKERS: %w", err)
		}
		cfg.Engine.Workers = n
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = 2 * time.Minute
	}
	if cfg.Engine.CacheBucket <= 0 {
		cfg.Engine.CacheBucket = 15 * time.Minute
	}
	if cfg.Engine.Materiality <= 0 {
		cfg.Engine.Materiality = 0.15
	}
	if cfg.Engine.RiskDiscount == 0 {
		cfg.Engine.RiskDiscount = 0.5
	}
	if cfg.Engine.DefaultBudgetPerAcre <= 0 {
		cfg.Engine.DefaultBudgetPerAcre = 150
	}
	if cfg.Engine.NitrogenReference <= 0 {
		cfg.Engine.NitrogenReference = 200
	}
	if cfg.Market.RetryMax <= 0 {
		cfg.Market.RetryMax = 3
	}
	if cfg.Market.Timeout <= 0 {
		cfg.Market.Timeout = 10 * time.Second
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "agrisim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Engine.RiskDiscount < 0 || c.Engine.RiskDiscount > 1 {
		return fmt.Errorf("engine.risk_discount %v must be in [0,1]", c.Engine.RiskDiscount)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must be >= 0")
	}
	for k, w := range c.Engine.BudgetWeights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return fmt.Errorf("engine.budget_weights.%s must be a finite number >= 0", k)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}
