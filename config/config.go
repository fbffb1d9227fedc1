package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del pipeline.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	API      APIConfig      `yaml:"api"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// PipelineConfig controla la selección y el tamaño de la orden.
type PipelineConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	EventLimit      int      `yaml:"event_limit"`
	Tags            []string `yaml:"tags"`
	MinHoursToEnd   float64  `yaml:"min_hours_to_end"`
	MaxHoursToEnd   float64  `yaml:"max_hours_to_end"`
	OrderSize       float64  `yaml:"order_size"`
	TopPreview      int      `yaml:"top_preview"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase     string `yaml:"clob_base"`
	GammaBase    string `yaml:"gamma_base"`
	EstimatorURL string `yaml:"estimator_url"` // vacío = sin estimador externo
}

// ExchangeConfig controla la verificación de fondos y la ejecución.
type ExchangeConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	FunderAddress  string `yaml:"funder_address"`
	Asset          string `yaml:"asset"`
	SubmitTimeoutS int    `yaml:"submit_timeout_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	AuditDSN string `yaml:"audit_dsn"` // ruta al archivo SQLite, o ":memory:"
	SeenPath string `yaml:"seen_path"` // fichero JSON del registro de vistos
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CycleInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Pipeline.IntervalSeconds) * time.Second
}

// SubmitTimeout devuelve el timeout de submission como time.Duration.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Exchange.SubmitTimeoutS) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.Exchange.RPCURL = v
	}
	if v := os.Getenv("FUNDER_ADDRESS"); v != "" {
		cfg.Exchange.FunderAddress = v
	}
	if v := os.Getenv("ESTIMATOR_URL"); v != "" {
		cfg.API.EstimatorURL = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Pipeline.IntervalSeconds <= 0 {
		cfg.Pipeline.IntervalSeconds = 300
	}
	if cfg.Pipeline.EventLimit <= 0 {
		cfg.Pipeline.EventLimit = 1000
	}
	if cfg.Pipeline.MinHoursToEnd <= 0 {
		cfg.Pipeline.MinHoursToEnd = 1
	}
	if cfg.Pipeline.MaxHoursToEnd <= 0 {
		cfg.Pipeline.MaxHoursToEnd = 48
	}
	if cfg.Pipeline.OrderSize <= 0 {
		cfg.Pipeline.OrderSize = 5
	}
	if cfg.Pipeline.TopPreview <= 0 {
		cfg.Pipeline.TopPreview = 10
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Exchange.RPCURL == "" {
		cfg.Exchange.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Exchange.Asset == "" {
		cfg.Exchange.Asset = "USDC"
	}
	if cfg.Exchange.SubmitTimeoutS <= 0 {
		cfg.Exchange.SubmitTimeoutS = 15
	}
	if cfg.Storage.AuditDSN == "" {
		cfg.Storage.AuditDSN = "polypilot.db"
	}
	if cfg.Storage.SeenPath == "" {
		cfg.Storage.SeenPath = "seen_events.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
