package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Download
	GeonamesBaseURL string
	DownloadTimeout time.Duration
	Overwrite       bool

	// Storage root: архивы, распакованные файлы и итоговые документы
	DataDir string

	// Pipeline
	ShowProgress   bool
	ParallelParse  bool
	NormalizeNames bool // нормализация диакритических знаков
	ExportCSV      bool

	// Manticore
	ManticoreEnabled     bool
	ManticoreHost        string
	ManticorePort        int
	ManticoreConnTimeout time.Duration
	BatchSize            int

	Log LogConfig
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Загружаем .env файл если существует
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("geonames_base_url", "http://download.geonames.org/export/dump/")
	v.SetDefault("download_timeout", 10*time.Minute)
	v.SetDefault("overwrite", false)
	v.SetDefault("data_dir", "../output")
	v.SetDefault("show_progress", true)
	v.SetDefault("parallel_parse", true)
	v.SetDefault("normalize_names", false)
	v.SetDefault("export_csv", false)
	v.SetDefault("manticore_enabled", false)
	v.SetDefault("manticore_host", "localhost")
	v.SetDefault("manticore_port", 9308)
	v.SetDefault("manticore_timeout", 5*time.Minute)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	cfg := &Config{
		GeonamesBaseURL: v.GetString("geonames_base_url"),
		DownloadTimeout: v.GetDuration("download_timeout"),
		Overwrite:       v.GetBool("overwrite"),

		DataDir: v.GetString("data_dir"),

		ShowProgress:   v.GetBool("show_progress"),
		ParallelParse:  v.GetBool("parallel_parse"),
		NormalizeNames: v.GetBool("normalize_names"),
		ExportCSV:      v.GetBool("export_csv"),

		ManticoreEnabled:     v.GetBool("manticore_enabled"),
		ManticoreHost:        v.GetString("manticore_host"),
		ManticorePort:        v.GetInt("manticore_port"),
		ManticoreConnTimeout: v.GetDuration("manticore_timeout"),
		BatchSize:            v.GetInt("batch_size"),

		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}

	if !strings.HasSuffix(cfg.GeonamesBaseURL, "/") {
		cfg.GeonamesBaseURL += "/"
	}
	if cfg.BatchSize <= 0 {
		return nil, eris.Errorf("config: BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}

	return cfg, nil
}

// InitLogger builds a zap logger from cfg and installs it as the global logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
