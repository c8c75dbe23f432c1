package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override, e.g. CONSULTA_DATABASE_HOST.
const EnvPrefix = "CONSULTA"

var keys = []string{
	"database.host", "database.port", "database.user", "database.password",
	"database.dbname", "database.sslmode", "database.max_conns",
	"server.addr", "server.allowed_origins", "server.read_timeout",
	"server.write_timeout", "server.idle_timeout", "server.max_upload_bytes",
	"log.level", "log.encoding", "log.development", "log.disable_caller", "log.disable_stacktrace",
	"ingestion.reference_column", "ingestion.event_column", "ingestion.event_at_column",
	"ingestion.merchandise_column", "ingestion.resolve_by_header",
	"ingestion.reference_header", "ingestion.event_header", "ingestion.event_at_header",
	"ingestion.merchandise_header", "ingestion.timezone",
	"display.window_days",
	"export.file_prefix", "export.sheet_name", "export.directory",
}

// Load reads config.yaml from configPath (optional), then a .env file (optional),
// then CONSULTA_* environment variables, over Default.
func Load(configPath, envFile string, logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("load %s: %w", envFile, err)
			}
			logger.Debug("no .env file found, relying on environment variables", zap.String("path", envFile))
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
			logger.Info("no config.yaml found, using defaults and env vars", zap.String("path", configPath))
		} else {
			logger.Info("loaded config file", zap.String("path", v.ConfigFileUsed()))
		}
	}

	overlay(v, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func overlay(v *viper.Viper, cfg *Config) {
	setString(v, "database.host", &cfg.Database.Host)
	setInt(v, "database.port", &cfg.Database.Port)
	setString(v, "database.user", &cfg.Database.User)
	setString(v, "database.password", &cfg.Database.Password)
	setString(v, "database.dbname", &cfg.Database.DBName)
	setString(v, "database.sslmode", &cfg.Database.SSLMode)
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}

	setString(v, "server.addr", &cfg.Server.Addr)
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowed_origins"))
	}
	if v.IsSet("server.read_timeout") {
		cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}
	if v.IsSet("server.idle_timeout") {
		cfg.Server.IdleTimeout = v.GetDuration("server.idle_timeout")
	}
	if v.IsSet("server.max_upload_bytes") {
		cfg.Server.MaxUploadBytes = v.GetInt64("server.max_upload_bytes")
	}

	setString(v, "log.level", &cfg.Log.Level)
	setString(v, "log.encoding", &cfg.Log.Encoding)
	setBool(v, "log.development", &cfg.Log.Development)
	setBool(v, "log.disable_caller", &cfg.Log.DisableCaller)
	setBool(v, "log.disable_stacktrace", &cfg.Log.DisableStacktrace)

	setString(v, "ingestion.reference_column", &cfg.Ingestion.ReferenceColumn)
	setString(v, "ingestion.event_column", &cfg.Ingestion.EventColumn)
	setString(v, "ingestion.event_at_column", &cfg.Ingestion.EventAtColumn)
	setString(v, "ingestion.merchandise_column", &cfg.Ingestion.MerchandiseColumn)
	setBool(v, "ingestion.resolve_by_header", &cfg.Ingestion.ResolveByHeader)
	setString(v, "ingestion.reference_header", &cfg.Ingestion.ReferenceHeader)
	setString(v, "ingestion.event_header", &cfg.Ingestion.EventHeader)
	setString(v, "ingestion.event_at_header", &cfg.Ingestion.EventAtHeader)
	setString(v, "ingestion.merchandise_header", &cfg.Ingestion.MerchandiseHeader)
	setString(v, "ingestion.timezone", &cfg.Ingestion.Timezone)

	setInt(v, "display.window_days", &cfg.Display.WindowDays)

	setString(v, "export.file_prefix", &cfg.Export.FilePrefix)
	setString(v, "export.sheet_name", &cfg.Export.SheetName)
	setString(v, "export.directory", &cfg.Export.Directory)
}

func setString(v *viper.Viper, key string, target *string) {
	if v.IsSet(key) {
		*target = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, target *int) {
	if v.IsSet(key) {
		*target = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, target *bool) {
	if v.IsSet(key) {
		*target = v.GetBool(key)
	}
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
