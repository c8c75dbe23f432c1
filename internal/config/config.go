package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rpattn/consulta/internal/db"
)

// Config is the full runtime configuration.
type Config struct {
	Database  db.Config
	Server    ServerConfig
	Log       LogConfig
	Ingestion IngestionConfig
	Display   DisplayConfig
	Export    ExportConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	// MaxUploadBytes caps the multipart body of an import request.
	MaxUploadBytes int64
}

type LogConfig struct {
	Level             string
	Encoding          string
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
}

// IngestionConfig controls how uploaded sheets are read.
type IngestionConfig struct {
	ReferenceColumn   string
	EventColumn       string
	EventAtColumn     string
	MerchandiseColumn string

	ResolveByHeader   bool
	ReferenceHeader   string
	EventHeader       string
	EventAtHeader     string
	MerchandiseHeader string

	// Timezone names the zone dates are normalized and displayed in.
	Timezone string
}

type DisplayConfig struct {
	WindowDays int
}

type ExportConfig struct {
	FilePrefix string
	SheetName  string
	Directory  string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: 32 << 20,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Ingestion: IngestionConfig{
			ReferenceColumn:   "D",
			EventColumn:       "E",
			EventAtColumn:     "F",
			MerchandiseColumn: "Q",
			ReferenceHeader:   "Referência",
			EventHeader:       "Última Ocorrência",
			EventAtHeader:     "Data Última Ocorrência",
			MerchandiseHeader: "Valor Mercadoria",
			Timezone:          "America/Sao_Paulo",
		},
		Display: DisplayConfig{WindowDays: 7},
		Export: ExportConfig{
			FilePrefix: "ConsultaDafiti",
			SheetName:  "Consulta",
			Directory:  ".",
		},
	}
}

// Location resolves the configured timezone.
func (c IngestionConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid ingestion timezone %q: %w", name, err)
	}
	return loc, nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Database.Port)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Display.WindowDays <= 0 {
		return fmt.Errorf("display window must be positive, got %d days", c.Display.WindowDays)
	}
	if _, err := c.Ingestion.Location(); err != nil {
		return err
	}
	return nil
}
