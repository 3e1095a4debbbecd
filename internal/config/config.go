// Package config handles configuration loading for the GestionAR
// backend.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows sensitive
// values like the taxpayer's private key to be injected at runtime.
//
// # Example Configuration
//
//	server:
//	  port: 3001
//
//	arca:
//	  environment: homologacion
//	  cuit: 20123456789
//	  service: wsfe
//	  certificate:
//	    path: /etc/gestionar/certs/certificado.pem
//	  privateKey:
//	    content: ${ARCA_KEY}
//
//	storage:
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: gestionar
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	ARCA    ARCAConfig    `yaml:"arca"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ARCAConfig holds credentials and environment selection for the ARCA
// web services
type ARCAConfig struct {
	// Environment selects the endpoint pair: "homologacion" (testing)
	// or "produccion".
	Environment arca.Environment `yaml:"environment"`

	// CUIT is the tax identifier the certificate was issued for.
	CUIT int64 `yaml:"cuit"`

	// Service is the WSAA logical service name.
	Service string `yaml:"service"`

	Certificate Material `yaml:"certificate"`
	PrivateKey  Material `yaml:"privateKey"`
}

// Material is a PEM blob supplied either inline or as a file path.
// Inline content wins when both are set.
type Material struct {
	Content string `yaml:"content"`
	Path    string `yaml:"path"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	MongoDB MongoDBConfig `yaml:"mongodb"`
}

// MongoDBConfig holds MongoDB connection settings. An empty URI
// disables voucher persistence.
type MongoDBConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.ARCA.Environment == "" {
		c.ARCA.Environment = arca.Testing
	}
	if c.ARCA.Service == "" {
		c.ARCA.Service = "wsfe"
	}
	if c.Storage.MongoDB.URI != "" && c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "gestionar"
	}
}

func (c *Config) validate() error {
	if !c.ARCA.Environment.Valid() {
		return fmt.Errorf("arca.environment must be '%s' or '%s', got '%s'",
			arca.Testing, arca.Production, c.ARCA.Environment)
	}
	if c.ARCA.CUIT <= 0 {
		return fmt.Errorf("arca.cuit is required")
	}
	if c.ARCA.Certificate.Content == "" && c.ARCA.Certificate.Path == "" {
		return fmt.Errorf("arca.certificate requires content or path")
	}
	if c.ARCA.PrivateKey.Content == "" && c.ARCA.PrivateKey.Path == "" {
		return fmt.Errorf("arca.privateKey requires content or path")
	}
	return nil
}
