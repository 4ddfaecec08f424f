// Package config provides the configuration for the blobcast export job.
// It defines a single Config value object constructed once at startup and
// passed by reference into each pipeline stage; there is no global mutable
// configuration state.
//
// The configuration is organized into logical sections:
//   - Postgres: the relational source (host, credentials, table, row limit)
//   - Mongo: the document staging store (URI, database, collection)
//   - Azure: the blob distribution store (connection string, container)
//   - Export: artifact naming and the local intermediate file
//   - Timeouts: per-run and per-connection deadlines
//   - Log: logging level and encoding
//
// Values are read from the environment (a .env file is honored by the CLI),
// using the same variable names as the original deployment:
//
//	PG_HOST, PG_PORT, PG_DATABASE, PG_USER, PG_PASSWORD
//	MONGO_URI, MONGO_DB, MONGO_COLLECTION
//	AZURE_STORAGE_CONNECTION_STRING, AZURE_CONTAINER_NAME
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBlobName is the fixed artifact name. Keeping it constant across
// runs makes the published download URL stable.
const DefaultBlobName = "data_export.csv"

// Config is the configuration for one pipeline run.
type Config struct {
	Postgres PostgresConfig `json:"postgres"`
	Mongo    MongoConfig    `json:"mongo"`
	Azure    AzureConfig    `json:"azure"`
	Export   ExportConfig   `json:"export"`
	Timeouts TimeoutConfig  `json:"timeouts"`
	Log      LogConfig      `json:"log"`
}

// PostgresConfig identifies the relational source and the slice to extract.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"-"`

	// Table is the fully qualified table to export from.
	Table string `json:"table"`
	// OrderBy is the stable ascending ordering key.
	OrderBy string `json:"order_by"`
	// Limit bounds the number of rows extracted per run.
	Limit int `json:"limit"`
}

// DSN returns the pgx connection string for the source database.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

// MongoConfig identifies the document staging store.
type MongoConfig struct {
	URI        string `json:"-"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// AzureConfig identifies the blob distribution store.
type AzureConfig struct {
	ConnectionString string `json:"-"`
	Container        string `json:"container"`

	// Account is parsed out of the connection string at load time; the
	// retrieval URL is constructed from it rather than from any
	// upload-time response.
	Account string `json:"account"`
	// EndpointSuffix is the blob endpoint domain, normally
	// core.windows.net.
	EndpointSuffix string `json:"endpoint_suffix"`
}

// BlobURL returns the deterministic public URL of the named blob.
func (a *AzureConfig) BlobURL(blobName string) string {
	return fmt.Sprintf("https://%s.blob.%s/%s/%s", a.Account, a.EndpointSuffix, a.Container, blobName)
}

// ExportConfig controls artifact naming and the intermediate local file.
type ExportConfig struct {
	// BlobName is the fixed blob name; successive runs overwrite it.
	BlobName string `json:"blob_name"`
	// LocalPath is where the serializer materializes the artifact before
	// upload. It is removed after the publish attempt.
	LocalPath string `json:"local_path"`
}

// TimeoutConfig contains timeout-related settings.
type TimeoutConfig struct {
	// Run bounds one full pipeline invocation.
	Run time.Duration `json:"run"`
	// Connection bounds establishing a connection to any of the stores.
	Connection time.Duration `json:"connection"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level    string `json:"level"`
	Encoding string `json:"encoding"`
}

// New returns a Config with production defaults. Callers normally follow
// with Load to overlay environment values.
func New() *Config {
	return &Config{
		Postgres: PostgresConfig{
			Port:    5432,
			Table:   "public.customers",
			OrderBy: "id",
			Limit:   100,
		},
		Azure: AzureConfig{
			EndpointSuffix: "core.windows.net",
		},
		Export: ExportConfig{
			BlobName:  DefaultBlobName,
			LocalPath: DefaultBlobName,
		},
		Timeouts: TimeoutConfig{
			Run:        10 * time.Minute,
			Connection: 10 * time.Second,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads configuration from the environment into a new Config.
func Load() (*Config, error) {
	cfg := New()

	v := viper.New()
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"postgres.host":           "PG_HOST",
		"postgres.port":           "PG_PORT",
		"postgres.database":       "PG_DATABASE",
		"postgres.user":           "PG_USER",
		"postgres.password":       "PG_PASSWORD",
		"postgres.table":          "PG_TABLE",
		"postgres.order_by":       "PG_ORDER_BY",
		"postgres.limit":          "PG_ROW_LIMIT",
		"mongo.uri":               "MONGO_URI",
		"mongo.database":          "MONGO_DB",
		"mongo.collection":        "MONGO_COLLECTION",
		"azure.connection_string": "AZURE_STORAGE_CONNECTION_STRING",
		"azure.container":         "AZURE_CONTAINER_NAME",
		"log.level":               "LOG_LEVEL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if s := v.GetString("postgres.host"); s != "" {
		cfg.Postgres.Host = s
	}
	if n := v.GetInt("postgres.port"); n > 0 {
		cfg.Postgres.Port = n
	}
	if s := v.GetString("postgres.database"); s != "" {
		cfg.Postgres.Database = s
	}
	if s := v.GetString("postgres.user"); s != "" {
		cfg.Postgres.User = s
	}
	if s := v.GetString("postgres.password"); s != "" {
		cfg.Postgres.Password = s
	}
	if s := v.GetString("postgres.table"); s != "" {
		cfg.Postgres.Table = s
	}
	if s := v.GetString("postgres.order_by"); s != "" {
		cfg.Postgres.OrderBy = s
	}
	if n := v.GetInt("postgres.limit"); n > 0 {
		cfg.Postgres.Limit = n
	}
	if s := v.GetString("mongo.uri"); s != "" {
		cfg.Mongo.URI = s
	}
	if s := v.GetString("mongo.database"); s != "" {
		cfg.Mongo.Database = s
	}
	if s := v.GetString("mongo.collection"); s != "" {
		cfg.Mongo.Collection = s
	}
	if s := v.GetString("azure.connection_string"); s != "" {
		cfg.Azure.ConnectionString = s
	}
	if s := v.GetString("azure.container"); s != "" {
		cfg.Azure.Container = s
	}
	if s := v.GetString("log.level"); s != "" {
		cfg.Log.Level = s
	}

	if cfg.Azure.ConnectionString != "" {
		account, suffix, err := parseConnectionString(cfg.Azure.ConnectionString)
		if err != nil {
			return nil, err
		}
		cfg.Azure.Account = account
		if suffix != "" {
			cfg.Azure.EndpointSuffix = suffix
		}
	}

	return cfg, nil
}

// parseConnectionString extracts the account name and endpoint suffix from
// an Azure storage connection string of the usual
// "AccountName=...;AccountKey=...;EndpointSuffix=..." form.
func parseConnectionString(connStr string) (account, suffix string, err error) {
	for _, part := range strings.Split(connStr, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "AccountName":
			account = value
		case "EndpointSuffix":
			suffix = value
		}
	}
	if account == "" {
		return "", "", fmt.Errorf("connection string has no AccountName")
	}
	return account, suffix, nil
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable
// ranges. The CLI calls this after loading to catch errors early.
func (c *Config) Validate() error {
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	if c.Postgres.User == "" {
		return fmt.Errorf("postgres user is required")
	}
	if c.Postgres.Table == "" {
		return fmt.Errorf("postgres table is required")
	}
	if c.Postgres.OrderBy == "" {
		return fmt.Errorf("postgres order_by is required")
	}
	if c.Postgres.Limit <= 0 {
		return fmt.Errorf("postgres limit must be positive")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required")
	}
	if c.Mongo.Collection == "" {
		return fmt.Errorf("mongo collection is required")
	}
	if c.Azure.ConnectionString == "" {
		return fmt.Errorf("azure connection string is required")
	}
	if c.Azure.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	if c.Export.BlobName == "" {
		return fmt.Errorf("export blob name is required")
	}
	return nil
}
