package config

import (
	"path/filepath"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"postcode-pipeline"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// PostgreSQL
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:"postgres"`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"postcode_lookup"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Source data
	DataDir             string        `env:"DATA_DIR" env-default:"./data"`
	CodePointURL        string        `env:"CODEPOINT_URL" env-default:"https://api.os.uk/downloads/v1/products/CodePointOpen/downloads?area=GB&format=CSV&redirect"`
	NSPLURL             string        `env:"NSPL_URL" env-default:"https://www.arcgis.com/sharing/rest/content/items/latest/data"`
	OSMURL              string        `env:"OSM_URL" env-default:"https://download.geofabrik.de/europe/united-kingdom/england/greater-london-latest.osm.pbf"`
	DownloadTimeout     time.Duration `env:"DOWNLOAD_TIMEOUT" env-default:"1h"`
	DownloadConcurrency int           `env:"DOWNLOAD_CONCURRENCY" env-default:"3"`

	// Loading
	BatchSize int `env:"BATCH_SIZE" env-default:"10000"`

	// Kafka producer (lifecycle events, disabled by default)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaTopic        string   `env:"KAFKA_TOPIC" env-default:"pipeline-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing (inert when endpoint is empty)
	TracingEndpoint string `env:"OTLP_ENDPOINT" env-default:""`
}

// Load reads the optional .env file then binds environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, pipeerrors.NewConfigError("failed to bind environment", err)
	}

	return &cfg, nil
}

// CodePointFile is the on-disk location of the centroid source archive.
func (c *Config) CodePointFile() string {
	return filepath.Join(c.DataDir, "codepoint-open.zip")
}

// NSPLFile is the on-disk location of the hierarchy source archive.
func (c *Config) NSPLFile() string {
	return filepath.Join(c.DataDir, "nspl.zip")
}

// OSMFile is the on-disk location of the address source extract.
func (c *Config) OSMFile() string {
	return filepath.Join(c.DataDir, "extract.osm.pbf")
}
