package config

import (
	"fmt"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/postmigrate/pkg/command"
	"github.com/ifuryst/postmigrate/pkg/logger"
)

type Config struct {
	Logger   logger.Config  `yaml:"logger"`
	Feed     FeedConfig     `yaml:"feed"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Loader   LoaderConfig   `yaml:"loader"`
	Store    StoreConfig    `yaml:"store"`
	Policy   PolicyConfig   `yaml:"policy"`
	Deploy   command.Config `yaml:"deploy"`
}

type FeedConfig struct {
	Path string `yaml:"path"`
}

type ArtifactConfig struct {
	Path string `yaml:"path"`
}

type LoaderConfig struct {
	Collection       string `yaml:"collection"`
	Delay            string `yaml:"delay"`
	FailureThreshold int    `yaml:"failure_threshold"`
	TitleWidth       int    `yaml:"title_width"`
}

// PacingDelay parses Delay. An unparseable value is a config error, not a
// silent zero.
func (c LoaderConfig) PacingDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid loader delay %q: %w", c.Delay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid loader delay %q: must not be negative", c.Delay)
	}
	return d, nil
}

type StoreConfig struct {
	Type     string         `yaml:"type"` // mongodb, dynamodb, postgres
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type DynamoDBConfig struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"` // DynamoDB Local
	TablePrefix string `yaml:"table_prefix"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type PolicyConfig struct {
	LivePath       string `yaml:"live_path"`
	BackupPath     string `yaml:"backup_path"`
	PermissivePath string `yaml:"permissive_path"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = "data/legacy-feed.xml"
	}
	if cfg.Artifact.Path == "" {
		cfg.Artifact.Path = "data/posts.json"
	}

	if cfg.Loader.Collection == "" {
		cfg.Loader.Collection = "posts"
	}
	if cfg.Loader.Delay == "" {
		cfg.Loader.Delay = "150ms"
	}
	if cfg.Loader.FailureThreshold == 0 {
		cfg.Loader.FailureThreshold = 5
	}
	if cfg.Loader.TitleWidth == 0 {
		cfg.Loader.TitleWidth = 50
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "mongodb"
	}
	if cfg.Store.MongoDB.URI == "" {
		cfg.Store.MongoDB.URI = "mongodb://localhost:27017"
	}
	if cfg.Store.MongoDB.Database == "" {
		cfg.Store.MongoDB.Database = "parish"
	}
	if cfg.Store.DynamoDB.Region == "" {
		cfg.Store.DynamoDB.Region = "us-west-2"
	}
	if cfg.Store.Postgres.Host == "" {
		cfg.Store.Postgres.Host = "localhost"
	}
	if cfg.Store.Postgres.Port == 0 {
		cfg.Store.Postgres.Port = 5432
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}
	if cfg.Store.Postgres.TimeZone == "" {
		cfg.Store.Postgres.TimeZone = "UTC"
	}

	if cfg.Policy.LivePath == "" {
		cfg.Policy.LivePath = "firestore.rules"
	}
	if cfg.Policy.BackupPath == "" {
		cfg.Policy.BackupPath = cfg.Policy.LivePath + ".backup"
	}
	if cfg.Policy.PermissivePath == "" {
		cfg.Policy.PermissivePath = cfg.Policy.LivePath + ".migration"
	}

	if cfg.Deploy.Command == "" {
		cfg.Deploy.Command = "firebase"
		if len(cfg.Deploy.Args) == 0 {
			cfg.Deploy.Args = []string{"deploy", "--only", "firestore:rules"}
		}
	}
}
