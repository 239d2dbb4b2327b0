package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/dennishilgert/fnexec/internal/app/server"
	"github.com/dennishilgert/fnexec/pkg/configuration"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.config")

type Config struct {
	ApiPort   int
	BodyLimit string

	WorkspaceRoot    string
	PythonBinary     string
	NodeBinary       string
	GoBinary         string
	GoCacheDir       string
	DefaultTimeoutMs int64
	MinTimeoutMs     int64
	MaxTimeoutMs     int64
	MaxConcurrency   int
	MaxOutputBytes   int
	MaxSourceBytes   int64
	PassEnv          string
	SourceDir        string

	StoreBackend     string
	StorageDir       string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUsername string
	DatabasePassword string
	DatabaseName     string
	DatabaseSslMode  bool

	StorageEndpoint        string
	StorageAccessKeyId     string
	StorageSecretAccessKey string
	StorageUseSsl          bool

	CacheAddress           string
	CacheUsername          string
	CachePassword          string
	CacheDatabase          int
	CacheExpirationSeconds int

	MessagingBootstrapServers string
	MessagingTopic            string
	MessagingTopicPartitions  int
	MongoUri                  string
	MongoDatabase             string
	RecorderWorkerCount       int
	RecorderQueueSize         int
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	var config Config

	// automatically load environment variables that match
	viper.AutomaticEnv()
	viper.SetEnvPrefix("FNEXEC")

	configuration.LoadOrDefault("ApiPort", "FNEXEC_API_PORT", 8080)
	configuration.LoadOrDefault("BodyLimit", "FNEXEC_API_BODY_LIMIT", "4M")

	configuration.LoadOrDefault("WorkspaceRoot", "FNEXEC_WORKSPACE_ROOT", "")
	configuration.LoadOrDefault("PythonBinary", "FNEXEC_PYTHON_BINARY", "python3")
	configuration.LoadOrDefault("NodeBinary", "FNEXEC_NODE_BINARY", "node")
	configuration.LoadOrDefault("GoBinary", "FNEXEC_GO_BINARY", "go")
	configuration.LoadOrDefault("GoCacheDir", "FNEXEC_GO_CACHE_DIR", "")
	configuration.LoadOrDefault("DefaultTimeoutMs", "FNEXEC_DEFAULT_TIMEOUT_MS", 10000)
	configuration.LoadOrDefault("MinTimeoutMs", "FNEXEC_MIN_TIMEOUT_MS", 100)
	configuration.LoadOrDefault("MaxTimeoutMs", "FNEXEC_MAX_TIMEOUT_MS", 300000)
	configuration.LoadOrDefault("MaxConcurrency", "FNEXEC_MAX_CONCURRENCY", 8)
	configuration.LoadOrDefault("MaxOutputBytes", "FNEXEC_MAX_OUTPUT_BYTES", 1<<20)
	configuration.LoadOrDefault("MaxSourceBytes", "FNEXEC_MAX_SOURCE_BYTES", 1<<20)
	configuration.LoadOrDefault("PassEnv", "FNEXEC_PASS_ENV", "PATH")
	configuration.LoadOrDefault("SourceDir", "FNEXEC_SOURCE_DIR", "")

	configuration.LoadOrDefault("StoreBackend", "FNEXEC_STORE_BACKEND", server.StoreBackendFile)
	configuration.LoadOrDefault("StorageDir", "FNEXEC_STORAGE_DIR", "./functions")
	configuration.LoadOrDefault("DatabaseHost", "FNEXEC_DATABASE_HOST", "localhost")
	configuration.LoadOrDefault("DatabasePort", "FNEXEC_DATABASE_PORT", 5432)
	configuration.LoadOrDefault("DatabaseUsername", "FNEXEC_DATABASE_USERNAME", "fnexec")
	configuration.LoadOrDefault("DatabasePassword", "FNEXEC_DATABASE_PASSWORD", "")
	configuration.LoadOrDefault("DatabaseName", "FNEXEC_DATABASE_NAME", "fnexec")
	configuration.LoadOrDefault("DatabaseSslMode", "FNEXEC_DATABASE_SSL_MODE", false)

	configuration.LoadOrDefault("StorageEndpoint", "FNEXEC_STORAGE_ENDPOINT", "")
	configuration.LoadOrDefault("StorageAccessKeyId", "FNEXEC_STORAGE_ACCESS_KEY_ID", "")
	configuration.LoadOrDefault("StorageSecretAccessKey", "FNEXEC_STORAGE_SECRET_ACCESS_KEY", "")
	configuration.LoadOrDefault("StorageUseSsl", "FNEXEC_STORAGE_USE_SSL", false)

	configuration.LoadOrDefault("CacheAddress", "FNEXEC_CACHE_ADDRESS", "")
	configuration.LoadOrDefault("CacheUsername", "FNEXEC_CACHE_USERNAME", "")
	configuration.LoadOrDefault("CachePassword", "FNEXEC_CACHE_PASSWORD", "")
	configuration.LoadOrDefault("CacheDatabase", "FNEXEC_CACHE_DATABASE", 0)
	configuration.LoadOrDefault("CacheExpirationSeconds", "FNEXEC_CACHE_EXPIRATION_SECONDS", 3600)

	configuration.LoadOrDefault("MessagingBootstrapServers", "FNEXEC_MESSAGING_BOOTSTRAP_SERVERS", "")
	configuration.LoadOrDefault("MessagingTopic", "FNEXEC_MESSAGING_TOPIC", "fnexec_invocations")
	configuration.LoadOrDefault("MessagingTopicPartitions", "FNEXEC_MESSAGING_TOPIC_PARTITIONS", 3)
	configuration.LoadOrDefault("MongoUri", "FNEXEC_MONGO_URI", "")
	configuration.LoadOrDefault("MongoDatabase", "FNEXEC_MONGO_DATABASE", "fnexec")
	configuration.LoadOrDefault("RecorderWorkerCount", "FNEXEC_RECORDER_WORKER_COUNT", 2)
	configuration.LoadOrDefault("RecorderQueueSize", "FNEXEC_RECORDER_QUEUE_SIZE", 1024)

	// unmarshalling the Config struct
	if err := viper.Unmarshal(&config); err != nil {
		log.Errorf("unable to unmarshal config: %v", err)
		return nil, err
	}

	return &config, nil
}

// EngineOptions maps the configuration to the execution engine.
func (c *Config) EngineOptions() server.EngineOptions {
	return server.EngineOptions{
		WorkspaceRoot:          c.WorkspaceRoot,
		PythonBinary:           c.PythonBinary,
		NodeBinary:             c.NodeBinary,
		GoBinary:               c.GoBinary,
		GoCacheDir:             c.GoCacheDir,
		DefaultTimeout:         time.Duration(c.DefaultTimeoutMs) * time.Millisecond,
		MinTimeout:             time.Duration(c.MinTimeoutMs) * time.Millisecond,
		MaxTimeout:             time.Duration(c.MaxTimeoutMs) * time.Millisecond,
		MaxConcurrency:         c.MaxConcurrency,
		MaxOutputBytes:         c.MaxOutputBytes,
		MaxSourceBytes:         c.MaxSourceBytes,
		PassEnv:                configuration.SplitList(c.PassEnv),
		SourceDir:              c.SourceDir,
		StorageEndpoint:        c.StorageEndpoint,
		StorageAccessKeyId:     c.StorageAccessKeyId,
		StorageSecretAccessKey: c.StorageSecretAccessKey,
		StorageUseSsl:          c.StorageUseSsl,
		CacheAddress:           c.CacheAddress,
		CacheUsername:          c.CacheUsername,
		CachePassword:          c.CachePassword,
		CacheDatabase:          c.CacheDatabase,
		CacheExpiration:        time.Duration(c.CacheExpirationSeconds) * time.Second,
	}
}

// ServerOptions maps the configuration to the server.
func (c *Config) ServerOptions() server.Options {
	return server.Options{
		Engine:                    c.EngineOptions(),
		ApiPort:                   c.ApiPort,
		BodyLimit:                 c.BodyLimit,
		StoreBackend:              c.StoreBackend,
		StorageDir:                c.StorageDir,
		DatabaseHost:              c.DatabaseHost,
		DatabasePort:              c.DatabasePort,
		DatabaseUsername:          c.DatabaseUsername,
		DatabasePassword:          c.DatabasePassword,
		DatabaseName:              c.DatabaseName,
		DatabaseSslMode:           c.DatabaseSslMode,
		MessagingBootstrapServers: c.MessagingBootstrapServers,
		MessagingTopic:            c.MessagingTopic,
		MessagingTopicPartitions:  c.MessagingTopicPartitions,
		MongoUri:                  c.MongoUri,
		MongoDatabase:             c.MongoDatabase,
		RecorderWorkerCount:       c.RecorderWorkerCount,
		RecorderQueueSize:         c.RecorderQueueSize,
	}
}
