// Package server assembles the execution engine with its collaborators.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/internal/app/executor/controller"
	"github.com/dennishilgert/fnexec/internal/app/executor/resolver"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	runtimeregistry "github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/internal/app/executor/validation"
	"github.com/dennishilgert/fnexec/internal/app/gateway"
	"github.com/dennishilgert/fnexec/internal/app/recorder"
	"github.com/dennishilgert/fnexec/internal/app/registry"
	"github.com/dennishilgert/fnexec/internal/app/registry/store"
	"github.com/dennishilgert/fnexec/pkg/cache"
	"github.com/dennishilgert/fnexec/pkg/concurrency/runner"
	"github.com/dennishilgert/fnexec/pkg/defers"
	"github.com/dennishilgert/fnexec/pkg/logger"
	"github.com/dennishilgert/fnexec/pkg/storage"
)

var log = logger.NewLogger("fnexec.server")

const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

type EngineOptions struct {
	WorkspaceRoot  string
	PythonBinary   string
	NodeBinary     string
	GoBinary       string
	GoCacheDir     string
	DefaultTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	MaxConcurrency int
	MaxOutputBytes int
	MaxSourceBytes int64
	PassEnv        []string
	// SourceDir anchors relative source paths.
	SourceDir string

	StorageEndpoint        string
	StorageAccessKeyId     string
	StorageSecretAccessKey string
	StorageUseSsl          bool

	CacheAddress    string
	CacheUsername   string
	CachePassword   string
	CacheDatabase   int
	CacheExpiration time.Duration
}

type Options struct {
	Engine EngineOptions

	ApiPort   int
	BodyLimit string

	StoreBackend     string
	StorageDir       string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUsername string
	DatabasePassword string
	DatabaseName     string
	DatabaseSslMode  bool

	MessagingBootstrapServers string
	MessagingTopic            string
	MessagingTopicPartitions  int
	MongoUri                  string
	MongoDatabase             string
	RecorderWorkerCount       int
	RecorderQueueSize         int
}

// Engine bundles the execution engine with the parts the registry shares.
type Engine struct {
	Runtimes  runtimeregistry.Registry
	Resolver  resolver.Resolver
	Validator validation.Validator
	Sources   *store.SourceLoader
	Executor  executor.Executor
}

// NewEngine creates the execution engine. Resources that need closing are
// registered on cleanup.
func NewEngine(ctx context.Context, opts EngineOptions, rec executor.Recorder, cleanup defers.Defers) (*Engine, error) {
	runtimeRegistry := runtimeregistry.NewRegistry(runtimeregistry.Options{
		Python:     runtimes.Options{BinaryPath: opts.PythonBinary},
		JavaScript: runtimes.Options{BinaryPath: opts.NodeBinary},
		Go:         runtimes.Options{BinaryPath: opts.GoBinary, CacheDir: opts.GoCacheDir},
	})

	var entryPointCache resolver.Cache
	if opts.CacheAddress != "" {
		cacheClient := cache.NewCacheClient(cache.Options{
			Address:  opts.CacheAddress,
			Username: opts.CacheUsername,
			Password: opts.CachePassword,
			Database: opts.CacheDatabase,
		})
		cleanup.AddErr(cacheClient.Close)
		if err := cacheClient.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to cache: %w", err)
		}
		entryPointCache = resolver.NewRedisCache(cacheClient, opts.CacheExpiration)
		log.Infof("caching entry points in redis at %s", opts.CacheAddress)
	}

	var objectStorage storage.StorageService
	if opts.StorageEndpoint != "" {
		var err error
		objectStorage, err = storage.NewStorageService(storage.Options{
			Endpoint:        opts.StorageEndpoint,
			AccessKeyId:     opts.StorageAccessKeyId,
			SecretAccessKey: opts.StorageSecretAccessKey,
			UseSsl:          opts.StorageUseSsl,
		})
		if err != nil {
			return nil, err
		}
		log.Infof("loading referenced sources from object storage at %s", opts.StorageEndpoint)
	}

	entryPointResolver := resolver.NewResolver(resolver.Options{
		Runtimes: runtimeRegistry,
		Cache:    entryPointCache,
	})
	validator := validation.NewValidator(validation.Options{})
	sources := store.NewSourceLoader(store.SourceOptions{
		BaseDir:        opts.SourceDir,
		MaxSourceBytes: opts.MaxSourceBytes,
		Storage:        objectStorage,
	})
	exec := executor.NewExecutor(executor.Options{
		Runtimes:  runtimeRegistry,
		Resolver:  entryPointResolver,
		Validator: validator,
		Controller: controller.NewController(controller.Options{
			WorkspaceRoot:  opts.WorkspaceRoot,
			MaxConcurrency: opts.MaxConcurrency,
			MaxOutputBytes: opts.MaxOutputBytes,
			PassEnv:        opts.PassEnv,
		}),
		Sources:  sources,
		Recorder: rec,
		Timeouts: executor.Timeouts{
			Default: opts.DefaultTimeout,
			Minimum: opts.MinTimeout,
			Maximum: opts.MaxTimeout,
		},
	})

	return &Engine{
		Runtimes:  runtimeRegistry,
		Resolver:  entryPointResolver,
		Validator: validator,
		Sources:   sources,
		Executor:  exec,
	}, nil
}

type Server interface {
	Run(ctx context.Context) error
}

type server struct {
	gateway  gateway.ApiGateway
	recorder recorder.Recorder
	cleanup  defers.Defers
}

// NewServer connects all configured backends and assembles the HTTP server.
func NewServer(ctx context.Context, opts Options) (Server, error) {
	cleanup := defers.NewDefers()
	s, err := newServer(ctx, opts, cleanup)
	if err != nil {
		if cleanupErr := cleanup.CallAll(); cleanupErr != nil {
			log.Warnf("failed to release resources: %v", cleanupErr)
		}
		return nil, err
	}
	return s, nil
}

func newServer(ctx context.Context, opts Options, cleanup defers.Defers) (s *server, err error) {
	functionStore, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	cleanup.AddErr(functionStore.Close)

	sinks := []recorder.Sink{recorder.NewLogSink()}
	// The recorder closes the sinks once it ran, until then they are ours.
	defer func() {
		if err == nil {
			return
		}
		for _, sink := range sinks {
			if closeErr := sink.Close(); closeErr != nil {
				log.Warnf("failed to close sink %s: %v", sink.Name(), closeErr)
			}
		}
	}()
	var history recorder.History
	if opts.MessagingBootstrapServers != "" {
		sink, err := recorder.NewKafkaSink(ctx, recorder.KafkaOptions{
			BootstrapServers: opts.MessagingBootstrapServers,
			Topic:            opts.MessagingTopic,
			Partitions:       opts.MessagingTopicPartitions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if opts.MongoUri != "" {
		sink, err := recorder.NewMongoSink(ctx, recorder.MongoOptions{
			Uri:      opts.MongoUri,
			Database: opts.MongoDatabase,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create mongo sink: %w", err)
		}
		sinks = append(sinks, sink)
		history = sink
	}
	rec := recorder.NewRecorder(recorder.Options{
		WorkerCount: opts.RecorderWorkerCount,
		QueueSize:   opts.RecorderQueueSize,
	}, sinks...)

	engine, err := NewEngine(ctx, opts.Engine, rec, cleanup)
	if err != nil {
		return nil, err
	}

	functionRegistry := registry.NewFunctionRegistry(registry.Options{
		Runtimes:  engine.Runtimes,
		Store:     functionStore,
		Sources:   engine.Sources,
		Resolver:  engine.Resolver,
		Validator: engine.Validator,
		Executor:  engine.Executor,
	})

	apiGateway := gateway.NewApiGateway(functionRegistry, engine.Executor, history, gateway.Options{
		ApiPort:     opts.ApiPort,
		BodyLimit:   opts.BodyLimit,
		MetricsPath: opts.Engine.WorkspaceRoot,
	})

	return &server{
		gateway:  apiGateway,
		recorder: rec,
		cleanup:  cleanup,
	}, nil
}

func newStore(opts Options) (store.Store, error) {
	switch opts.StoreBackend {
	case "", StoreBackendFile:
		return store.NewFileStore(opts.StorageDir)
	case StoreBackendPostgres:
		return store.NewPostgresStore(store.PostgresOptions{
			Host:     opts.DatabaseHost,
			Port:     opts.DatabasePort,
			Username: opts.DatabaseUsername,
			Password: opts.DatabasePassword,
			Database: opts.DatabaseName,
			SslMode:  opts.DatabaseSslMode,
		})
	}
	return nil, fmt.Errorf("unknown store backend: %s", opts.StoreBackend)
}

// Run serves until ctx is done. The recorder drains after the gateway stopped
// accepting invocations.
func (s *server) Run(ctx context.Context) error {
	log.Info("fnexec server is starting")

	recorderCtx, stopRecorder := context.WithCancel(context.WithoutCancel(ctx))
	recorderDone := make(chan error, 1)
	go func() {
		recorderDone <- s.recorder.Run(recorderCtx)
	}()

	manager := runner.NewRunnerManager()
	manager.Add("api gateway", s.gateway.Run)
	err := manager.Run(ctx)

	stopRecorder()
	if recorderErr := <-recorderDone; recorderErr != nil {
		err = errors.Join(err, recorderErr)
	}
	if cleanupErr := s.cleanup.CallAll(); cleanupErr != nil {
		err = errors.Join(err, cleanupErr)
	}
	return err
}
