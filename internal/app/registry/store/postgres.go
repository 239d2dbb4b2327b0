package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.store")

type PostgresOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SslMode  bool
	Timezone string
}

// FunctionModel is the database representation of a function spec.
type FunctionModel struct {
	Name            string `gorm:"primaryKey; not null"`
	Description     string
	Language        string `gorm:"not null"`
	Source          string `gorm:"type:text"`
	SourcePath      string
	EntryPoint      string
	ParameterSchema string         `gorm:"type:text"`
	TimeoutMs       int64          `gorm:"not null; default:0"`
	Dependencies    pq.StringArray `gorm:"type:text[]"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (FunctionModel) TableName() string {
	return "functions"
}

func toModel(spec *function.Spec) *FunctionModel {
	return &FunctionModel{
		Name:            spec.Name,
		Description:     spec.Description,
		Language:        string(spec.Language),
		Source:          spec.Source,
		SourcePath:      spec.SourcePath,
		EntryPoint:      spec.EntryPoint,
		ParameterSchema: string(spec.ParameterSchema),
		TimeoutMs:       spec.TimeoutMs,
		Dependencies:    pq.StringArray(spec.Dependencies),
	}
}

func (m *FunctionModel) toSpec() *function.Spec {
	spec := &function.Spec{
		Name:         m.Name,
		Description:  m.Description,
		Language:     function.Language(m.Language),
		Source:       m.Source,
		SourcePath:   m.SourcePath,
		EntryPoint:   m.EntryPoint,
		TimeoutMs:    m.TimeoutMs,
		Dependencies: []string(m.Dependencies),
	}
	if m.ParameterSchema != "" {
		spec.ParameterSchema = json.RawMessage(m.ParameterSchema)
	}
	return spec
}

type postgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to postgres and migrates the functions table.
func NewPostgresStore(opts PostgresOptions) (Store, error) {
	log.Infof("connecting to database server: %s:%d", opts.Host, opts.Port)

	sslMode := "disable"
	if opts.SslMode {
		sslMode = "require"
	}
	timezone := "UTC"
	if opts.Timezone != "" {
		timezone = opts.Timezone
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s", opts.Host, opts.Port, opts.Username, opts.Password, opts.Database, sslMode, timezone)
	gormDb, err := gorm.Open(postgres.New(postgres.Config{
		DSN: dsn,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormStore(gormDb)
}

// NewGormStore creates a store on an open gorm connection.
func NewGormStore(db *gorm.DB) (Store, error) {
	log.Infof("migrating database schema")
	if err := db.AutoMigrate(&FunctionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Create(ctx context.Context, spec *function.Spec) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&FunctionModel{}).Where("name = ?", spec.Name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check function %s: %w", spec.Name, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrFunctionExists, spec.Name)
	}
	if err := s.db.WithContext(ctx).Create(toModel(spec)).Error; err != nil {
		return fmt.Errorf("failed to create function %s: %w", spec.Name, err)
	}
	return nil
}

func (s *postgresStore) Update(ctx context.Context, spec *function.Spec) error {
	model := toModel(spec)
	result := s.db.WithContext(ctx).Model(&FunctionModel{}).Where("name = ?", spec.Name).Select("*").Omit("name", "created_at").Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update function %s: %w", spec.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, spec.Name)
	}
	return nil
}

func (s *postgresStore) Load(ctx context.Context, name string) (*function.Spec, error) {
	var model FunctionModel
	if err := s.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
		}
		return nil, fmt.Errorf("failed to get function %s: %w", name, err)
	}
	return model.toSpec(), nil
}

func (s *postgresStore) List(ctx context.Context) ([]*function.Spec, error) {
	var models []FunctionModel
	if err := s.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	specs := make([]*function.Spec, 0, len(models))
	for i := range models {
		specs = append(specs, models[i].toSpec())
	}
	return specs, nil
}

func (s *postgresStore) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Delete(&FunctionModel{}, "name = ?", name)
	if result.Error != nil {
		return fmt.Errorf("failed to delete function %s: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return nil
}

// Close closes the database connection.
func (s *postgresStore) Close() error {
	log.Infof("closing database connection")
	sqlDb, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	if err := sqlDb.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
