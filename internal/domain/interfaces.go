package domain

import (
	"context"
)

// Analyzer turns a screening into a clinical analysis
type Analyzer interface {
	Analyze(input ScreeningInput) ClinicalAnalysis
}

// ScreeningParser validates and decodes screening questionnaires received at the system boundary
type ScreeningParser interface {
	ParseJSON(data []byte) (ScreeningInput, error)
	ParseYAML(data []byte) (ScreeningInput, error)
	ParseMap(fields map[string]any) (ScreeningInput, error)
}

// ScreeningRepository defines the interface for screening persistence
type ScreeningRepository interface {
	SaveScreening(ctx context.Context, screening *Screening) error
	GetScreening(ctx context.Context, patientID string) (*Screening, error)
	LockScreening(ctx context.Context, patientID string) error
}

// AnalysisRecordRepository defines the interface for analysis record persistence
type AnalysisRecordRepository interface {
	SaveAnalysisRecord(ctx context.Context, record *AnalysisRecord) error
	GetLatestAnalysisRecord(ctx context.Context, patientID string) (*AnalysisRecord, error)
	ListAnalysisRecords(ctx context.Context, patientID string, limit int) ([]*AnalysisRecord, error)
}

// AnalysisCache stores serialized analyses keyed by screening hash
type AnalysisCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Validate() error
	IsProduction() bool
}
