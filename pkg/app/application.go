package app

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"civic-api/pkg/client"
	"civic-api/pkg/event"
	"civic-api/pkg/fingerprint"
	"civic-api/pkg/ingest"
	"civic-api/pkg/metric"
	"civic-api/pkg/photo"
	"civic-api/pkg/report"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// About provides basic information about the API.
type About struct {
	Name        string    `json:"name"`
	BaseDomain  string    `json:"baseDomain"`
	GitHash     string    `json:"gitHash,omitempty"`
	BuildTime   time.Time `json:"buildTime"`
	Language    string    `json:"language"`
	Environment string    `json:"environment"`
	Description string    `json:"description,omitempty"`
}

// String supports the Stringer interface.
func (a About) String() string {
	return fmt.Sprintf("Name: %s\nGitHash: %s\nBuildTime: %s\nLanguage: %s\nEnvironment: %s\nDescription: %s",
		a.Name, a.GitHash, a.BuildTime, a.Language, a.Environment, a.Description)
}

// Application is the main application object, which contains configuration settings, clients, and initialized services.
type Application struct {
	Name               string                // Name of the application
	GitHash            string                // Git hash of the application
	BuildTime          time.Time             // Executable build time
	Language           string                // Go Compiler version (e.g. "go1.x")
	Environment        string                // Environment name (e.g. "dev", "test", "staging", "prod")
	BaseDomain         string                // Base domain for the application (e.g. "civic.example.org")
	APIURL             string                // API URL (e.g. "https://api.civic.example.org")
	Description        string                // Description of the application
	EntityTypes        []string              // Entity types with DynamoDB tables (e.g. "Issue", "Event")
	BucketTypes        []string              // Entity types with S3 buckets (e.g. "Photo")
	Logger             zerolog.Logger        // Structured logger for services and requests
	AWSConfig          aws.Config            // AWS Configuration
	DBClient           *dynamodb.Client      // DynamoDB client
	S3Client           *s3.Client            // S3 client
	ParameterStore     client.ParameterStore // AWS SSM Parameter Store client
	IngestConfig       ingest.Config         // Resolved ingestion pipeline settings
	IssueService       report.Service
	FingerprintService fingerprint.Service
	PhotoService       photo.Service
	EventService       event.Service
	EventBus           *event.Bus
	MetricService      metric.Service
	MetricRecorder     *metric.Recorder
	Ingest             *ingest.Orchestrator
}

// About returns basic information about the initialized Application.
func (a *Application) About() About {
	return About{
		Name:        a.Name,
		BaseDomain:  a.BaseDomain,
		GitHash:     a.GitHash,
		BuildTime:   a.BuildTime,
		Language:    a.Language,
		Environment: a.Environment,
		Description: a.Description,
	}
}

// setDefaults sets default configuration settings for the application.
func (a *Application) setDefaults() {
	if a.Name == "" {
		a.Name = "Civic API"
	}
	if a.BuildTime.IsZero() {
		p, err := os.Executable()
		if err == nil {
			s, err := os.Stat(p)
			if err == nil {
				a.BuildTime = s.ModTime()
			}
		}
	}
	if a.Language == "" {
		a.Language = runtime.Version() + " (" + runtime.GOOS + " " + runtime.GOARCH + ")"
	}
	if a.Environment == "" {
		a.Environment = "dev"
	}
	if a.BaseDomain == "" {
		a.BaseDomain = "civic.example.org"
	}
	if a.APIURL == "" {
		if a.Environment == "prod" {
			a.APIURL = "https://api." + a.BaseDomain
		} else {
			a.APIURL = "https://api-" + a.Environment + "." + a.BaseDomain
		}
	}
	a.EntityTypes = []string{
		"Event",
		"Fingerprint",
		"Issue",
		"Metric",
	}
	a.BucketTypes = []string{
		"Photo",
	}
}

// newLogger returns a JSON logger for the environment. The level can be set with CIVIC_LOG_LEVEL.
func (a *Application) newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("CIVIC_LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		level = l
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().
		Str("app", a.Name).Str("env", a.Environment).Logger()
}

// initIngest wires the ingestion pipeline to the initialized services.
func (a *Application) initIngest() error {
	a.EventBus = event.NewBus(a.EventService, a.Logger)
	a.MetricRecorder = metric.NewRecorder(a.MetricService, a.Logger)
	o, err := ingest.New(a.IngestConfig, a.IssueService, a.FingerprintService, a.PhotoService, a.EventBus, a.Logger)
	if err != nil {
		return fmt.Errorf("error initializing ingest pipeline: %w", err)
	}
	o.Metrics = a.MetricRecorder
	a.Ingest = o
	return nil
}

// Init initializes the application, including clients and services.
func (a *Application) Init(env string) error {
	a.Environment = env
	a.setDefaults()
	if err := LoadDotEnv(); err != nil {
		return err
	}
	a.Logger = a.newLogger()

	// Initialize AWS Clients
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("error loading AWS config: %w", err)
	}
	a.AWSConfig = cfg
	a.DBClient = dynamodb.NewFromConfig(cfg)
	a.S3Client = s3.NewFromConfig(cfg)
	a.ParameterStore = client.NewParameterStore(cfg)

	// Resolve the pipeline settings
	a.IngestConfig, err = LoadIngestConfig(ctx, a.Environment, a.ParameterStore, os.LookupEnv)
	if err != nil {
		return err
	}

	// Initialize Services
	a.IssueService = report.NewService(a.DBClient, a.Environment)
	a.FingerprintService = fingerprint.NewService(a.DBClient, a.Environment)
	a.PhotoService = photo.NewService(a.S3Client, a.Environment)
	a.EventService = event.NewService(a.DBClient, a.Environment)
	a.MetricService = metric.NewService(a.DBClient, a.Environment)
	return a.initIngest()
}

// InitMock initializes the application for testing, including mock clients and services.
// Settings come from defaults and the mock ParameterStore only; the process environment is ignored.
func (a *Application) InitMock(env string) error {
	a.Environment = env
	a.setDefaults()
	a.Logger = zerolog.Nop()

	// Initialize Mock Clients
	if !a.ParameterStore.IsConfigured() {
		a.ParameterStore = client.NewParameterStoreMock()
	}
	var err error
	a.IngestConfig, err = LoadIngestConfig(context.Background(), a.Environment, a.ParameterStore, noEnv)
	if err != nil {
		return err
	}

	// Initialize Services
	a.IssueService = report.NewMockService(a.Environment)
	a.FingerprintService = fingerprint.NewMockService(a.Environment)
	a.PhotoService = photo.NewMockService(a.Environment)
	a.EventService = event.NewMockService(a.Environment)
	a.MetricService = metric.NewMockService(a.Environment)
	return a.initIngest()
}

// Wait drains in-flight background work: event publishing and metric recording.
func (a *Application) Wait() {
	if a.EventBus != nil {
		a.EventBus.Wait()
	}
	if a.MetricRecorder != nil {
		a.MetricRecorder.Wait()
	}
}
