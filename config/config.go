/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	// Pipeline defaults. The legacy system hard-coded these as literal
	// values inside the matching engine; they live here so deployments
	// can tune them without a rebuild.
	DEFAULT_AMOUNT_TOLERANCE     = 50.0
	DEFAULT_AUTO_LINK_THRESHOLD  = 0.8
	DEFAULT_BATCH_SIZE           = 100
	DEFAULT_INTER_BATCH_DELAY_MS = 1000
	DEFAULT_MAX_WORKERS          = 10
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"FLEETPAY_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"FLEETPAY_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FLEETPAY_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"FLEETPAY_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"FLEETPAY_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"FLEETPAY_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FLEETPAY_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"FLEETPAY_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"FLEETPAY_REDIS_SKIP_TLS_VERIFY"`
}

type TypeSenseConfig struct {
	Dns string `json:"dns" envconfig:"FLEETPAY_TYPESENSE_DNS"`
}

type QueueConfig struct {
	IndexQueue     string `json:"index_queue" envconfig:"FLEETPAY_QUEUE_INDEX"`
	WebhookQueue   string `json:"webhook_queue" envconfig:"FLEETPAY_QUEUE_WEBHOOK"`
	MonitoringPort string `json:"monitoring_port" envconfig:"FLEETPAY_QUEUE_MONITORING_PORT"`
}

// PipelineConfig carries the heuristic constants used by the import and
// linking pipelines.
type PipelineConfig struct {
	AmountTolerance             float64 `json:"amount_tolerance" envconfig:"FLEETPAY_PIPELINE_AMOUNT_TOLERANCE"`
	AutoLinkConfidenceThreshold float64 `json:"auto_link_confidence_threshold" envconfig:"FLEETPAY_PIPELINE_AUTO_LINK_THRESHOLD"`
	DefaultBatchSize            int     `json:"default_batch_size" envconfig:"FLEETPAY_PIPELINE_BATCH_SIZE"`
	InterBatchDelayMs           int     `json:"inter_batch_delay_ms" envconfig:"FLEETPAY_PIPELINE_INTER_BATCH_DELAY_MS"`
	MaxWorkers                  int     `json:"max_workers" envconfig:"FLEETPAY_PIPELINE_MAX_WORKERS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FLEETPAY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FLEETPAY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FLEETPAY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"FLEETPAY_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"FLEETPAY_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	TypeSense    TypeSenseConfig  `json:"typesense"`
	TypeSenseKey string           `json:"type_sense_key" envconfig:"FLEETPAY_TYPESENSE_KEY"`
	Queue        QueueConfig      `json:"queue"`
	Pipeline     PipelineConfig   `json:"pipeline"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`

	EnableTelemetry bool `json:"enable_telemetry" envconfig:"FLEETPAY_ENABLE_TELEMETRY"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("fleetpay", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called fleetpay.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Fleetpay Server"
	}

	if cnf.TypeSense.Dns == "" {
		cnf.TypeSense.Dns = "http://typesense:8108"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.IndexQueue == "" {
		cnf.Queue.IndexQueue = "new:payment"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5001"
	}

	if cnf.Pipeline.AmountTolerance <= 0 {
		cnf.Pipeline.AmountTolerance = DEFAULT_AMOUNT_TOLERANCE
	}
	if cnf.Pipeline.AutoLinkConfidenceThreshold <= 0 {
		cnf.Pipeline.AutoLinkConfidenceThreshold = DEFAULT_AUTO_LINK_THRESHOLD
	}
	if cnf.Pipeline.DefaultBatchSize <= 0 {
		cnf.Pipeline.DefaultBatchSize = DEFAULT_BATCH_SIZE
	}
	if cnf.Pipeline.InterBatchDelayMs < 0 {
		cnf.Pipeline.InterBatchDelayMs = DEFAULT_INTER_BATCH_DELAY_MS
	}
	if cnf.Pipeline.MaxWorkers <= 0 {
		cnf.Pipeline.MaxWorkers = DEFAULT_MAX_WORKERS
	}

	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Pipeline.AmountTolerance == 0 {
		mockConfig.Pipeline.AmountTolerance = DEFAULT_AMOUNT_TOLERANCE
	}
	if mockConfig.Pipeline.AutoLinkConfidenceThreshold == 0 {
		mockConfig.Pipeline.AutoLinkConfidenceThreshold = DEFAULT_AUTO_LINK_THRESHOLD
	}
	if mockConfig.Pipeline.DefaultBatchSize == 0 {
		mockConfig.Pipeline.DefaultBatchSize = DEFAULT_BATCH_SIZE
	}
	if mockConfig.Pipeline.MaxWorkers == 0 {
		mockConfig.Pipeline.MaxWorkers = DEFAULT_MAX_WORKERS
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
