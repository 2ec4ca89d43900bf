package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".agentboard/data"`
	// S3 settings (Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"agentboard/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// Type == "sqlite"
	SQLitePath string `envconfig:"SQLITE_PATH" default:".agentboard/board.db"`
	// Type == "postgres"
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

type PipelineEnv struct {
	// ConfigPath points at a YAML edge set. Empty keeps the linear default.
	ConfigPath string `envconfig:"PIPELINE_CONFIG"`
	Watch      bool   `envconfig:"PIPELINE_WATCH" default:"true"`
}

type RuntimeEnv struct {
	// Type is "registry" (workers connect to this server) or "gateway"
	// (dispatches are posted to an external runtime).
	Type           string `envconfig:"RUNTIME_TYPE" default:"registry"`
	URL            string `envconfig:"RUNTIME_URL"`
	Token          string `envconfig:"RUNTIME_TOKEN"`
	DefaultAgentID string `envconfig:"DEFAULT_AGENT_ID" default:"default"`
	TimeoutSeconds int    `envconfig:"JOB_TIMEOUT_SECONDS" default:"3600"`
}

type JobEnv struct {
	StaleThreshold   time.Duration `envconfig:"STALE_THRESHOLD" default:"5m"`
	RecoveryInterval time.Duration `envconfig:"RECOVERY_INTERVAL" default:"1m"`
	ChatHistory      int           `envconfig:"PROMPT_CHAT_HISTORY" default:"20"`
}

type VAPIDEnv struct {
	PublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	PrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	Subject    string `envconfig:"VAPID_SUBJECT" default:"mailto:admin@example.com"`
}

type GitEnv struct {
	PRScript   string `envconfig:"PR_SCRIPT"`
	BaseBranch string `envconfig:"PR_BASE_BRANCH" default:"main"`
	WorkDir    string `envconfig:"PR_WORK_DIR" default:"."`
}

type Env struct {
	BaseEnv
	StorageEnv
	PipelineEnv
	RuntimeEnv
	JobEnv
	VAPIDEnv
	GitEnv
}

const namespace = "AGENTBOARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Type {
	case "local", "sqlite":
	case "s3":
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required for s3 storage", namespace)
		}
	case "postgres":
		if e.PostgresDSN == "" {
			return fmt.Errorf("%s_POSTGRES_DSN is required for postgres storage", namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	switch e.RuntimeEnv.Type {
	case "registry":
	case "gateway":
		if e.RuntimeEnv.URL == "" {
			return fmt.Errorf("%s_RUNTIME_URL is required for the gateway runtime", namespace)
		}
	default:
		return fmt.Errorf("unknown runtime type %q", e.RuntimeEnv.Type)
	}
	if e.StaleThreshold <= 0 {
		return fmt.Errorf("%s_STALE_THRESHOLD must be positive", namespace)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func (e *BaseEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}

func (e *VAPIDEnv) Enabled() bool {
	return e.PublicKey != "" && e.PrivateKey != ""
}
