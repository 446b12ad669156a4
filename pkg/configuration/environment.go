package configuration

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/pkg/logging"
)

// LoadEnv loads the given dotenv files. Files missing from the working
// directory are looked up in the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	root := moduleRoot()
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root == "" || filepath.IsAbs(file) {
			continue
		}
		if candidate := filepath.Join(root, file); fs.FileExists(candidate) {
			existingFiles = append(existingFiles, candidate)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type APIOptions struct {
	URL         string        `env:"PROJECTHUB_API_URL" envDefault:"http://localhost:8080/api"`
	AccessToken string        `env:"PROJECTHUB_ACCESS_TOKEN"`
	TokenFile   string        `env:"PROJECTHUB_TOKEN_FILE"`
	Timeout     time.Duration `env:"PROJECTHUB_HTTP_TIMEOUT" envDefault:"30s"`
}

// ActorOptions describe the signed-in member. Token issuance lives outside
// this client, so the identity is supplied alongside the token.
type ActorOptions struct {
	MemberID  int64  `env:"PROJECTHUB_MEMBER_ID"`
	Role      string `env:"PROJECTHUB_ROLE" envDefault:"USER"`
	CompanyID int64  `env:"PROJECTHUB_COMPANY_ID"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"requestctl"`
}

type PrometheusOptions struct {
	PushgatewayURL string `env:"PROMETHEUS_PUSHGATEWAY_URL"`
	Job            string `env:"PROMETHEUS_JOB" envDefault:"requestctl"`
}

type Configuration struct {
	API           APIOptions
	Actor         ActorOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	Locale        string `env:"PROJECTHUB_LOCALE" envDefault:"ko"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath       string `env:"LOG_PATH"`
	// Sent on every backend call; a fresh uuidv4 is generated per call.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// Load builds a Configuration from the process environment after applying
// the given dotenv files.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

func (c *Configuration) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PROJECTHUB_API_URL=%q", c.API.URL)
	}
	c.API.URL = strings.TrimRight(u.String(), "/")

	if c.API.Timeout <= 0 {
		return fmt.Errorf("PROJECTHUB_HTTP_TIMEOUT must be positive, got %s", c.API.Timeout)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}

	c.Actor.Role = strings.ToUpper(strings.TrimSpace(c.Actor.Role))
	if c.Actor.Role == "" {
		return fmt.Errorf("PROJECTHUB_ROLE must not be empty")
	}

	locale := strings.ToLower(strings.TrimSpace(c.Locale))
	switch locale {
	case "ko", "en":
	default:
		return fmt.Errorf("invalid PROJECTHUB_LOCALE=%q (expected ko|en)", c.Locale)
	}
	c.Locale = locale
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
