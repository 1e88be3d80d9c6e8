package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultServerOnlyHostPattern matches hosted deployments that never grant camera
// access: any EC2/AWS hostname, plus the common PaaS domains.
const DefaultServerOnlyHostPattern = `(?i)(ec2|amazonaws|\.onrender\.com$|\.herokuapp\.com$|\.fly\.dev$)`

type Config struct {
	Host               string
	Port               string
	AnalyzerPort       string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string
	LogLevel           string

	// Submission
	AnalyzeURL    string
	SubmitTimeout time.Duration
	JPEGQuality   int

	// Camera
	PublicHost            string
	ServerOnlyHostPattern string
	CameraSource          string
	CameraWidth           int
	CameraHeight          int

	NotificationLifetime time.Duration

	// Azure blob uploads (optional)
	AzureStorageAccount string
	AzureStorageKey     string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func (c *Config) AnalyzerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.AnalyzerPort))
}

// ServerOnlyHostRegexp compiles ServerOnlyHostPattern. An empty pattern disables the check.
func (c *Config) ServerOnlyHostRegexp() (*regexp.Regexp, error) {
	if strings.TrimSpace(c.ServerOnlyHostPattern) == "" {
		return nil, nil
	}
	return regexp.Compile(c.ServerOnlyHostPattern)
}

// LoadFromEnv reads .env (if present), then CONFIG_FILE (if set), then the
// process environment. Environment values win over the file.
func LoadFromEnv() (*Config, error) {
	// Missing .env is normal outside development
	_ = godotenv.Load()

	file, err := readConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	return load(file)
}

func load(file map[string]string) (*Config, error) {
	src := source{file: file}

	hostname, _ := os.Hostname()

	// Set defaults
	cfg := &Config{
		Host:                  src.getOrDefault("HOST", "0.0.0.0"),
		Port:                  src.getOrDefault("PORT", "8080"),
		AnalyzerPort:          src.getOrDefault("ANALYZER_PORT", "8090"),
		RequestTimeout:        src.durationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize:    src.intOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		AllowedOrigins:        src.listOrDefault("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:              src.getOrDefault("LOG_LEVEL", "info"),
		AnalyzeURL:            src.getOrDefault("ANALYZE_URL", "http://127.0.0.1:8090/analyze"),
		SubmitTimeout:         src.durationOrDefault("SUBMIT_TIMEOUT", 60*time.Second),
		JPEGQuality:           int(src.intOrDefault("JPEG_QUALITY", 92)),
		PublicHost:            src.getOrDefault("PUBLIC_HOST", hostname),
		ServerOnlyHostPattern: src.getOrDefault("SERVER_ONLY_HOST_PATTERN", DefaultServerOnlyHostPattern),
		CameraSource:          src.get("CAMERA_SOURCE"),
		CameraWidth:           int(src.intOrDefault("CAMERA_WIDTH", 1280)),
		CameraHeight:          int(src.intOrDefault("CAMERA_HEIGHT", 720)),
		NotificationLifetime:  src.durationOrDefault("NOTIFICATION_LIFETIME", 5*time.Second),
		AzureStorageAccount:   src.get("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:       src.get("AZURE_STORAGE_KEY"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, port := range map[string]string{"PORT": c.Port, "ANALYZER_PORT": c.AnalyzerPort} {
		p, err := strconv.Atoi(strings.TrimSpace(port))
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid %s: %q", name, port)
		}
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.NotificationLifetime <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, notification=%s)",
			c.RequestTimeout, c.NotificationLifetime)
	}
	// 0 keeps the wait unbounded
	if c.SubmitTimeout < 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be >= 0 (got %s)", c.SubmitTimeout)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be within 1..100 (got %d)", c.JPEGQuality)
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		return fmt.Errorf("camera size must be positive (got %dx%d)", c.CameraWidth, c.CameraHeight)
	}
	if strings.TrimSpace(c.AnalyzeURL) == "" {
		return fmt.Errorf("ANALYZE_URL must not be empty")
	}
	if _, err := c.ServerOnlyHostRegexp(); err != nil {
		return fmt.Errorf("invalid SERVER_ONLY_HOST_PATTERN: %w", err)
	}
	return nil
}

func readConfigFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return parseConfigFile(data)
}

// parseConfigFile accepts a flat YAML mapping keyed by the environment variable names.
func parseConfigFile(data []byte) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return values, nil
}

type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getOrDefault(key, defaultValue string) string {
	if value := s.get(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := s.get(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func (s source) intOrDefault(key string, defaultValue int64) int64 {
	if value := s.get(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s source) listOrDefault(key string, defaultValue []string) []string {
	value := s.get(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
