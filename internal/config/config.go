package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataPath is the append-only readings file served at /data.csv.
	DataPath string
	// FormatHint writes a "sep=;" line at the top of a new data file.
	FormatHint bool
	// APIKey is the shared secret devices send in the X-API-KEY header.
	APIKey        string
	DefaultDevice string

	DashboardDefaultN int
	DashboardRefresh  time.Duration

	CORSAllowedOrigins []string

	// MQTT ingestion is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	SQLitePath string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3Prefix          string
	S3UsePathStyle    bool
	S3AccessKeyID     string
	S3SecretAccessKey string
	BackupCompress    bool
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding the real environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":5000"
	}

	dataPath := strings.TrimSpace(os.Getenv("DATA_PATH"))
	if dataPath == "" {
		dataPath = "data.csv"
	}
	dataPath = filepath.Clean(dataPath)

	formatHint, err := boolEnv("CSV_FORMAT_HINT", true)
	if err != nil {
		return Config{}, err
	}

	defaultDevice := strings.TrimSpace(os.Getenv("DEFAULT_DEVICE"))
	if defaultDevice == "" {
		defaultDevice = "esp32"
	}

	defaultNStr := strings.TrimSpace(os.Getenv("DASHBOARD_DEFAULT_N"))
	if defaultNStr == "" {
		defaultNStr = "20"
	}
	defaultN, err := strconv.Atoi(defaultNStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DASHBOARD_DEFAULT_N %q: %w", defaultNStr, err)
	}

	refreshStr := strings.TrimSpace(os.Getenv("DASHBOARD_REFRESH"))
	if refreshStr == "" {
		refreshStr = "10s"
	}
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DASHBOARD_REFRESH %q: %w", refreshStr, err)
	}
	if refresh < time.Second {
		return Config{}, fmt.Errorf("DASHBOARD_REFRESH must be at least 1s, got %v", refresh)
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "clima-server"
	}

	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "clima/+/reading"
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "data/archive.db"
	}

	s3UsePathStyle, err := boolEnv("S3_USE_PATH_STYLE", false)
	if err != nil {
		return Config{}, err
	}
	backupCompress, err := boolEnv("BACKUP_COMPRESS", false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           httpAddr,
		DataPath:           dataPath,
		FormatHint:         formatHint,
		APIKey:             os.Getenv("API_KEY"),
		DefaultDevice:      defaultDevice,
		DashboardDefaultN:  defaultN,
		DashboardRefresh:   refresh,
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MQTTBroker:         strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:           mqttPort,
		MQTTClientID:       mqttClientID,
		MQTTTopic:          mqttTopic,
		SQLitePath:         sqlitePath,
		S3Bucket:           strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:           strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Endpoint:         strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3Prefix:           strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/"),
		S3UsePathStyle:     s3UsePathStyle,
		S3AccessKeyID:      strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		S3SecretAccessKey:  strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		BackupCompress:     backupCompress,
	}, nil
}

// ValidateServer checks the settings the HTTP server cannot run without.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return errors.New("API_KEY is required")
	}
	return nil
}

// MQTTEnabled reports whether MQTT ingestion is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func boolEnv(name string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
