// Package config loads run configuration from the environment and optional .env files.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/controller"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
)

// Config holds everything a detection run reads from its environment.
type Config struct {
	VideoDir   string
	OutputDir  string
	ReportName string

	Variant     string
	ObjectKind  string
	Sensitivity string
	Frames      int
	Grayscale   bool
	Region      string
	ScaleBound  string

	Cascade    string
	VehicleDir string

	DBPath   string
	LogLevel string
	Debug    bool
	Profile  bool
}

// Load reads the given .env files, when present, and then the process environment.
//
// Files that do not exist are ignored; variables already set in the environment win.
//
// Arguments:
//   - files: Optional .env files; none means ".env".
//
// Returns:
//   - *Config: The configuration with defaults applied.
//
// @example
// cfg := config.Load()
// s, err := cfg.Settings()
func Load(files ...string) *Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			slog.Warn("env file not loaded", "path", f, "error", err)
		}
	}

	return &Config{
		VideoDir:    getEnv("DETECT_VIDEO_DIR", "."),
		OutputDir:   getEnv("DETECT_OUTPUT_DIR", ""),
		ReportName:  getEnv("DETECT_REPORT_NAME", "detection_report.txt"),
		Variant:     getEnv("DETECT_VARIANT", string(controller.Background)),
		ObjectKind:  getEnv("DETECT_OBJECT_KIND", detector.KindFace.String()),
		Sensitivity: getEnv("DETECT_SENSITIVITY", settings.Medium.String()),
		Frames:      getEnvInt("DETECT_FRAMES", settings.DefaultFramesToAnalyze),
		Grayscale:   getEnvBool("DETECT_GRAYSCALE", true),
		Region:      getEnv("DETECT_REGION", ""),
		ScaleBound:  getEnv("DETECT_SCALE_BOUND", ""),
		Cascade:     getEnv("DETECT_CASCADE", ""),
		VehicleDir:  getEnv("DETECT_VEHICLE_DIR", "cascades"),
		DBPath:      getEnv("DETECT_DB_PATH", ""),
		LogLevel:    getEnv("DETECT_LOG_LEVEL", "INFO"),
		Debug:       getEnvBool("DETECT_DEBUG", false),
		Profile:     getEnvBool("DETECT_PROFILE", false),
	}
}

// DetectorVariant parses the configured variant.
func (c *Config) DetectorVariant() (controller.Variant, error) {
	return controller.ParseVariant(c.Variant)
}

// Kind parses the configured object kind.
func (c *Config) Kind() (detector.Kind, error) {
	return detector.ParseKind(c.ObjectKind)
}

// Settings builds detection settings for the configured variant's family.
//
// Returns:
//   - settings.Settings: The validated settings.
//   - error: A parse error or a *settings.ConfigurationError.
func (c *Config) Settings() (settings.Settings, error) {
	v, err := c.DetectorVariant()
	if err != nil {
		return settings.Settings{}, err
	}
	sens, err := settings.ParseSensitivity(c.Sensitivity)
	if err != nil {
		return settings.Settings{}, err
	}
	poly, err := region.Parse(c.Region)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "DETECT_REGION")
	}
	bound, err := images.ParseResolution(c.ScaleBound)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "DETECT_SCALE_BOUND")
	}
	return settings.New(v.Family(),
		settings.WithSensitivity(sens),
		settings.WithScaleBound(bound.Width, bound.Height),
		settings.WithFramesToAnalyze(c.Frames),
		settings.WithGrayscale(c.Grayscale),
		settings.WithRegion(poly),
		settings.WithDebugMode(c.Debug),
	)
}

// SlogLevel maps LogLevel to a slog level; unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
