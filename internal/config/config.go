package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFailureThreshold is how many consecutive failed refresh cycles a
// station tolerates before its display degrades.
const DefaultFailureThreshold = 3

// Config holds process-level settings read from the environment. Panel
// layout and weather behavior live in the YAML map file (see Map).
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	ConfigFile string

	LEDDriver string
	SPIDevice string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	// FetchTimeout bounds one station's full trip through the source
	// chain; SourceTimeout bounds a single provider HTTP attempt.
	FetchTimeout         time.Duration
	SourceTimeout        time.Duration
	SourceRetries        int
	SourceBaseURL        string
	MaxConcurrentFetches int

	EncoderEnabled bool
	EncoderPinA    string
	EncoderPinB    string
	BrightnessStep int
}

// LoadFromEnv reads configuration from the environment, loading a local
// .env file first when present.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

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

	configFile := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if configFile == "" {
		configFile = findConfigFile()
	}

	ledDriver := strings.TrimSpace(os.Getenv("LED_DRIVER"))
	if ledDriver == "" {
		ledDriver = "apa102"
	}
	switch ledDriver {
	case "apa102", "console":
	default:
		return Config{}, fmt.Errorf("invalid LED_DRIVER %q (allowed: apa102, console)", ledDriver)
	}

	spiDevice := strings.TrimSpace(os.Getenv("SPI_DEVICE")) // empty selects the first port

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
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
		mqttClientID = "rpi-metar"
	}

	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	sourceTimeout, err := envDuration("SOURCE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	sourceRetries, err := envInt("SOURCE_RETRIES", 2)
	if err != nil {
		return Config{}, err
	}
	if sourceRetries < 0 {
		return Config{}, fmt.Errorf("SOURCE_RETRIES must not be negative, got %d", sourceRetries)
	}

	sourceBaseURL := strings.TrimSpace(os.Getenv("SOURCE_BASE_URL")) // empty keeps each provider's endpoint

	maxConcurrent, err := envInt("MAX_CONCURRENT_FETCHES", 8)
	if err != nil {
		return Config{}, err
	}
	if maxConcurrent <= 0 {
		return Config{}, fmt.Errorf("MAX_CONCURRENT_FETCHES must be positive, got %d", maxConcurrent)
	}

	encoderEnabled, err := envBool("ENCODER_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	encoderPinA := strings.TrimSpace(os.Getenv("ENCODER_PIN_A"))
	if encoderPinA == "" {
		encoderPinA = "GPIO26"
	}
	encoderPinB := strings.TrimSpace(os.Getenv("ENCODER_PIN_B"))
	if encoderPinB == "" {
		encoderPinB = "GPIO19"
	}

	brightnessStep, err := envInt("BRIGHTNESS_STEP", 5)
	if err != nil {
		return Config{}, err
	}
	if brightnessStep <= 0 {
		return Config{}, fmt.Errorf("BRIGHTNESS_STEP must be positive, got %d", brightnessStep)
	}

	return Config{
		AppEnv:               appEnv,
		LogLevel:             level,
		ConfigFile:           configFile,
		LEDDriver:            ledDriver,
		SPIDevice:            spiDevice,
		MQTTEnabled:          mqttEnabled,
		MQTTBroker:           mqttBroker,
		MQTTPort:             mqttPort,
		MQTTClientID:         mqttClientID,
		FetchTimeout:         fetchTimeout,
		SourceTimeout:        sourceTimeout,
		SourceRetries:        sourceRetries,
		SourceBaseURL:        sourceBaseURL,
		MaxConcurrentFetches: maxConcurrent,
		EncoderEnabled:       encoderEnabled,
		EncoderPinA:          encoderPinA,
		EncoderPinB:          encoderPinB,
		BrightnessStep:       brightnessStep,
	}, nil
}

// findConfigFile checks the conventional locations in order.
func findConfigFile() string {
	for _, path := range []string{"rpi_metar.yaml", "/etc/rpi_metar.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "rpi_metar.yaml"
}

func envBool(name string, def bool) (bool, error) {
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

func envInt(name string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, v)
	}
	return v, nil
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
