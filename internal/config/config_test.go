package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"APP_ENV", "LOG_LEVEL", "CONFIG_FILE", "LED_DRIVER", "SPI_DEVICE",
		"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID",
		"FETCH_TIMEOUT", "SOURCE_TIMEOUT", "SOURCE_RETRIES", "SOURCE_BASE_URL",
		"MAX_CONCURRENT_FETCHES",
		"ENCODER_ENABLED", "ENCODER_PIN_A", "ENCODER_PIN_B", "BRIGHTNESS_STEP",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv: got %q, want dev", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: got %v, want info", cfg.LogLevel)
	}
	if cfg.LEDDriver != "apa102" {
		t.Errorf("LEDDriver: got %q, want apa102", cfg.LEDDriver)
	}
	if cfg.MQTTEnabled {
		t.Error("MQTTEnabled: got true, want false")
	}
	if cfg.MQTTBroker != "localhost" || cfg.MQTTPort != 1883 {
		t.Errorf("MQTT defaults: got %s:%d", cfg.MQTTBroker, cfg.MQTTPort)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout: got %v, want 30s", cfg.FetchTimeout)
	}
	if cfg.SourceTimeout != 10*time.Second {
		t.Errorf("SourceTimeout: got %v, want 10s", cfg.SourceTimeout)
	}
	if cfg.MaxConcurrentFetches != 8 {
		t.Errorf("MaxConcurrentFetches: got %d, want 8", cfg.MaxConcurrentFetches)
	}
	if cfg.EncoderPinA != "GPIO26" || cfg.EncoderPinB != "GPIO19" {
		t.Errorf("encoder pins: got %s/%s", cfg.EncoderPinA, cfg.EncoderPinB)
	}
	if cfg.BrightnessStep != 5 {
		t.Errorf("BrightnessStep: got %d, want 5", cfg.BrightnessStep)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONFIG_FILE", "/opt/panel/map.yaml")
	t.Setenv("LED_DRIVER", "console")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_BROKER", "broker.lan")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("SOURCE_RETRIES", "0")
	t.Setenv("MAX_CONCURRENT_FETCHES", "4")
	t.Setenv("ENCODER_ENABLED", "true")
	t.Setenv("BRIGHTNESS_STEP", "10")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.AppEnv != "prod" || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("env/level: got %s/%v", cfg.AppEnv, cfg.LogLevel)
	}
	if cfg.ConfigFile != "/opt/panel/map.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.LEDDriver != "console" {
		t.Errorf("LEDDriver: got %q", cfg.LEDDriver)
	}
	if !cfg.MQTTEnabled || cfg.MQTTBroker != "broker.lan" || cfg.MQTTPort != 8883 {
		t.Errorf("MQTT: got %v %s:%d", cfg.MQTTEnabled, cfg.MQTTBroker, cfg.MQTTPort)
	}
	if cfg.FetchTimeout != 45*time.Second || cfg.SourceRetries != 0 {
		t.Errorf("fetch tuning: got %v retries=%d", cfg.FetchTimeout, cfg.SourceRetries)
	}
	if cfg.MaxConcurrentFetches != 4 || !cfg.EncoderEnabled || cfg.BrightnessStep != 10 {
		t.Errorf("cfg: %+v", cfg)
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"bad app env":    {"APP_ENV", "staging"},
		"bad log level":  {"LOG_LEVEL", "chatty"},
		"bad driver":     {"LED_DRIVER", "ws2811"},
		"bad mqtt port":  {"MQTT_PORT", "not-a-port"},
		"bad timeout":    {"FETCH_TIMEOUT", "soon"},
		"zero timeout":   {"FETCH_TIMEOUT", "0s"},
		"zero workers":   {"MAX_CONCURRENT_FETCHES", "0"},
		"negative retry": {"SOURCE_RETRIES", "-1"},
		"zero step":      {"BRIGHTNESS_STEP", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv accepted %s=%q", kv[0], kv[1])
			} else if !strings.Contains(err.Error(), kv[0]) {
				t.Fatalf("error does not name %s: %v", kv[0], err)
			}
		})
	}
}
