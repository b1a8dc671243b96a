package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"poll-terminal/internal/theme"
)

const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 2222
	defaultHostKeyPath        = ".data/host_ed25519"
	defaultIdleTimeout        = 120 * time.Second
	defaultMaxSessions        = 32
	defaultRateLimitPerMinute = 30
	defaultRateLimitBurst     = 10
	maximumConfiguredSessions = 1024

	defaultSubmitURL     = "https://api.mockapi.com/api/v2/submitpoll"
	defaultSubmitTimeout = 10 * time.Second

	defaultAutoAdvance    = 3 * time.Second
	defaultTransitionLock = 500 * time.Millisecond
	defaultNoticeDuration = 6 * time.Second
	defaultDragThreshold  = 3

	// DefaultEnvFile is read by LoadDotEnv when no path is given.
	DefaultEnvFile = ".env"
)

// Config captures startup settings for the poll server and local runner.
type Config struct {
	Host               string
	Port               int
	HostKeyPath        string
	IdleTimeout        time.Duration
	MaxSessions        int
	RateLimitPerMinute int
	RateLimitBurst     int

	SubmitURL     string
	APIKey        string
	SubmitTimeout time.Duration

	StepsFile      string
	AutoAdvance    time.Duration
	TransitionLock time.Duration
	NoticeDuration time.Duration
	DragThreshold  int

	Theme    theme.Variant
	LogLevel log.Level
}

// Addr is the host:port the SSH server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadDotEnv merges a dotenv file into the process environment without
// overriding variables that are already set. A missing DefaultEnvFile is not
// an error; a missing explicit path is.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads runtime configuration from environment variables.
func LoadFromEnv() (Config, error) {
	host, err := readRequiredOrDefault("POLL_SSH_HOST", defaultHost)
	if err != nil {
		return Config{}, err
	}

	port, err := readInt("POLL_SSH_PORT", defaultPort, 1, 65535)
	if err != nil {
		return Config{}, err
	}

	hostKeyPath, err := readRequiredOrDefault("POLL_SSH_HOST_KEY_PATH", defaultHostKeyPath)
	if err != nil {
		return Config{}, err
	}
	cleanHostKeyPath := filepath.Clean(hostKeyPath)
	if cleanHostKeyPath == "." {
		return Config{}, fmt.Errorf("POLL_SSH_HOST_KEY_PATH must not resolve to current directory")
	}

	idleTimeout, err := readDuration("POLL_SSH_IDLE_TIMEOUT", defaultIdleTimeout)
	if err != nil {
		return Config{}, err
	}

	maxSessions, err := readInt("POLL_SSH_MAX_SESSIONS", defaultMaxSessions, 1, maximumConfiguredSessions)
	if err != nil {
		return Config{}, err
	}

	perMinute, err := readInt("POLL_RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMinute, 1, 10000)
	if err != nil {
		return Config{}, err
	}

	burst, err := readInt("POLL_RATE_LIMIT_BURST", defaultRateLimitBurst, 1, 10000)
	if err != nil {
		return Config{}, err
	}

	submitURL, err := readURL("POLL_SUBMIT_URL", defaultSubmitURL)
	if err != nil {
		return Config{}, err
	}

	submitTimeout, err := readOptionalDuration("POLL_SUBMIT_TIMEOUT", defaultSubmitTimeout)
	if err != nil {
		return Config{}, err
	}

	autoAdvance, err := readOptionalDuration("POLL_AUTO_ADVANCE", defaultAutoAdvance)
	if err != nil {
		return Config{}, err
	}

	transitionLock, err := readDuration("POLL_TRANSITION_LOCK", defaultTransitionLock)
	if err != nil {
		return Config{}, err
	}

	noticeDuration, err := readDuration("POLL_NOTICE_DURATION", defaultNoticeDuration)
	if err != nil {
		return Config{}, err
	}

	dragThreshold, err := readInt("POLL_DRAG_THRESHOLD", defaultDragThreshold, 1, 100)
	if err != nil {
		return Config{}, err
	}

	variant := theme.DefaultVariant
	if raw, ok := os.LookupEnv("POLL_THEME"); ok {
		parsed, known := theme.ParseVariant(raw)
		if !known {
			return Config{}, fmt.Errorf("POLL_THEME %q is not a known theme", raw)
		}
		variant = parsed
	}

	level := log.InfoLevel
	if raw, ok := os.LookupEnv("POLL_LOG_LEVEL"); ok {
		parsed, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("POLL_LOG_LEVEL: %w", err)
		}
		level = parsed
	}

	return Config{
		Host:               host,
		Port:               port,
		HostKeyPath:        cleanHostKeyPath,
		IdleTimeout:        idleTimeout,
		MaxSessions:        maxSessions,
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
		SubmitURL:          submitURL,
		APIKey:             strings.TrimSpace(os.Getenv("POLL_API_KEY")),
		SubmitTimeout:      submitTimeout,
		StepsFile:          strings.TrimSpace(os.Getenv("POLL_STEPS_FILE")),
		AutoAdvance:        autoAdvance,
		TransitionLock:     transitionLock,
		NoticeDuration:     noticeDuration,
		DragThreshold:      dragThreshold,
		Theme:              variant,
		LogLevel:           level,
	}, nil
}

func readRequiredOrDefault(key, fallback string) (string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return trimmed, nil
}

func readInt(key string, fallback, min, max int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func readDuration(key string, fallback time.Duration) (time.Duration, error) {
	parsed, err := readOptionalDuration(key, fallback)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

// readOptionalDuration accepts 0 to mean "disabled".
func readOptionalDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "0" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return parsed, nil
}

func readURL(key, fallback string) (string, error) {
	raw, err := readRequiredOrDefault(key, fallback)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be a valid URL: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s must be an absolute http(s) URL", key)
	}

	return raw, nil
}
