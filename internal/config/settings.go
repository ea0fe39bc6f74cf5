package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Settings holds the knobs the control surface may change at runtime.
type Settings struct {
	mu          sync.RWMutex
	gatewayURL  string
	riskPercent float64
	envFile     string
}

func NewSettings(gatewayURL string, riskPercent float64) *Settings {
	return &Settings{
		gatewayURL:  strings.TrimRight(gatewayURL, "/"),
		riskPercent: riskPercent,
	}
}

// PersistTo makes SetGatewayURL write GATEWAY_URL into envFile.
func (s *Settings) PersistTo(envFile string) *Settings {
	s.mu.Lock()
	s.envFile = envFile
	s.mu.Unlock()
	return s
}

func (s *Settings) GatewayURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gatewayURL
}

func (s *Settings) RiskPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riskPercent
}

// ValidateGatewayURL checks raw is an absolute http(s) URL and returns it
// without a trailing slash.
func ValidateGatewayURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid gateway url %q: need http(s)://host[:port]", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func ValidateRiskPercent(p float64) error {
	if p <= 0 || p > 100 {
		return fmt.Errorf("risk percent must be in (0, 100], got %v", p)
	}
	return nil
}

func (s *Settings) SetGatewayURL(raw string) error {
	clean, err := ValidateGatewayURL(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gatewayURL = clean
	envFile := s.envFile
	s.mu.Unlock()

	if envFile == "" {
		return nil
	}
	return persistEnv(envFile, "GATEWAY_URL", clean)
}

func (s *Settings) SetRiskPercent(p float64) error {
	if err := ValidateRiskPercent(p); err != nil {
		return err
	}
	s.mu.Lock()
	s.riskPercent = p
	s.mu.Unlock()
	return nil
}

func persistEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		env = make(map[string]string)
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
