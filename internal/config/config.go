package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxRunner = 2
	envPrefix        = "VIDQ_"
)

var ErrInvalidMaxRunner = errors.New("maxRunner must be a positive integer")

type Config struct {
	MaxRunner int    `yaml:"maxRunner"`
	Proxy     string `yaml:"proxy,omitempty"`
	UseProxy  bool   `yaml:"useProxy"`
	BinDir    string `yaml:"binDir,omitempty"`
	DataDir   string `yaml:"dataDir,omitempty"`
}

func Default() Config {
	dataDir := ".vidq"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".vidq")
	}
	return Config{
		MaxRunner: DefaultMaxRunner,
		DataDir:   dataDir,
	}
}

// Store holds the live configuration. An empty path keeps it in memory only.
type Store struct {
	mu        sync.RWMutex
	path      string
	cfg       Config
	nextID    int
	listeners map[int]func(int)
}

// Load reads path (a missing file means defaults) and applies VIDQ_*
// environment overrides, including those from .env files in the working
// directory.
func Load(path string) (*Store, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg, listeners: make(map[int]func(int))}, nil
}

// NewStore builds a file-less store, mostly for tests and embedding.
func NewStore(cfg Config) *Store {
	if cfg.MaxRunner <= 0 {
		cfg.MaxRunner = DefaultMaxRunner
	}
	return &Store{cfg: cfg, listeners: make(map[int]func(int))}
}

func loadEnvFiles() error {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Overload(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

func readConfig(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if cfg.MaxRunner <= 0 {
		cfg.MaxRunner = DefaultMaxRunner
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if value := os.Getenv(envPrefix + "MAX_RUNNER"); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			cfg.MaxRunner = n
		}
	}
	if value := os.Getenv(envPrefix + "PROXY"); value != "" {
		cfg.Proxy = value
	}
	if value := os.Getenv(envPrefix + "USE_PROXY"); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			cfg.UseProxy = b
		}
	}
	if value := os.Getenv(envPrefix + "BIN_DIR"); value != "" {
		cfg.BinDir = value
	}
	if value := os.Getenv(envPrefix + "DATA_DIR"); value != "" {
		cfg.DataDir = value
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) MaxRunner() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.MaxRunner
}

// ProxySettings returns the global proxy address and whether it is enabled.
func (s *Store) ProxySettings() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Proxy, s.cfg.UseProxy
}

// OnMaxRunnerChange registers fn to be called with every new maxRunner value.
func (s *Store) OnMaxRunnerChange(fn func(int)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// SetMaxRunner updates the limit, persists it when the store has a file and
// notifies listeners.
func (s *Store) SetMaxRunner(n int) error {
	if n <= 0 {
		return ErrInvalidMaxRunner
	}
	s.mu.Lock()
	s.cfg.MaxRunner = n
	cfg := s.cfg
	s.mu.Unlock()
	if err := s.save(cfg); err != nil {
		return err
	}
	s.notify(n)
	return nil
}

// Reload rereads the file and notifies listeners if maxRunner changed.
func (s *Store) Reload() error {
	cfg, err := readConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	previous := s.cfg.MaxRunner
	s.cfg = cfg
	s.mu.Unlock()
	log.Debug().Str("op", "config/Reload").Msgf("Reloaded config from %s", s.path)
	if cfg.MaxRunner != previous {
		s.notify(cfg.MaxRunner)
	}
	return nil
}

func (s *Store) save(cfg Config) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func (s *Store) notify(n int) {
	s.mu.RLock()
	listeners := make([]func(int), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(n)
	}
}
