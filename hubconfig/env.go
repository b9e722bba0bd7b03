// Package hubconfig loads runtime tunables for embedding applications: the
// observer queue's pending-tuple limits, default logging level/format, and
// similar knobs that do not belong on any single Store or Queue constructor
// call. It never touches the record data the store/kvo packages manage —
// persistence of application data is excluded by spec (see Non-goals).
package hubconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Env reads environment variables under an optional prefix (PREFIX_KEY).
type Env struct {
	prefix string
}

// NewEnv creates an environment reader. An empty prefix reads bare keys.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix}
}

func (e *Env) key(k string) string {
	if e.prefix == "" {
		return k
	}
	return e.prefix + "_" + k
}

func (e *Env) GetString(key, def string) string {
	if v := os.Getenv(e.key(key)); v != "" {
		return v
	}
	return def
}

func (e *Env) MustGetString(key string) string {
	v := os.Getenv(e.key(key))
	if v == "" {
		panic(fmt.Sprintf("hubconfig: required environment variable %s not set", e.key(key)))
	}
	return v
}

func (e *Env) GetInt(key string, def int) int {
	if v := os.Getenv(e.key(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (e *Env) GetBool(key string, def bool) bool {
	if v := os.Getenv(e.key(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e *Env) GetDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(e.key(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Validator accumulates field-level validation failures.
type Validator struct {
	errors []string
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) RequireOneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

func (v *Validator) Validate() error {
	if len(v.errors) == 0 {
		return nil
	}
	return fmt.Errorf("hubconfig: invalid configuration: %s", strings.Join(v.errors, "; "))
}

// Runtime holds the tunables a hosting application may want to override.
// Store and kvo.Queue do not read it themselves: the host applies it, e.g.
// via kvo.Queue.SetMaxPending, whose own default is unlimited.
type Runtime struct {
	// MaxPendingChainObservers caps how many unresolved (path, target,
	// method, root) tuples kvo.Queue will hold before AddObserver starts
	// rejecting new registrations outright (a misuse guard, not a real
	// resource limit — single-process, single address space).
	MaxPendingChainObservers int
	LogLevel                 string
	LogFormat                string
}

// Default returns the tunables used when no Runtime is supplied explicitly.
func Default() Runtime {
	return Runtime{
		MaxPendingChainObservers: 10000,
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// FromEnv loads a Runtime from environment variables under prefix (e.g. "HUB").
func FromEnv(prefix string) (Runtime, error) {
	env := NewEnv(prefix)
	def := Default()
	rt := Runtime{
		MaxPendingChainObservers: env.GetInt("MAX_PENDING_CHAIN_OBSERVERS", def.MaxPendingChainObservers),
		LogLevel:                 env.GetString("LOG_LEVEL", def.LogLevel),
		LogFormat:                env.GetString("LOG_FORMAT", def.LogFormat),
	}

	v := NewValidator()
	v.RequirePositiveInt("MaxPendingChainObservers", rt.MaxPendingChainObservers)
	v.RequireOneOf("LogLevel", rt.LogLevel, "debug", "info", "warn", "error")
	v.RequireOneOf("LogFormat", rt.LogFormat, "text", "json")
	if err := v.Validate(); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

// yamlRuntime mirrors Runtime's fields with yaml tags, so a config file can
// use the hosting application's usual naming convention instead of Go's
// exported field names.
type yamlRuntime struct {
	MaxPendingChainObservers int    `yaml:"maxPendingChainObservers"`
	LogLevel                 string `yaml:"logLevel"`
	LogFormat                string `yaml:"logFormat"`
}

// FromYAMLFile loads a Runtime from a YAML config file, falling back to
// Default's values for any field the file omits.
func FromYAMLFile(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("hubconfig: reading %s: %w", path, err)
	}

	def := Default()
	parsed := yamlRuntime{
		MaxPendingChainObservers: def.MaxPendingChainObservers,
		LogLevel:                 def.LogLevel,
		LogFormat:                def.LogFormat,
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Runtime{}, fmt.Errorf("hubconfig: parsing %s: %w", path, err)
	}

	rt := Runtime{
		MaxPendingChainObservers: parsed.MaxPendingChainObservers,
		LogLevel:                 parsed.LogLevel,
		LogFormat:                parsed.LogFormat,
	}

	v := NewValidator()
	v.RequirePositiveInt("MaxPendingChainObservers", rt.MaxPendingChainObservers)
	v.RequireOneOf("LogLevel", rt.LogLevel, "debug", "info", "warn", "error")
	v.RequireOneOf("LogFormat", rt.LogFormat, "text", "json")
	if err := v.Validate(); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}
