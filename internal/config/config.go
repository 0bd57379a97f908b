package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/zmqls/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "ZMQLS_"

// Options are the process-wide settings shared by every command. Stream
// specific settings live in the stream file instead.
type Options struct {
	Config string

	Verbose     bool   `toml:"verbose" env:"VERBOSE"`
	Threads     int    `toml:"transport.threads" env:"THREADS"`
	LogLevel    string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat   string `toml:"logging.format" env:"LOG_FORMAT"`
	MetricsAddr string `toml:"metrics.addr" env:"METRICS_ADDR"`
	Watch       bool   `toml:"watch" env:"WATCH"`

	// Consumer viewer.
	Listen   string `toml:"viewer.listen" env:"LISTEN"`
	Headless bool   `toml:"viewer.headless" env:"HEADLESS"`
}

// DefaultOptions matches the flag defaults.
func DefaultOptions() Options {
	return Options{
		Config:    "zmqls.toml",
		Threads:   1,
		LogLevel:  "info",
		LogFormat: "text",
		Listen:    ":8080",
	}
}

// LoadConfig fills the tagged fields of opts (a pointer to a struct) from the
// TOML file named by its Config field, then from ZMQLS_* variables. Flags the
// user set on cmd keep their value. A missing file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("load config: %T is not a pointer to a struct", opts)
	}
	v = v.Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse settings file %s: %w", f.String(), err)
			}
		case !os.IsNotExist(err):
			return fmt.Errorf("read settings file: %w", err)
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)
		if changed[fieldNameToFlag(sf.Name)] {
			continue
		}

		if path := sf.Tag.Get("toml"); path != "" && file != nil {
			if value := getNestedValue(file, path); value != nil {
				setFieldValue(field, value)
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if s, ok := os.LookupEnv(EnvPrefix + key); ok && s != "" {
				setFieldValueFromString(field, s)
			}
		}
	}
	return nil
}

// fieldNameToFlag turns "MetricsAddr" into "metrics-addr".
func fieldNameToFlag(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// getNestedValue resolves a dotted path such as "viewer.listen".
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value. Mismatched types are ignored.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		}
	case reflect.Uint, reflect.Uint64:
		if i, ok := value.(int64); ok && i >= 0 {
			field.SetUint(uint64(i))
		}
	case reflect.Float64:
		switch f := value.(type) {
		case float64:
			field.SetFloat(f)
		case int64:
			field.SetFloat(float64(f))
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, isStr := item.(string); isStr {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

// setFieldValueFromString parses an environment value. Lists are comma separated.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Uint, reflect.Uint64:
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			field.SetUint(u)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoggingConfig builds the logging setup from opts plus the per-module levels
// in the [logging.modules] table of the settings file. Verbose forces debug.
func LoggingConfig(opts *Options) logging.Config {
	cfg := logging.Config{
		Level:   opts.LogLevel,
		Format:  opts.LogFormat,
		Modules: make(map[string]string),
	}
	if opts.Verbose {
		cfg.Level = "debug"
	}

	if opts.Config == "" {
		return cfg
	}
	data, err := os.ReadFile(opts.Config)
	if err != nil {
		return cfg
	}
	var raw struct {
		Logging struct {
			Modules map[string]string `toml:"modules"`
		} `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	for module, level := range raw.Logging.Modules {
		cfg.Modules[module] = level
	}
	return cfg
}
