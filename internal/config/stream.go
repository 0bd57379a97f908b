package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when a key is missing or has the wrong type.
const (
	DefaultName          = "unnamed stream"
	DefaultEncodeQuality = 80
	DefaultGamma         = -1.0
)

var (
	ErrNoAddress = errors.New("no address specified")
	ErrNoPrefix  = errors.New("no prefix specified")
	ErrNoDevice  = errors.New("no device specified")
)

// ParseError reports a stream file that is not a valid JSON or TOML object.
type ParseError struct {
	Path string
	Line int // 0 when the decoder does not report a position
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Role selects which side of a stream a file configures.
type Role int

const (
	RoleProducer Role = iota
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// DeviceRef names a capture source: either a V4L2 index or a path/URL.
type DeviceRef struct {
	Index   uint
	Path    string
	isIndex bool
}

// DeviceIndex refers to /dev/video<n>.
func DeviceIndex(n uint) DeviceRef { return DeviceRef{Index: n, isIndex: true} }

// DevicePath refers to a file, device node or URL.
func DevicePath(p string) DeviceRef { return DeviceRef{Path: p} }

func (d DeviceRef) IsIndex() bool { return d.isIndex }
func (d DeviceRef) IsZero() bool  { return !d.isIndex && d.Path == "" }

// Node returns the path ffmpeg should open.
func (d DeviceRef) Node() string {
	if d.isIndex {
		return "/dev/video" + strconv.FormatUint(uint64(d.Index), 10)
	}
	return d.Path
}

func (d DeviceRef) String() string {
	if d.isIndex {
		return strconv.FormatUint(uint64(d.Index), 10)
	}
	return d.Path
}

// StreamConfig is the validated content of one stream file.
type StreamConfig struct {
	Role    Role
	Source  string
	Name    string
	Address string
	Prefix  string
	FPS     uint
	Verbose bool

	// Producer.
	Device        DeviceRef
	EncodeQuality uint

	// Consumer.
	Width  uint
	Height uint
	Gamma  float64
	Angle  int
	Flip   string

	// Settings holds every numeric top-level value by key. Device settings
	// are looked up here by display name.
	Settings map[string]float64
}

// Value implements device.Values.
func (c *StreamConfig) Value(name string) (float64, bool) {
	v, ok := c.Settings[name]
	return v, ok
}

// LogValue lists the fields relevant to the role.
func (c *StreamConfig) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("name", c.Name),
		slog.String("address", c.Address),
		slog.String("prefix", c.Prefix),
		slog.Uint64("fps", uint64(c.FPS)),
	}
	switch c.Role {
	case RoleProducer:
		attrs = append(attrs,
			slog.String("device", c.Device.String()),
			slog.Uint64("encode", uint64(c.EncodeQuality)),
		)
	case RoleConsumer:
		attrs = append(attrs,
			slog.Uint64("width", uint64(c.Width)),
			slog.Uint64("height", uint64(c.Height)),
			slog.Float64("gamma", c.Gamma),
			slog.Int("angle", c.Angle),
			slog.String("flip", c.Flip),
		)
	}
	return slog.GroupValue(attrs...)
}

// Load reads, decodes and validates a stream file. Files ending in .toml are
// TOML, anything else is JSON. Keys with the wrong type take their default.
func Load(path string, role Role) (*StreamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stream file: %w", err)
	}
	raw, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	cfg := fromMap(raw, role)
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the required fields for the role.
func (c *StreamConfig) Validate() error {
	if c.Address == "" {
		return ErrNoAddress
	}
	if c.Prefix == "" {
		return ErrNoPrefix
	}
	if c.Role == RoleProducer && c.Device.IsZero() {
		return ErrNoDevice
	}
	return nil
}

func decode(path string, data []byte) (map[string]any, error) {
	raw := make(map[string]any)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &raw); err != nil {
			pe := &ParseError{Path: path, Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, _ = de.Position()
			}
			return nil, pe
		}
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		pe := &ParseError{Path: path, Err: err}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			pe.Line = lineAt(data, se.Offset)
		}
		return nil, pe
	}
	if dec.More() {
		return nil, &ParseError{Path: path, Err: errors.New("trailing data after object")}
	}
	return raw, nil
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}

func fromMap(raw map[string]any, role Role) *StreamConfig {
	cfg := &StreamConfig{
		Role:          role,
		Name:          stringOr(raw["name"], DefaultName),
		Address:       stringOr(raw["address"], ""),
		Prefix:        stringOr(raw["prefix"], ""),
		FPS:           uintOr(raw["fps"], 0),
		Verbose:       boolOr(raw["verbose"], false),
		EncodeQuality: uintOr(raw["encode"], DefaultEncodeQuality),
		Width:         uintOr(raw["width"], 0),
		Height:        uintOr(raw["height"], 0),
		Gamma:         floatOr(raw["gamma"], DefaultGamma),
		Angle:         intOr(raw["angle"], 0),
		Flip:          stringOr(raw["flip"], ""),
		Settings:      make(map[string]float64),
	}

	switch d := raw["device"].(type) {
	case string:
		if d != "" {
			cfg.Device = DevicePath(d)
		}
	default:
		if n, ok := uintValue(d); ok {
			cfg.Device = DeviceIndex(n)
		}
	}

	for k, v := range raw {
		if f, ok := floatValue(v); ok {
			cfg.Settings[k] = f
		}
	}
	return cfg
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func uintOr(v any, def uint) uint {
	if n, ok := uintValue(v); ok {
		return n
	}
	return def
}

func intOr(v any, def int) int {
	if n, ok := intValue(v); ok {
		return n
	}
	return def
}

func floatOr(v any, def float64) float64 {
	if f, ok := floatValue(v); ok {
		return f
	}
	return def
}

// uintValue accepts non-negative integer literals only; 10.0 is a float.
func uintValue(v any) (uint, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 0)
		return uint(u), err == nil
	case int64:
		if n >= 0 {
			return uint(n), true
		}
	}
	return 0, false
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 0)
		return int(i), err == nil
	case int64:
		return int(n), true
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
