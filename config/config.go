// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: config.go — Optional runtime profile over the board constants
//
// Purpose:
//   - Profile mirrors the tunables in package constants.
//   - A JSON or YAML profile (path in $TWINCORE_PROFILE) overlays the
//     defaults; keys it omits keep their compile-time value.
//
// Notes:
//   - The arena stays static: a profile may shrink it but never grow it past
//     constants.ArenaSize.
// ─────────────────────────────────────────────────────────────────────────────

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"
	"gopkg.in/yaml.v3"

	"twincore/constants"
)

// EnvProfile names the environment variable holding the profile path.
const EnvProfile = "TWINCORE_PROFILE"

var ErrInvalid = errors.New("config: invalid profile")

// Profile is the full set of runtime tunables.
type Profile struct {
	ArenaSize          int    `json:"arenaSize" yaml:"arenaSize"`
	ChannelCapacity    int    `json:"channelCapacity" yaml:"channelCapacity"`
	CoreStackSize      int    `json:"coreStackSize" yaml:"coreStackSize"`
	ProducerIntervalMs int    `json:"producerIntervalMs" yaml:"producerIntervalMs"`
	CPUs               []int  `json:"cpus" yaml:"cpus"`
	OutputPin          int    `json:"outputPin" yaml:"outputPin"`
	LogLevel           string `json:"logLevel" yaml:"logLevel"`
	SpinBudget         int    `json:"spinBudget" yaml:"spinBudget"`
	HotWindowMs        int    `json:"hotWindowMs" yaml:"hotWindowMs"`
	TelemetryPerSecond int    `json:"telemetryPerSecond" yaml:"telemetryPerSecond"`
}

// Default returns the compile-time profile.
func Default() Profile {
	return Profile{
		ArenaSize:          constants.ArenaSize,
		ChannelCapacity:    constants.ChannelCapacity,
		CoreStackSize:      constants.CoreStackSize,
		ProducerIntervalMs: int(constants.ProducerInterval / time.Millisecond),
		CPUs:               []int{constants.CoreACPU, constants.CoreBCPU},
		OutputPin:          constants.OutputPin,
		LogLevel:           constants.LogLevel,
		SpinBudget:         constants.SpinBudget,
		HotWindowMs:        int(constants.HotWindow / time.Millisecond),
		TelemetryPerSecond: constants.TelemetryPerSecond,
	}
}

// Parse decodes a JSON profile over the defaults and validates the result.
func Parse(data []byte) (Profile, error) {
	return decode(data, sonnet.Unmarshal)
}

// ParseYAML is Parse for YAML documents.
func ParseYAML(data []byte) (Profile, error) {
	return decode(data, yaml.Unmarshal)
}

func decode(data []byte, unmarshal func([]byte, any) error) (Profile, error) {
	p := Default()
	if err := unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("config: decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Load reads and parses the profile at path; .yaml and .yml files are YAML,
// anything else JSON.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// FromEnv loads the profile named by $TWINCORE_PROFILE, or returns the
// defaults when it is unset.
func FromEnv() (Profile, error) {
	path := os.Getenv(EnvProfile)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate reports the first out-of-range field, wrapped in ErrInvalid.
func (p Profile) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
	}
	switch {
	case p.ArenaSize < 2*constants.ArenaAlign || p.ArenaSize > constants.ArenaSize:
		return bad("arenaSize %d outside [%d, %d]", p.ArenaSize, 2*constants.ArenaAlign, constants.ArenaSize)
	case p.ArenaSize%constants.ArenaAlign != 0:
		return bad("arenaSize %d not a multiple of %d", p.ArenaSize, constants.ArenaAlign)
	case p.ChannelCapacity < 1:
		return bad("channelCapacity %d < 1", p.ChannelCapacity)
	case p.CoreStackSize < 64:
		return bad("coreStackSize %d < 64", p.CoreStackSize)
	case p.CoreStackSize%constants.ArenaAlign != 0:
		return bad("coreStackSize %d not a multiple of %d", p.CoreStackSize, constants.ArenaAlign)
	case p.ProducerIntervalMs <= 0:
		return bad("producerIntervalMs %d <= 0", p.ProducerIntervalMs)
	case len(p.CPUs) != 2:
		return bad("cpus needs exactly 2 entries, got %d", len(p.CPUs))
	case p.CPUs[0] < -1 || p.CPUs[1] < -1:
		return bad("cpus %v: use -1 for unpinned", p.CPUs)
	case p.CPUs[0] >= 0 && p.CPUs[0] == p.CPUs[1]:
		return bad("both cores pinned to cpu %d", p.CPUs[0])
	case p.SpinBudget < 0:
		return bad("spinBudget %d < 0", p.SpinBudget)
	case p.HotWindowMs < 0:
		return bad("hotWindowMs %d < 0", p.HotWindowMs)
	case p.TelemetryPerSecond < 0:
		return bad("telemetryPerSecond %d < 0", p.TelemetryPerSecond)
	}
	if _, err := zerolog.ParseLevel(p.LogLevel); err != nil {
		return bad("logLevel %q: %v", p.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level.
func (p Profile) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(p.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// ProducerInterval is ProducerIntervalMs as a duration.
func (p Profile) ProducerInterval() time.Duration {
	return time.Duration(p.ProducerIntervalMs) * time.Millisecond
}

// HotWindow is HotWindowMs as a duration.
func (p Profile) HotWindow() time.Duration {
	return time.Duration(p.HotWindowMs) * time.Millisecond
}
