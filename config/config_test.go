package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincore/constants"
	"twincore/launcher"
)

func TestDefaultMatchesConstants(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, constants.ArenaSize, p.ArenaSize)
	assert.Equal(t, 1, p.ChannelCapacity)
	assert.Equal(t, 100*time.Millisecond, p.ProducerInterval())
	assert.Equal(t, constants.HotWindow, p.HotWindow())
	assert.Equal(t, []int{0, 1}, p.CPUs)
	assert.Equal(t, zerolog.InfoLevel, p.Level())
}

func TestParseOverlaysDefaults(t *testing.T) {
	p, err := Parse([]byte(`{"channelCapacity": 4, "logLevel": "debug", "cpus": [-1, -1]}`))
	require.NoError(t, err)
	assert.Equal(t, 4, p.ChannelCapacity)
	assert.Equal(t, zerolog.DebugLevel, p.Level())
	assert.Equal(t, []int{-1, -1}, p.CPUs)
	// untouched keys keep their defaults
	assert.Equal(t, constants.ArenaSize, p.ArenaSize)
	assert.Equal(t, constants.OutputPin, p.OutputPin)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"arena too big":     `{"arenaSize": 4096}`,
		"arena unaligned":   `{"arenaSize": 100}`,
		"zero capacity":     `{"channelCapacity": 0}`,
		"tiny stack":        `{"coreStackSize": 8}`,
		"odd stack":         `{"coreStackSize": 65}`,
		"zero interval":     `{"producerIntervalMs": 0}`,
		"one cpu":           `{"cpus": [0]}`,
		"same cpu":          `{"cpus": [2, 2]}`,
		"bad cpu":           `{"cpus": [-3, 1]}`,
		"negative spin":     `{"spinBudget": -1}`,
		"unknown log level": `{"logLevel": "loud"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"arenaSize": `))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoadAndFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"producerIntervalMs": 250}`), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, p.ProducerInterval())

	t.Setenv(EnvProfile, path)
	p, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 250, p.ProducerIntervalMs)

	t.Setenv(EnvProfile, "")
	p, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), p)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	p, err := ParseYAML([]byte("channelCapacity: 2\ncpus: [3, 4]\nlogLevel: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.ChannelCapacity)
	assert.Equal(t, []int{3, 4}, p.CPUs)
	assert.Equal(t, zerolog.WarnLevel, p.Level())
	assert.Equal(t, constants.CoreStackSize, p.CoreStackSize)

	_, err = ParseYAML([]byte("spinBudget: -2\n"))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadPicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "profile.yml")
	require.NoError(t, os.WriteFile(yml, []byte("producerIntervalMs: 40\n"), 0o600))
	p, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, p.ProducerInterval())

	// YAML content in a .json file is rejected by the JSON decoder
	js := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(js, []byte("producerIntervalMs: 40\n"), 0o600))
	_, err = Load(js)
	require.Error(t, err)
}

func TestValidStackSizesAreAcceptedByLauncher(t *testing.T) {
	p := Default()
	for size := 0; size <= 160; size++ {
		p.CoreStackSize = size
		if p.Validate() != nil {
			continue
		}
		_, err := launcher.NewStack(size)
		require.NoError(t, err, "coreStackSize %d", size)
	}
}
