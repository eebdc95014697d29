package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	env := newTestEnv(t)

	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "rolodex version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	env := newTestEnv(t)

	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()

	out, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "rolodex version dev")
}

func TestVersionCmd_JSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "version", "--output", "json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version, info.Version)
	assert.NotEmpty(t, info.Platform)
}

func TestVersionCmd_DoesNotBootstrap(t *testing.T) {
	env := newTestEnv(t)
	bootstrap = nil

	_, err := env.run(t, "version")
	assert.NoError(t, err)
}
