package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaults(t *testing.T) {
	for _, env := range envNames {
		t.Setenv(env, "")
	}
	s := LoadSettings(NewViper())
	assert.Equal(t, DefaultConfPath, s.ConfPath)
	assert.Equal(t, DefaultCommandsConfPath, s.CommandsConfPath)
	assert.False(t, s.UsePTY)
	assert.Zero(t, s.ManagementPort)
	assert.Equal(t, DefaultLogFile, s.LogFile)
	assert.Empty(t, s.HistoryDSN)
	assert.False(t, s.QuitOnExit)
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("ServerManagerBot_ConfPath", "/etc/bot.json")
	t.Setenv("ServerManagerBot_CommandsConfPath", "/etc/cmds.json")
	t.Setenv("ServerManagerBot_UsePty", "YES")
	t.Setenv("ServerManagerBot_ManagementPort", "8080")
	t.Setenv("ServerManagerBot_HistoryDSN", "sqlite://a.db, sqlite://b.db")
	t.Setenv("ServerManagerBot_QuitOnExit", "1")

	s := LoadSettings(NewViper())
	assert.Equal(t, "/etc/bot.json", s.ConfPath)
	assert.Equal(t, "/etc/cmds.json", s.CommandsConfPath)
	assert.True(t, s.UsePTY)
	assert.Equal(t, 8080, s.ManagementPort)
	assert.Equal(t, []string{"sqlite://a.db", "sqlite://b.db"}, s.HistoryDSN)
	assert.True(t, s.QuitOnExit)
}

func TestManagementPortUnparsable(t *testing.T) {
	for _, raw := range []string{"", "http", "-1", "70000"} {
		t.Setenv("ServerManagerBot_ManagementPort", raw)
		s := LoadSettings(NewViper())
		assert.Zero(t, s.ManagementPort, "raw %q", raw)
		assert.Equal(t, raw, s.ManagementPortRaw)
	}
}

func TestFlagWinsOverEnv(t *testing.T) {
	t.Setenv("ServerManagerBot_ConfPath", "from-env.json")
	t.Setenv("ServerManagerBot_LogLevel", "warn")

	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--conf-path", "from-flag.json"}))

	s := LoadSettings(v)
	assert.Equal(t, "from-flag.json", s.ConfPath)
	assert.Equal(t, "warn", s.LogLevel, "env applies when the flag is not set")
}

func TestParseFlag(t *testing.T) {
	for _, in := range []string{"1", "yes", "Yes", "TRUE", " true "} {
		assert.True(t, ParseFlag(in), in)
	}
	for _, in := range []string{"", "0", "no", "on", "y"} {
		assert.False(t, ParseFlag(in), in)
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ServerManagerBot_UsePty", EnvName(KeyUsePTY))
}
