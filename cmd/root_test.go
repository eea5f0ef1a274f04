package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{
		"serve":   false,
		"run":     false,
		"status":  false,
		"setup":   false,
		"version": false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}

	for name, found := range expected {
		assert.True(t, found, "command %s not registered", name)
	}
}

func TestServeCommandFlags(t *testing.T) {
	flags := map[string]string{}
	serveCmd.Flags().VisitAll(func(f *pflag.Flag) {
		flags[f.Name] = f.DefValue
	})

	def, ok := flags["listen"]
	assert.True(t, ok, "serve must expose --listen")
	assert.Empty(t, def, "--listen defaults to the config value")
}

func TestRunCommandArgLimit(t *testing.T) {
	assert.Error(t, runCmd.Args(runCmd, []string{"FULL_REFRESH", "extra"}))
	assert.NoError(t, runCmd.Args(runCmd, []string{"FULL_REFRESH"}))
	assert.NoError(t, runCmd.Args(runCmd, nil))
}
