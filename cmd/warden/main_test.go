// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "config flag",
			args:     []string{"--config", "/path/to/warden.yaml", "--help"},
			wantFlag: "/path/to/warden.yaml",
		},
		{
			name:     "config flag with equals",
			args:     []string{"--config=/etc/warden.yaml", "--help"},
			wantFlag: "/etc/warden.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""
			t.Cleanup(func() { configFile = "" })

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	expectedFlags := []string{
		"--auto-migrate",
		"--tick",
		"--database.url",
		"--log.format",
		"--log.level",
		"--metrics.addr",
	}
	for _, flag := range expectedFlags {
		assert.Contains(t, output, flag, "Help missing %q flag", flag)
	}
}

func TestServeCommand_Defaults(t *testing.T) {
	cmd := NewServeCmd()

	autoMigrate, err := cmd.Flags().GetBool("auto-migrate")
	require.NoError(t, err)
	assert.True(t, autoMigrate, "auto-migrate should default to on")

	tick, err := cmd.Flags().GetDuration("tick")
	require.NoError(t, err)
	assert.Equal(t, defaultTickInterval, tick)
}
