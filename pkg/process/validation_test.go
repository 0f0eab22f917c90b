package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-searchd/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExecutionConfig(t *testing.T) {
	tempDir := t.TempDir()
	plainFile := filepath.Join(tempDir, "file")
	require.NoError(t, os.WriteFile(plainFile, nil, 0644))

	tests := []struct {
		name      string
		config    ExecutionConfig
		shouldErr bool
	}{
		{"valid_minimal", ExecutionConfig{ExecutablePath: "searchd"}, false},
		{"valid_full", ExecutionConfig{ExecutablePath: "searchd", WorkingDirectory: tempDir, Environment: []string{"LANG=C"}}, false},
		{"missing_path", ExecutionConfig{}, true},
		{"relative_workdir", ExecutionConfig{ExecutablePath: "searchd", WorkingDirectory: "relative"}, true},
		{"missing_workdir", ExecutionConfig{ExecutablePath: "searchd", WorkingDirectory: filepath.Join(tempDir, "absent")}, true},
		{"workdir_is_file", ExecutionConfig{ExecutablePath: "searchd", WorkingDirectory: plainFile}, true},
		{"bad_environment", ExecutionConfig{ExecutablePath: "searchd", Environment: []string{"LANG"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutionConfig(tt.config)

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutionConfig_Argv(t *testing.T) {
	config := ExecutionConfig{ExecutablePath: "/usr/bin/searchd", Args: []string{"--config", "/etc/sphinx.conf"}}

	assert.Equal(t, []string{"/usr/bin/searchd", "--config", "/etc/sphinx.conf"}, config.Argv())
}

func TestSignal_Names(t *testing.T) {
	assert.Equal(t, "TERM", SignalTerminate.Name())
	assert.Equal(t, "KILL", SignalKill.Name())
	assert.Equal(t, "HUP", SignalReload.Name())
	assert.Equal(t, "SIGHUP", SignalReload.String())
}

func TestOutcome_Success(t *testing.T) {
	assert.True(t, Outcome{Exited: true}.Success())
	assert.True(t, Outcome{NoChild: true}.Success())
	assert.False(t, Outcome{Exited: true, ExitCode: 2}.Success())
	assert.False(t, Outcome{Signaled: true, Signal: 9}.Success())
	assert.False(t, Outcome{LaunchErr: os.ErrNotExist}.Success())
}
