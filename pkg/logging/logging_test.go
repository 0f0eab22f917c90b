package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLine struct {
	level string
	text  string
}

func recordingFuncs(lines *[]recordedLine) LogFuncs {
	record := func(level string) LogFunc {
		return func(format string, args ...interface{}) {
			*lines = append(*lines, recordedLine{level, fmt.Sprintf(format, args...)})
		}
	}
	return LogFuncs{
		Debugf: record("debug"),
		Infof:  record("info"),
		Warnf:  record("warn"),
		Errorf: record("error"),
	}
}

func TestLogger_PrefixAndLevels(t *testing.T) {
	var lines []recordedLine
	logger := NewLogger("searchctl: ", recordingFuncs(&lines))

	logger.Debugf("polling pid %d", 42)
	logger.Infof("started")
	logger.Warnf("stale pid file")
	logger.Errorf("stop failed")
	logger.LogLevelf(LogLevelInfo, "via level %s", "info")

	require.Len(t, lines, 5)
	assert.Equal(t, recordedLine{"debug", "searchctl: polling pid 42"}, lines[0])
	assert.Equal(t, "warn", lines[2].level)
	assert.Equal(t, recordedLine{"info", "searchctl: via level info"}, lines[4])
}

func TestNamed_AppendsPrefix(t *testing.T) {
	var lines []recordedLine
	logger := Named(NewLogger("searchctl: ", recordingFuncs(&lines)), "pid-resolver")

	logger.Infof("cache hit")

	require.Len(t, lines, 1)
	assert.Equal(t, "searchctl: pid-resolver: cache hit", lines[0].text)
}

func TestNopLogger_DropsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopLogger().Errorf("nothing %d", 1)
	})
}

func TestGetLevelFromString(t *testing.T) {
	_, err := getLevelFromString("verbose")
	assert.Error(t, err)

	level, err := getLevelFromString(LevelForVerbosity(2))
	require.NoError(t, err)
	assert.Equal(t, "debug", level.String())

	logger, err := NewZapLogger(LevelForVerbosity(0))
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
