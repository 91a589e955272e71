package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/YuminosukeSato/matprop/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message")
	testLogger.Error("error message", fmt.Errorf("test error"))

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "test error"))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	ctxLogger := testLogger.With(
		ComponentKey, "pipeline",
		TargetKey, "d33 (pC/N)",
	)
	ctxLogger.Info("candidate evaluated", ModelNameKey, "XGBoost", R2ScoreKey, 0.5)

	assert.True(t, testLogger.ContainsField(ComponentKey, "pipeline"))
	assert.True(t, testLogger.ContainsField(TargetKey, "d33 (pC/N)"))
	assert.True(t, testLogger.ContainsField(ModelNameKey, "XGBoost"))
	assert.True(t, testLogger.ContainsField(R2ScoreKey, 0.5))
}

func TestTestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("hidden")
	testLogger.Info("shown")
	assert.False(t, testLogger.ContainsMessage("hidden"))
	assert.True(t, testLogger.ContainsMessage("shown"))
}

func TestTestLoggerConcurrent(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				testLogger.Info("message", "goroutine_id", id, "message_id", j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 80)
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("dropped")
	logger.With(ComponentKey, "lifecycle").Info("promoted", TargetKey, "Tc (C)", ArtifactKey, "production_Tc_C.model")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "promoted", entry["message"])
	assert.Equal(t, "lifecycle", entry[ComponentKey])
	assert.Equal(t, "Tc (C)", entry[TargetKey])
}

func TestZerologLoggerErrorCarriesStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := perrors.NewValidationError("max_depth", "must be positive", -1)
	logger.Error("invalid hyperparameters", ErrAttrKey, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry[ErrAttrKey], "max_depth")
	assert.Contains(t, entry, ErrAttrKey+".detail")
}

func TestZerologLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelError)
	named := provider.GetLoggerWithName("service")

	named.Info("hidden")
	provider.SetLevel(LevelInfo)
	named.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), `"ml.component":"service"`)
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobalProvider(t *testing.T) {
	previous := Provider()
	defer SetProvider(previous)

	provider, captured := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)

	GetLoggerWithName("chem").Debug("parsed", FormulaKey, "BaTiO3")
	assert.True(t, captured.ContainsField(ComponentKey, "chem"))
	assert.True(t, captured.ContainsField(FormulaKey, "BaTiO3"))
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	previous := Provider()
	defer SetProvider(previous)
	defer perrors.SetZerologWarnFunc(nil)

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, LevelInfo))

	perrors.Warn(perrors.NewUndefinedMetricWarning("r2_score", "fewer than two samples", 0))
	assert.Contains(t, buf.String(), "r2_score")
	assert.Contains(t, buf.String(), `"ml.component":"warnings"`)
}

func BenchmarkTestLogger(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctxLogger := testLogger.With(ModelNameKey, "XGBoost")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctxLogger.Info("benchmark message", "iteration", i, OperationKey, OperationPredict)
	}
}
