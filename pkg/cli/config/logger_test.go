package config_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/bumprisk/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestLogger_Configure(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "Valid level: debug", level: "debug"},
		{name: "Valid level: DEBUG (case insensitive)", level: "DEBUG"},
		{name: "Valid level: info", level: "info"},
		{name: "Valid level: Warn", level: "Warn"},
		{name: "Valid level: ERROR", level: "ERROR"},
		{name: "Invalid level: invalid", level: "invalid", wantErr: true},
		{name: "Invalid level: empty string", level: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &config.Logger{Level: tt.level}
			logger.SetWriter(&bytes.Buffer{})

			result, err := logger.Configure()
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, result).NotNil()
		})
	}
}

func TestLogger_Configure_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "info", JSON: true}
	logger.SetWriter(&buf)

	result, err := logger.Configure()
	gt.NoError(t, err)

	result.Debug("hidden")
	result.Info("test log message", "assessment_id", "a-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.Equal(t, len(lines), 1)

	var record map[string]any
	gt.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	gt.Equal(t, record["msg"], "test log message")
	gt.Equal(t, record["assessment_id"], "a-1")
}

func TestLogger_Configure_Redaction(t *testing.T) {
	for _, jsonFormat := range []bool{true, false} {
		var buf bytes.Buffer
		logger := &config.Logger{Level: "debug", JSON: jsonFormat}
		logger.SetWriter(&buf)

		result, err := logger.Configure()
		gt.NoError(t, err)

		result.Info("connecting", "secret_dsn", "postgres://user:p4ssw0rd@db/bumprisk")
		gt.True(t, strings.Contains(buf.String(), "connecting"))
		gt.False(t, strings.Contains(buf.String(), "p4ssw0rd"))
	}
}

func TestLogger_Flags(t *testing.T) {
	logger := &config.Logger{}
	flags := logger.Flags()
	gt.Equal(t, len(flags), 2)

	flagNames := make(map[string]bool)
	for _, flag := range flags {
		if names := flag.Names(); len(names) > 0 {
			flagNames[names[0]] = true
		}
	}

	gt.True(t, flagNames["log-level"])
	gt.True(t, flagNames["log-json"])
}
