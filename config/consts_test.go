package config_test

import (
	"testing"

	"github.com/ludios/reapfrog/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatParse(t *testing.T) {
	tests := []struct {
		in   string
		want config.LogFormat
	}{
		{"auto", config.LogFormatAuto},
		{"JSON", config.LogFormatZerolog},
		{"zerolog", config.LogFormatZerolog},
		{"bunyan", config.LogFormatBunyan},
		{"Human", config.LogFormatHuman},
	}
	for _, tt := range tests {
		got, err := config.LogFormatParse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := config.LogFormatParse("xml")
	assert.Error(t, err)
}

func TestLogFormatRoundTrip(t *testing.T) {
	for _, f := range []config.LogFormat{config.LogFormatAuto, config.LogFormatZerolog, config.LogFormatBunyan, config.LogFormatHuman} {
		got, err := config.LogFormatParse(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
	}{
		{8388608, 8 << 20},
		{int64(4096), 4096},
		{"1024", 1024},
		{" 64KiB ", 64 << 10},
		{"8MiB", 8 << 20},
		{"1GiB", 1 << 30},
	}
	for _, tt := range tests {
		got, err := config.ParseBytes(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	for _, bad := range []interface{}{"", "lots", -1, "-5"} {
		_, err := config.ParseBytes(bad)
		assert.Error(t, err, "%v", bad)
	}
}
