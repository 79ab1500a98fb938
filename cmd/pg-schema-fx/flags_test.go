package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFmtToMap(t *testing.T) {
	for _, tc := range []struct {
		name    string
		logFmt  string
		want    map[string]string
		wantErr bool
	}{
		{
			name:   "empty string",
			logFmt: "",
			want:   map[string]string{},
		},
		{
			name:   "single key value pair",
			logFmt: "lock_timeout=5s",
			want:   map[string]string{"lock_timeout": "5s"},
		},
		{
			name:   "quoted value",
			logFmt: `search_path="app, public" work_mem=64MB`,
			want:   map[string]string{"search_path": "app, public", "work_mem": "64MB"},
		},
		{
			name:   "multiple records",
			logFmt: "a=1 b=2\nc=3",
			want:   map[string]string{"a": "1", "b": "2", "c": "3"},
		},
		{
			name:    "duplicate key",
			logFmt:  "a=1 a=2",
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := logFmtToMap(tc.logFmt)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildSessionSettings(t *testing.T) {
	settings, err := migrateFlags{
		statementTimeout: 2 * time.Second,
		sessionSettings:  "work_mem=64MB",
	}.buildSessionSettings()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"statement_timeout": "2000ms",
		"work_mem":          "64MB",
	}, settings)

	_, err = migrateFlags{
		lockTimeout:     time.Second,
		sessionSettings: "lock_timeout=5s",
	}.buildSessionSettings()
	assert.ErrorContains(t, err, "lock_timeout is set both by its flag and in the session settings")
}
