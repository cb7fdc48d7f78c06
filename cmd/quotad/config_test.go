package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigBackend(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           "",
		"memory":     backendMemory,
		"Postgres":   backendPostgres,
		"pg":         backendPostgres,
		"postgresql": backendPostgres,
		"redis":      backendRedis,
		"mongodb":    backendMongo,
		" mongo ":    backendMongo,
	}
	for in, want := range tests {
		got, err := appConfig{Backend: in}.backend()
		if want == "" {
			assert.ErrorIs(t, err, errUnknownBackend)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}
