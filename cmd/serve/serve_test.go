package serve_test

import (
	"testing"
	"time"

	"fjacquet/fintrack/cmd/serve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Metadata(t *testing.T) {
	assert.Equal(t, "serve", serve.Cmd.Use)
	assert.Contains(t, serve.Cmd.Long, "X-User-ID")
	assert.NotNil(t, serve.Cmd.RunE)
}

func TestServeCommand_Flags(t *testing.T) {
	addr := serve.Cmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "a", addr.Shorthand)
	assert.Equal(t, "", addr.DefValue)

	interval := serve.Cmd.Flags().Lookup("maintenance-interval")
	require.NotNil(t, interval)
	assert.Equal(t, time.Minute.String(), interval.DefValue)
}
