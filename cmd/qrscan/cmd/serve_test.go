package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/config"
)

func TestServerSettings(t *testing.T) {
	base := config.DefaultConfig().Server

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.AddFlagSet(serveCmd.Flags())
	require.NoError(t, flags.Parse([]string{"--port", "9000", "--rate-limit", "2.5", "--overlay-enable=false"}))
	t.Cleanup(func() { resetCommand(serveCmd) })

	got := serverSettings(flags, base)
	assert.Equal(t, 9000, got.Port)
	assert.InDelta(t, 2.5, got.RateLimitRPS, 1e-9)
	assert.False(t, got.OverlayEnabled)
	assert.Equal(t, base.Host, got.Host, "unchanged flags keep the configured value")
	assert.Equal(t, base.PoolSize, got.PoolSize)
}

func TestServeRejectsInvalidPort(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}
