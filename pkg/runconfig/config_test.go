package runconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	require.NotNil(t, c)
	assert.Equal(t, 5*time.Second, c.PollInterval)
	assert.NotEmpty(t, c.DBRoot)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("BAP_TOT_CPU", "4")
	t.Setenv("BAP_TOT_MEM", "16")
	t.Setenv("BAP_POLL_INTERVAL", "2s")
	t.Setenv("BAP_VERBOSE", "true")

	c := NewDefault()
	assert.Equal(t, 4, c.TotCPU)
	assert.Equal(t, 16, c.TotMem)
	assert.Equal(t, 2*time.Second, c.PollInterval)
	assert.True(t, c.Verbose)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	c := &Config{PollInterval: 0, DBRoot: "x"}
	assert.ErrorIs(t, c.Validate(), ErrInvalidPollInterval)

	c = &Config{PollInterval: time.Second, DBRoot: ""}
	assert.ErrorIs(t, c.Validate(), ErrMissingDBRoot)

	c = &Config{PollInterval: time.Second, DBRoot: "x", TotCPU: -1}
	assert.ErrorIs(t, c.Validate(), ErrNegativeResource)
}
