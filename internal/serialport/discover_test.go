package serialport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverNoCandidatesNeverMatches(t *testing.T) {
	// With no candidates, Discover can never find a match regardless of
	// what's attached to the host, so this is safe to run anywhere.
	_, err := Discover(nil)
	require.Error(t, err)
	var pe *PortError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "discover", pe.Op)
}
