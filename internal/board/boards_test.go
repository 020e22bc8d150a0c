package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownBoards(t *testing.T) {
	for _, id := range []ID{Uno, Nano, Mini, Mega2560} {
		p, err := Lookup(id)
		require.NoError(t, err)
		assert.Greater(t, p.PageSize, 0)
		assert.Greater(t, p.NumPages, 0)
		assert.NotZero(t, p.Baud)
	}
}

func TestLookupUnknownBoard(t *testing.T) {
	_, err := Lookup(ID("esp32")) // out of scope for this engine
	require.Error(t, err)
	var ube *UnknownBoardError
	require.ErrorAs(t, err, &ube)
}

func TestMegaHasLargerFlashThanUno(t *testing.T) {
	uno, err := Lookup(Uno)
	require.NoError(t, err)
	mega, err := Lookup(Mega2560)
	require.NoError(t, err)
	assert.Greater(t, mega.FlashSize(), uno.FlashSize())
}
