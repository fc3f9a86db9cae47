package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("1234")
	require.True(t, ok)
	require.Equal(t, int64(1234), id)

	for _, s := range []string{"", "0", "-5", "abc", "12.5"} {
		_, ok := ParseID(s)
		require.False(t, ok, s)
	}
}
