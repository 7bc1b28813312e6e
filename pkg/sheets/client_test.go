package sheets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopLeft(t *testing.T) {
	require.Equal(t, "A1", topLeft("A1:Z5000"))
	require.Equal(t, "Roster!B2", topLeft("Roster!B2:F900"))
	require.Equal(t, "C3", topLeft("C3"))
}
