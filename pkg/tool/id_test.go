package tool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInnerSessionID(t *testing.T) {
	a, b := InnerSessionID(), InnerSessionID()
	require.NotEqual(t, a, b)
	require.True(t, IsInnerSessionID(a))
	require.False(t, IsInnerSessionID("cs_test_123"))
}
