package credential

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator()

	token, err := g.Generate()
	require.NoError(t, err)
	require.Len(t, token, TokenBytes*2)

	decoded, err := hex.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, decoded, TokenBytes)
}

func TestGenerator_Generate_Unique(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token, err := g.Generate()
		require.NoError(t, err)
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d generations: %s", i, token)
		}
		seen[token] = struct{}{}
	}
}
