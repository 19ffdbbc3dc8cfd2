package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKDFParamsSerializeRoundTrip(t *testing.T) {
	p, err := NewKDFParams()
	require.NoError(t, err)

	data := p.Serialize()
	require.LessOrEqual(t, len(data), 255)

	got, err := DeserializeKDFParams(data)
	require.NoError(t, err)
	require.Equal(t, p.Salt, got.Salt)
	require.Equal(t, p.N, got.N)
	require.Equal(t, p.R, got.R)
	require.Equal(t, p.P, got.P)
}

func TestDeriveKpDeterministic(t *testing.T) {
	p, err := NewKDFParams()
	require.NoError(t, err)

	k1, err := DeriveKp("correct horse", p, 32)
	require.NoError(t, err)
	k2, err := DeriveKp("correct horse", p, 32)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := DeriveKp("wrong horse", p, 32)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}
