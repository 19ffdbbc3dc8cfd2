package envelope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moneytech/rvault/crypto"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	kp, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	ke, err := crypto.RandomBytes(32)
	require.NoError(t, err)

	ks, err := Wrap(kp, ke)
	require.NoError(t, err)

	got, err := Unwrap(kp, ks)
	require.NoError(t, err)
	require.Equal(t, ke, got)
}

func TestUnwrapWrongKeyFails(t *testing.T) {
	kp, _ := crypto.RandomBytes(32)
	ke, _ := crypto.RandomBytes(32)
	ks, err := Wrap(kp, ke)
	require.NoError(t, err)

	wrongKp, _ := crypto.RandomBytes(32)
	_, err = Unwrap(wrongKp, ks)
	require.Error(t, err)
}

func TestMemoryClientRegisterFetch(t *testing.T) {
	m := NewMemory()
	var uid [16]byte
	copy(uid[:], []byte("0123456789abcdef"))

	require.NoError(t, m.Register(context.Background(), uid, nil, []byte("wrapped-key")))
	got, err := m.Fetch(context.Background(), uid, "000000")
	require.NoError(t, err)
	require.Equal(t, []byte("wrapped-key"), got)
}

func TestMemoryClientFetchUnknownUIDFails(t *testing.T) {
	m := NewMemory()
	var uid [16]byte
	_, err := m.Fetch(context.Background(), uid, "000000")
	require.Error(t, err)
}
