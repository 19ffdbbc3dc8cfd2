package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vaulterrors"
)

func sampleHeader(t *testing.T) Header {
	t.Helper()
	kdf, err := crypto.NewKDFParams()
	require.NoError(t, err)
	return Header{
		Version: SupportedVersion,
		Cipher:  crypto.ChaCha20Poly1305,
		Flags:   FlagNoAuth,
		UID:     [16]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		IV:      []byte("0123456789ab"), // 12 bytes, matches aes-gcm/chacha20poly1305 iv length
		KDF:     kdf.Serialize(),
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	h := sampleHeader(t)
	unauth, err := h.EncodeUnauthenticated()
	require.NoError(t, err)
	require.Equal(t, h.EncodedLen()-HMACLen, len(unauth))

	tag := make([]byte, HMACLen)
	for i := range tag {
		tag[i] = byte(i)
	}
	record := Finalize(unauth, tag)
	require.Equal(t, h.EncodedLen(), len(record))

	parsed, err := Parse(record)
	require.NoError(t, err)
	require.Equal(t, h.Version, parsed.Header.Version)
	require.Equal(t, h.Cipher, parsed.Header.Cipher)
	require.Equal(t, h.Flags, parsed.Header.Flags)
	require.Equal(t, h.UID, parsed.Header.UID)
	require.Equal(t, h.IV, parsed.Header.IV)
	require.Equal(t, h.KDF, parsed.Header.KDF)
	require.Equal(t, tag, parsed.Tag)
	require.True(t, parsed.Header.NoAuth())
}

func TestParseRejectsBadVersionBeforeLengthCheck(t *testing.T) {
	h := sampleHeader(t)
	unauth, err := h.EncodeUnauthenticated()
	require.NoError(t, err)
	tag := make([]byte, HMACLen)
	record := Finalize(unauth, tag)

	record[0] = SupportedVersion + 1
	// Truncated as well, so the length check alone would also reject it.
	_, err = Parse(record[:len(record)-1])
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.IncompatibleVersion))
}

func TestParseRejectsLengthMismatch(t *testing.T) {
	h := sampleHeader(t)
	unauth, err := h.EncodeUnauthenticated()
	require.NoError(t, err)
	tag := make([]byte, HMACLen)
	record := Finalize(unauth, tag)

	truncated := record[:len(record)-1]
	_, err = Parse(truncated)
	require.Error(t, err)
}

func TestEqualDetectsSingleByteFlip(t *testing.T) {
	h := sampleHeader(t)
	unauth, _ := h.EncodeUnauthenticated()
	tag := make([]byte, HMACLen)
	a := Finalize(unauth, tag)
	b := append([]byte(nil), a...)
	b[10] ^= 0x01
	require.False(t, Equal(a, b))
	require.True(t, Equal(a, a))
}
