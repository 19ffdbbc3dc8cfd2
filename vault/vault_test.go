package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	vcrypto "github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/envelope"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/recovery"
	"github.com/moneytech/rvault/vaulterrors"
)

func tmpDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// Round-trip with NOAUTH: opening with the init passphrase succeeds,
// opening with any other passphrase fails AuthenticationFailed.
func TestOpen_NoAuthRoundTrip_WrongPassphraseFailsAuthentication(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256CBC

	err := Init(dir, InitOptions{
		Passphrase: "correct horse",
		UIDHex:     "00112233445566778899aabbccddeeff",
		Cipher:     &cipher,
		NoAuth:     true,
	})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, metadata.FileName))
	require.NoError(t, err)
	require.GreaterOrEqual(t, info.Size(), int64(64+16+29+32))

	v, err := Open(dir, OpenOptions{Passphrase: "correct horse"})
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, err = Open(dir, OpenOptions{Passphrase: "wrong horse"})
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.AuthenticationFailed))
}

// Flipping the on-disk version byte causes Open to fail
// IncompatibleVersion.
func TestOpen_VersionByteFlip_FailsIncompatibleVersion(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.ChaCha20Poly1305
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	path := filepath.Join(dir, metadata.FileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = Open(dir, OpenOptions{Passphrase: "p"})
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.IncompatibleVersion))
}

// Flipping the last byte of the stored HMAC causes Open to fail
// AuthenticationFailed.
func TestOpen_HMACByteFlip_FailsAuthentication(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	path := filepath.Join(dir, metadata.FileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = Open(dir, OpenOptions{Passphrase: "p"})
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.AuthenticationFailed))
}

// A UID that isn't valid hex fails BadUid, and no metadata file is
// created.
func TestInit_BadUidHex_FailsWithoutCreatingFile(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	err := Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "not-hex",
		Cipher: &cipher, NoAuth: true,
	})
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.BadUid))
	require.False(t, metadata.Exists(dir))
}

// Initializing a directory that already has a metadata file fails
// AlreadyExists, and the original file is left unchanged.
func TestInit_Twice_FailsAlreadyExistsLeavingFileUnchanged(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	opts := InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}
	require.NoError(t, Init(dir, opts))

	before, err := os.ReadFile(filepath.Join(dir, metadata.FileName))
	require.NoError(t, err)

	err = Init(dir, opts)
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.AlreadyExists))

	after, err := os.ReadFile(filepath.Join(dir, metadata.FileName))
	require.NoError(t, err)
	require.True(t, metadata.Equal(before, after))
}

// Server-bound round trip using the in-memory envelope client double.
func TestServerBoundRoundTrip(t *testing.T) {
	dir := tmpDir(t)
	client := envelope.NewMemory()
	cipher := vcrypto.ChaCha20Poly1305

	err := Init(dir, InitOptions{
		ServerURL:  "https://escrow.example.invalid",
		Passphrase: "hunter2",
		UIDHex:     "00112233445566778899aabbccddeeff",
		Cipher:     &cipher,
		Client:     client,
	})
	require.NoError(t, err)

	v, err := Open(dir, OpenOptions{
		ServerURL:  "https://escrow.example.invalid",
		Passphrase: "hunter2",
		Client:     client,
		TOTPToken:  "123456",
	})
	require.NoError(t, err)
	require.NoError(t, v.Close())
}

// OpenEKey with a wrong-length EKEY fails BadKey.
func TestOpenEKey_WrongKeyLength_FailsBadKey(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	metaBytes, err := os.ReadFile(filepath.Join(dir, metadata.FileName))
	require.NoError(t, err)

	bundlePath := filepath.Join(dir, "recovery.bundle")
	text := buildBundle(t, metaBytes, []byte("too-short"))
	require.NoError(t, os.WriteFile(bundlePath, text, 0600))

	_, err = OpenEKey(dir, bundlePath)
	require.Error(t, err)
	require.True(t, vaulterrors.Is(err, vaulterrors.BadKey))
}

// Recovery equivalence: open_ekey with the real K_e exposes the same
// cipher/uid as a passphrase open and never touches the server.
func TestRecoveryEquivalence(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	// Recover K_e by deriving it the same way Open would, since NOAUTH
	// vaults use K_p directly as K_e.
	parsed, err := metadata.Load(dir)
	require.NoError(t, err)
	kdfParams, err := vcrypto.DeserializeKDFParams(parsed.Header.KDF)
	require.NoError(t, err)
	keyLen, err := vcrypto.KeyLen(cipher)
	require.NoError(t, err)
	ke, err := vcrypto.DeriveKp("p", kdfParams, keyLen)
	require.NoError(t, err)

	metaBytes, err := os.ReadFile(filepath.Join(dir, metadata.FileName))
	require.NoError(t, err)
	bundlePath := filepath.Join(dir, "recovery.bundle")
	require.NoError(t, os.WriteFile(bundlePath, buildBundle(t, metaBytes, ke), 0600))

	v, err := OpenEKey(dir, bundlePath)
	require.NoError(t, err)
	require.Equal(t, cipher, v.Cipher())
	require.Equal(t, parsed.Header.UID, v.UID())
	require.Equal(t, "", v.ServerURL())
	require.NoError(t, v.Close())
}

func TestFileObjectLifecycle(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.ChaCha20Poly1305
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	v, err := Open(dir, OpenOptions{Passphrase: "p"})
	require.NoError(t, err)

	fh, err := v.OpenFile("notes.txt")
	require.NoError(t, err)
	require.Equal(t, 1, v.OpenFileCount())

	require.NoError(t, fh.WriteAll([]byte("hello vault")))
	got, err := fh.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte("hello vault"), got)

	require.NoError(t, fh.Close())
	require.Equal(t, 0, v.OpenFileCount())
	require.NoError(t, v.Close())
}

func TestCloseDrainsOpenFiles(t *testing.T) {
	dir := tmpDir(t)
	cipher := vcrypto.AES256GCM
	require.NoError(t, Init(dir, InitOptions{
		Passphrase: "p", UIDHex: "00112233445566778899aabbccddeeff",
		Cipher: &cipher, NoAuth: true,
	}))

	v, err := Open(dir, OpenOptions{Passphrase: "p"})
	require.NoError(t, err)

	_, err = v.OpenFile("a.txt")
	require.NoError(t, err)
	_, err = v.OpenFile("b.txt")
	require.NoError(t, err)
	require.Equal(t, 2, v.OpenFileCount())

	require.NoError(t, v.Close())
	require.Equal(t, 0, v.OpenFileCount())
}

func buildBundle(t *testing.T, metaBytes, ekey []byte) []byte {
	t.Helper()
	return recovery.Encode(
		[]string{recovery.SectionMetadata, recovery.SectionEKey},
		map[string][]byte{
			recovery.SectionMetadata: metaBytes,
			recovery.SectionEKey:     ekey,
		},
	)
}
