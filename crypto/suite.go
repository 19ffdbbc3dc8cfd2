// Package crypto implements the cryptographic primitives the vault core
// is built on: the cipher suite table, the scrypt-backed KDF parameter
// block, and the crypto context that ties an IV and an effective key to
// one of the four supported ciphers.
package crypto

import "github.com/moneytech/rvault/vaulterrors"

// Cipher is the single-byte on-disk cipher identifier recorded in
// vault metadata.
type Cipher byte

const (
	AES256CBC Cipher = iota
	ChaCha20
	AES256GCM
	ChaCha20Poly1305
)

// Mode distinguishes AEAD ciphers (self-authenticating) from plain
// ciphers that need a separate HMAC for integrity.
type Mode int

const (
	ModeMAC Mode = iota
	ModeAEAD
)

// HMACTagLen is the output size of HMAC-SHA3-256, used as the trailing
// tag length for non-AEAD ciphers.
const HMACTagLen = 32

// suite describes one entry of the cipher table: the sizes the
// file-object and metadata layouts depend on.
type suite struct {
	name   string
	mode   Mode
	ivLen  int
	keyLen int
	tagLen int // hmac_len for ModeMAC, AEAD tag length for ModeAEAD
}

var suites = map[Cipher]suite{
	AES256CBC:        {name: "aes256-cbc", mode: ModeMAC, ivLen: 16, keyLen: 32, tagLen: HMACTagLen},
	ChaCha20:         {name: "chacha20", mode: ModeMAC, ivLen: 24, keyLen: 32, tagLen: HMACTagLen},
	AES256GCM:        {name: "aes256-gcm", mode: ModeAEAD, ivLen: 12, keyLen: 32, tagLen: 16},
	ChaCha20Poly1305: {name: "chacha20-poly1305", mode: ModeAEAD, ivLen: 12, keyLen: 32, tagLen: 16},
}

var byName = map[string]Cipher{
	"aes256-cbc":        AES256CBC,
	"chacha20":          ChaCha20,
	"aes256-gcm":        AES256GCM,
	"chacha20-poly1305": ChaCha20Poly1305,
}

// CipherByName resolves a configuration string to a Cipher, failing
// UnsupportedCipher if the name is unrecognized.
func CipherByName(name string) (Cipher, error) {
	c, ok := byName[name]
	if !ok {
		return 0, vaulterrors.New("crypto.CipherByName", vaulterrors.UnsupportedCipher)
	}
	return c, nil
}

// DefaultCipher is the implementation's primary cipher, used when init
// is not given an explicit choice.
const DefaultCipher = ChaCha20Poly1305

// IVLen returns the required IV length for c, or an error if c is not a
// recognized cipher byte.
func IVLen(c Cipher) (int, error) {
	s, ok := suites[c]
	if !ok {
		return 0, vaulterrors.New("crypto.IVLen", vaulterrors.UnsupportedCipher)
	}
	return s.ivLen, nil
}

// KeyLen returns the required key length for c.
func KeyLen(c Cipher) (int, error) {
	s, ok := suites[c]
	if !ok {
		return 0, vaulterrors.New("crypto.KeyLen", vaulterrors.UnsupportedCipher)
	}
	return s.keyLen, nil
}

// TagLen returns the trailing authentication tag length for c: the
// AEAD tag length for AEAD ciphers, HMACTagLen for MAC-mode ciphers.
func TagLen(c Cipher) (int, error) {
	s, ok := suites[c]
	if !ok {
		return 0, vaulterrors.New("crypto.TagLen", vaulterrors.UnsupportedCipher)
	}
	return s.tagLen, nil
}

// ModeOf returns whether c is AEAD or MAC-mode.
func ModeOf(c Cipher) (Mode, error) {
	s, ok := suites[c]
	if !ok {
		return 0, vaulterrors.New("crypto.ModeOf", vaulterrors.UnsupportedCipher)
	}
	return s.mode, nil
}

// Name returns the canonical configuration name for c.
func Name(c Cipher) (string, error) {
	s, ok := suites[c]
	if !ok {
		return "", vaulterrors.New("crypto.Name", vaulterrors.UnsupportedCipher)
	}
	return s.name, nil
}

// Valid reports whether b is a recognized on-disk cipher byte. Used by
// metadata parsing to reject unknown values at open.
func Valid(b byte) bool {
	_, ok := suites[Cipher(b)]
	return ok
}
