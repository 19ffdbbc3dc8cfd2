package crypto

import (
	"bytes"
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/hmac"
	"crypto/subtle"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"

	"github.com/moneytech/rvault/vaulterrors"
)

// Context ties a cipher choice to its IV and at most one active
// effective key. Vault and fileobject build every cryptographic
// operation on top of one of these.
type Context struct {
	cipher Cipher
	iv     []byte
	key    []byte
}

// New allocates a crypto context for cipher, failing UnsupportedCipher
// if the byte is not one of the four recognized ciphers.
func New(cipher Cipher) (*Context, error) {
	if !Valid(byte(cipher)) {
		return nil, vaulterrors.New("crypto.New", vaulterrors.UnsupportedCipher)
	}
	return &Context{cipher: cipher}, nil
}

// Cipher returns the context's cipher identifier.
func (c *Context) Cipher() Cipher { return c.cipher }

// IV returns the currently installed IV (read-only view; callers must
// not retain it past Destroy).
func (c *Context) IV() []byte { return c.iv }

// GenIV generates and installs a fresh random IV of the cipher's
// required length.
func (c *Context) GenIV() error {
	n, err := IVLen(c.cipher)
	if err != nil {
		return err
	}
	iv, err := RandomBytes(n)
	if err != nil {
		return err
	}
	c.iv = iv
	return nil
}

// SetIV installs an externally supplied IV, failing BadLength if its
// size doesn't match the cipher's requirement.
func (c *Context) SetIV(iv []byte) error {
	n, err := IVLen(c.cipher)
	if err != nil {
		return err
	}
	if len(iv) != n {
		return vaulterrors.New("crypto.SetIV", vaulterrors.BadLength)
	}
	c.iv = append([]byte(nil), iv...)
	return nil
}

// SetPassphraseKey derives K_p from passphrase via scrypt using params
// and installs it as the context's effective key.
func (c *Context) SetPassphraseKey(passphrase string, params KDFParams) error {
	n, err := KeyLen(c.cipher)
	if err != nil {
		return err
	}
	key, err := DeriveKp(passphrase, params, n)
	if err != nil {
		return err
	}
	c.key = key
	return nil
}

// SetKey installs an externally supplied key directly (used by the
// recovery path to install K_e from a bundle). Fails BadLength if the
// size doesn't match the cipher's key length. If a key is already
// installed, the new call wins.
func (c *Context) SetKey(key []byte) error {
	n, err := KeyLen(c.cipher)
	if err != nil {
		return err
	}
	if len(key) != n {
		return vaulterrors.New("crypto.SetKey", vaulterrors.BadLength)
	}
	if c.key != nil {
		Zeroize(c.key)
	}
	c.key = append([]byte(nil), key...)
	return nil
}

// Key returns a read-only view of the effective key. The vault uses it
// as K_p when wrapping and unwrapping K_e through the envelope package.
func (c *Context) Key() []byte { return c.key }

// Destroy wipes the IV and key material and releases the context's
// buffers. Safe to call more than once.
func (c *Context) Destroy() {
	Zeroize(c.iv)
	Zeroize(c.key)
	c.iv = nil
	c.key = nil
}

// HMAC computes HMAC-SHA3-256 over data keyed by the context's
// effective key. This is always 32 bytes regardless of cipher choice —
// it authenticates vault metadata, independent of the per-file payload
// MAC/tag length.
func (c *Context) HMAC(data []byte) []byte {
	h := hmac.New(sha3.New256, c.key)
	h.Write(data)
	return h.Sum(nil)
}

// VerifyHMAC recomputes the HMAC over data and compares it against tag
// in constant time.
func (c *Context) VerifyHMAC(data, tag []byte) bool {
	got := c.HMAC(data)
	return subtle.ConstantTimeCompare(got, tag) == 1
}

// SealWithNonce encrypts plaintext under the context's key using an
// explicit nonce (not necessarily c.iv — file objects mint their own
// per-file nonce; see fileobject package). For AEAD ciphers it returns
// ciphertext and its authentication tag separately, matching the file
// header's edata/hmac split. For MAC-mode ciphers the returned tag is
// nil; callers must authenticate separately via HMAC.
func (c *Context) SealWithNonce(nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	mode, err := ModeOf(c.cipher)
	if err != nil {
		return nil, nil, err
	}
	switch c.cipher {
	case AES256GCM:
		aead, err := newAESGCM(c.key)
		if err != nil {
			return nil, nil, err
		}
		sealed := aead.Seal(nil, nonce, plaintext, aad)
		tagLen := aead.Overhead()
		return sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:], nil
	case ChaCha20Poly1305:
		aead, err := chacha20poly1305.New(c.key)
		if err != nil {
			return nil, nil, vaulterrors.Wrap("crypto.SealWithNonce", vaulterrors.KdfFailure, err)
		}
		sealed := aead.Seal(nil, nonce, plaintext, aad)
		tagLen := aead.Overhead()
		return sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:], nil
	case AES256CBC:
		ct, err := cbcEncrypt(c.key, nonce, plaintext)
		return ct, nil, err
	case ChaCha20:
		ct, err := chachaStream(c.key, nonce, plaintext)
		return ct, nil, err
	default:
		_ = mode
		return nil, nil, vaulterrors.New("crypto.SealWithNonce", vaulterrors.UnsupportedCipher)
	}
}

// OpenWithNonce reverses SealWithNonce. For AEAD ciphers, tag must be
// the trailing authentication tag; for MAC-mode ciphers tag is ignored
// and must be verified by the caller beforehand (HMAC covers the
// ciphertext as a whole, not per-block).
func (c *Context) OpenWithNonce(nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	switch c.cipher {
	case AES256GCM:
		aead, err := newAESGCM(c.key)
		if err != nil {
			return nil, err
		}
		pt, err := aead.Open(nil, nonce, append(append([]byte(nil), ciphertext...), tag...), aad)
		if err != nil {
			return nil, vaulterrors.Wrap("crypto.OpenWithNonce", vaulterrors.AuthenticationFailed, err)
		}
		return pt, nil
	case ChaCha20Poly1305:
		aead, err := chacha20poly1305.New(c.key)
		if err != nil {
			return nil, vaulterrors.Wrap("crypto.OpenWithNonce", vaulterrors.KdfFailure, err)
		}
		pt, err := aead.Open(nil, nonce, append(append([]byte(nil), ciphertext...), tag...), aad)
		if err != nil {
			return nil, vaulterrors.Wrap("crypto.OpenWithNonce", vaulterrors.AuthenticationFailed, err)
		}
		return pt, nil
	case AES256CBC:
		return cbcDecrypt(c.key, nonce, ciphertext)
	case ChaCha20:
		return chachaStream(c.key, nonce, ciphertext)
	default:
		return nil, vaulterrors.New("crypto.OpenWithNonce", vaulterrors.UnsupportedCipher)
	}
}

func newAESGCM(key []byte) (gocipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.newAESGCM", vaulterrors.UnsupportedCipher, err)
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.newAESGCM", vaulterrors.UnsupportedCipher, err)
	}
	return aead, nil
}

// chachaStream runs ChaCha20 as an unauthenticated stream cipher;
// encryption and decryption are the same XOR operation.
func chachaStream(key, nonce, in []byte) ([]byte, error) {
	s, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.chachaStream", vaulterrors.UnsupportedCipher, err)
	}
	out := make([]byte, len(in))
	s.XORKeyStream(out, in)
	return out, nil
}

// cbcEncrypt PKCS#7-pads plaintext and encrypts it with AES-256-CBC.
func cbcEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.cbcEncrypt", vaulterrors.UnsupportedCipher, err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ct := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return ct, nil
}

// cbcDecrypt reverses cbcEncrypt, stripping PKCS#7 padding.
func cbcDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.cbcDecrypt", vaulterrors.UnsupportedCipher, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, vaulterrors.New("crypto.cbcDecrypt", vaulterrors.BadLength)
	}
	pt := make([]byte, len(ciphertext))
	gocipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ciphertext)
	return pkcs7Unpad(pt)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	pad := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte(nil), data...), pad...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, vaulterrors.New("crypto.pkcs7Unpad", vaulterrors.BadLength)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, vaulterrors.New("crypto.pkcs7Unpad", vaulterrors.AuthenticationFailed)
	}
	if !bytes.Equal(data[len(data)-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, vaulterrors.New("crypto.pkcs7Unpad", vaulterrors.AuthenticationFailed)
	}
	return data[:len(data)-padLen], nil
}
