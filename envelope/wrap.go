package envelope

import (
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vaulterrors"
)

// Wrap envelope-encrypts ke under kp, producing K_s, the envelope-
// encrypted form of K_e. The wrap format is internal to this module —
// it is never written to the vault's own on-disk layout — so it always
// uses ChaCha20-Poly1305 regardless of the vault's configured file
// cipher, with a fresh random nonce prepended to the sealed bytes.
func Wrap(kp, ke []byte) (ks []byte, err error) {
	aead, err := chacha20poly1305.New(kp)
	if err != nil {
		return nil, vaulterrors.Wrap("envelope.Wrap", vaulterrors.KdfFailure, err)
	}
	nonce, err := crypto.RandomBytes(chacha20poly1305.NonceSize)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, ke, nil)
	return append(nonce, sealed...), nil
}

// Unwrap reverses Wrap, decrypting ks under kp to recover K_e. A wrong
// kp (wrong passphrase, or a tampered ks) fails AuthenticationFailed.
func Unwrap(kp, ks []byte) (ke []byte, err error) {
	if len(ks) < chacha20poly1305.NonceSize {
		return nil, vaulterrors.New("envelope.Unwrap", vaulterrors.BadLength)
	}
	aead, err := chacha20poly1305.New(kp)
	if err != nil {
		return nil, vaulterrors.Wrap("envelope.Unwrap", vaulterrors.KdfFailure, err)
	}
	nonce, sealed := ks[:chacha20poly1305.NonceSize], ks[chacha20poly1305.NonceSize:]
	pt, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, vaulterrors.Wrap("envelope.Unwrap", vaulterrors.AuthenticationFailed, err)
	}
	return pt, nil
}
