// Package fileobject implements the per-file on-disk layout: a small
// fixed header (version, reserved byte, tag length, ciphertext length)
// followed by ciphertext and a trailing MAC/AEAD tag. Only the
// header-level format and a single-shot seal/open are implemented
// here; a chunked streaming buffer engine for large payloads is a
// collaborator's concern.
//
// The header has no dedicated nonce field. Each sealed object instead
// carries a fresh per-object nonce prepended to its ciphertext region
// rather than reusing the vault's single stored IV — reusing one IV
// across every file under the same key would break the AEAD ciphers'
// confidentiality guarantee the moment a second file is written.
package fileobject

import (
	"encoding/binary"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vaulterrors"
)

// Version is the only file-object ABI version this implementation
// accepts.
const Version byte = 1

// AlignedHeaderLen is the fixed-size prefix before ciphertext begins.
const AlignedHeaderLen = 64

// fixedFieldsLen covers ver(1) + reserved(1) + hmac_len(2) + edata_len(8).
const fixedFieldsLen = 1 + 1 + 2 + 8

// Header is the parsed file-object header.
type Header struct {
	Version  byte
	HMACLen  uint16
	EDataLen uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, AlignedHeaderLen)
	buf[0] = h.Version
	// buf[1] reserved, zero.
	binary.BigEndian.PutUint16(buf[2:4], h.HMACLen)
	binary.BigEndian.PutUint64(buf[4:12], h.EDataLen)
	return buf
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < 1 {
		return Header{}, vaulterrors.New("fileobject.parseHeader", vaulterrors.CorruptMetadata)
	}
	if data[0] != Version {
		return Header{}, vaulterrors.New("fileobject.parseHeader", vaulterrors.IncompatibleVersion)
	}
	if len(data) < fixedFieldsLen {
		return Header{}, vaulterrors.New("fileobject.parseHeader", vaulterrors.CorruptMetadata)
	}
	return Header{
		Version:  data[0],
		HMACLen:  binary.BigEndian.Uint16(data[2:4]),
		EDataLen: binary.BigEndian.Uint64(data[4:12]),
	}, nil
}

// Seal encrypts plaintext under ctx's effective key into the complete
// on-disk file-object layout: aligned header, nonce-prefixed
// ciphertext, and trailing tag. For AEAD ciphers the tag is the AEAD
// tag; for MAC-mode ciphers it is an HMAC-SHA3-256 over the header and
// nonce-prefixed ciphertext.
func Seal(ctx *crypto.Context, plaintext []byte) ([]byte, error) {
	ivLen, err := crypto.IVLen(ctx.Cipher())
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandomBytes(ivLen)
	if err != nil {
		return nil, err
	}

	ciphertext, tag, err := ctx.SealWithNonce(nonce, plaintext, nil)
	if err != nil {
		return nil, err
	}
	edata := append(append([]byte(nil), nonce...), ciphertext...)

	mode, err := crypto.ModeOf(ctx.Cipher())
	if err != nil {
		return nil, err
	}

	h := Header{Version: Version, EDataLen: uint64(len(edata))}
	if mode == crypto.ModeAEAD {
		h.HMACLen = uint16(len(tag))
		out := append(h.encode(), edata...)
		return append(out, tag...), nil
	}

	// MAC mode: tag from SealWithNonce is nil; compute the outer HMAC
	// over header||edata ourselves.
	h.HMACLen = crypto.HMACTagLen
	headerBytes := h.encode()
	mac := ctx.HMAC(append(append([]byte(nil), headerBytes...), edata...))
	out := append(headerBytes, edata...)
	return append(out, mac...), nil
}

// Open reverses Seal, verifying authenticity before returning
// plaintext. Version mismatches fail IncompatibleVersion before any
// crypto runs; tag/HMAC failures fail AuthenticationFailed.
func Open(ctx *crypto.Context, data []byte) ([]byte, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	wantTagLen, err := crypto.TagLen(ctx.Cipher())
	if err != nil {
		return nil, err
	}
	if int(h.HMACLen) != wantTagLen {
		return nil, vaulterrors.New("fileobject.Open", vaulterrors.CorruptMetadata)
	}

	total := AlignedHeaderLen + int(h.EDataLen) + int(h.HMACLen)
	if len(data) != total {
		return nil, vaulterrors.New("fileobject.Open", vaulterrors.CorruptMetadata)
	}

	edata := data[AlignedHeaderLen : AlignedHeaderLen+int(h.EDataLen)]
	tag := data[AlignedHeaderLen+int(h.EDataLen):]

	ivLen, err := crypto.IVLen(ctx.Cipher())
	if err != nil {
		return nil, err
	}
	if len(edata) < ivLen {
		return nil, vaulterrors.New("fileobject.Open", vaulterrors.CorruptMetadata)
	}
	nonce, ciphertext := edata[:ivLen], edata[ivLen:]

	mode, err := crypto.ModeOf(ctx.Cipher())
	if err != nil {
		return nil, err
	}
	if mode == crypto.ModeAEAD {
		return ctx.OpenWithNonce(nonce, ciphertext, tag, nil)
	}

	headerBytes := data[:AlignedHeaderLen]
	if !ctx.VerifyHMAC(append(append([]byte(nil), headerBytes...), edata...), tag) {
		return nil, vaulterrors.New("fileobject.Open", vaulterrors.AuthenticationFailed)
	}
	return ctx.OpenWithNonce(nonce, ciphertext, nil, nil)
}
