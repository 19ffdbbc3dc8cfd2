// Package metadata implements the on-disk vault metadata record: a
// versioned, packed, big-endian-lengthed header authenticated by an
// HMAC-SHA3-256 keyed with K_e.
//
// Parsing validates length bounds first, then extracts fixed-offset
// fields into an owning Header value rather than holding pointer
// arithmetic into a mapped region, so the mapping (see Load) can be
// released immediately.
package metadata

import (
	"bytes"
	"encoding/binary"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vaulterrors"
)

// SupportedVersion is the only ABI version this implementation accepts
// on open. Mismatches fail IncompatibleVersion before any crypto work.
const SupportedVersion byte = 1

// AlignedHeaderLen is the fixed-size prefix (ver, cipher, flags,
// kp_len, iv_len, uid, zero padding) before the variable IV/KDF-params
// region.
const AlignedHeaderLen = 64

// fixedFieldsLen is the number of bytes actually occupied by named
// fields before the zero-filled padding begins.
const fixedFieldsLen = 1 + 1 + 1 + 1 + 2 + 16 // ver+cipher+flags+kp_len+iv_len+uid

// HMACLen is the trailing authentication tag size: HMAC-SHA3-256.
const HMACLen = crypto.HMACTagLen

// Flag bits recognized in the header's flags byte.
const (
	FlagNoAuth byte = 1 << 0
)

// Header is the parsed, owning in-memory form of a vault metadata
// record, excluding the trailing HMAC (carried alongside by Parse and
// Load).
type Header struct {
	Version byte
	Cipher  crypto.Cipher
	Flags   byte
	UID     [16]byte
	IV      []byte
	KDF     []byte // opaque KDF parameter block, see crypto.KDFParams
}

// NoAuth reports whether the NOAUTH flag is set.
func (h *Header) NoAuth() bool { return h.Flags&FlagNoAuth != 0 }

// encodedLen returns the total on-disk length for a header carrying
// the given IV and KDF-parameter-block sizes.
func encodedLen(ivLen, kpLen int) int {
	return AlignedHeaderLen + ivLen + kpLen + HMACLen
}

// EncodedLen returns h's total on-disk length given its current IV and
// KDF fields.
func (h *Header) EncodedLen() int {
	return encodedLen(len(h.IV), len(h.KDF))
}

// EncodeUnauthenticated serializes h's aligned header, IV, and KDF
// params — everything the HMAC is computed over — but does not append
// a tag. Callers compute the HMAC over this region with the vault's
// effective key and append it themselves (Finalize).
func (h *Header) EncodeUnauthenticated() ([]byte, error) {
	if len(h.IV) > 0xFFFF {
		return nil, vaulterrors.New("metadata.EncodeUnauthenticated", vaulterrors.BadLength)
	}
	if len(h.KDF) > 0xFF {
		return nil, vaulterrors.New("metadata.EncodeUnauthenticated", vaulterrors.BadLength)
	}

	buf := make([]byte, AlignedHeaderLen+len(h.IV)+len(h.KDF))
	buf[0] = h.Version
	buf[1] = byte(h.Cipher)
	buf[2] = h.Flags
	buf[3] = byte(len(h.KDF))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(h.IV)))
	copy(buf[6:22], h.UID[:])
	// buf[22:AlignedHeaderLen] stays zero — the alignment padding.
	off := AlignedHeaderLen
	copy(buf[off:off+len(h.IV)], h.IV)
	off += len(h.IV)
	copy(buf[off:off+len(h.KDF)], h.KDF)
	return buf, nil
}

// Finalize appends an HMAC tag to the unauthenticated encoding,
// producing the complete on-disk record.
func Finalize(unauthenticated, tag []byte) []byte {
	if len(tag) != HMACLen {
		panic("metadata: Finalize called with wrong-length tag")
	}
	return append(append([]byte(nil), unauthenticated...), tag...)
}

// Parsed is the result of parsing a raw metadata record: the owning
// Header, the trailing HMAC tag, and the unauthenticated region the
// tag is computed over (so the caller can re-verify without
// re-encoding).
type Parsed struct {
	Header          Header
	Tag             []byte
	Unauthenticated []byte
}

// Parse validates and decodes a raw metadata record. Version is
// checked before any other field is trusted, and before any crypto
// primitive runs. Length mismatches fail CorruptMetadata; an
// unrecognized version fails IncompatibleVersion.
func Parse(data []byte) (*Parsed, error) {
	if len(data) < 1 {
		return nil, vaulterrors.New("metadata.Parse", vaulterrors.CorruptMetadata)
	}
	if data[0] != SupportedVersion {
		return nil, vaulterrors.New("metadata.Parse", vaulterrors.IncompatibleVersion)
	}
	if len(data) < fixedFieldsLen {
		return nil, vaulterrors.New("metadata.Parse", vaulterrors.CorruptMetadata)
	}

	h := Header{Version: data[0], Cipher: crypto.Cipher(data[1]), Flags: data[2]}
	kpLen := int(data[3])
	ivLen := int(binary.BigEndian.Uint16(data[4:6]))
	copy(h.UID[:], data[6:22])

	if !crypto.Valid(data[1]) {
		return nil, vaulterrors.New("metadata.Parse", vaulterrors.CorruptMetadata)
	}

	want := encodedLen(ivLen, kpLen)
	if len(data) != want {
		return nil, vaulterrors.New("metadata.Parse", vaulterrors.CorruptMetadata)
	}

	off := AlignedHeaderLen
	h.IV = append([]byte(nil), data[off:off+ivLen]...)
	off += ivLen
	h.KDF = append([]byte(nil), data[off:off+kpLen]...)
	off += kpLen
	tag := append([]byte(nil), data[off:off+HMACLen]...)

	return &Parsed{
		Header:          h,
		Tag:             tag,
		Unauthenticated: append([]byte(nil), data[:off]...),
	}, nil
}

// Equal reports whether two raw metadata records are byte-for-byte
// identical. Used to confirm a failed init leaves an existing metadata
// file untouched.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}
