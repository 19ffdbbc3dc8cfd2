package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/moneytech/rvault/vaulterrors"
)

// saltLen is the fixed scrypt salt size embedded in every KDF
// parameter block.
const saltLen = 16

// kdfParamsVersion guards the internal layout of the opaque blob;
// bumping it would require handling both layouts on read, which this
// package does not do — there is no key-rotation path for an existing
// vault.
const kdfParamsVersion = 1

// kdfParamsLen is the fixed serialized size of a KDFParams: version(1)
// + salt(16) + N(4) + r(4) + p(4) = 29 bytes, always well under the
// kp_len byte's 255-byte ceiling.
const kdfParamsLen = 1 + saltLen + 4 + 4 + 4

// KDFParams is the opaque scrypt cost-parameter-plus-salt blob stored
// in vault metadata. Callers must treat it as opaque; only the crypto
// package interprets its bytes.
type KDFParams struct {
	Salt []byte
	N    uint32
	R    uint32
	P    uint32
}

// DefaultKDFParams returns the implementation's recommended scrypt
// cost, matching the interactive-login guidance in RFC 7914 (N=2^15,
// r=8, p=1). Salt is left empty; NewKDFParams fills it in.
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 1 << 15, R: 8, P: 1}
}

// NewKDFParams returns a fresh KDFParams with a random salt generated
// via the package's RNG, failing RngFailure on entropy exhaustion.
func NewKDFParams() (KDFParams, error) {
	p := DefaultKDFParams()
	salt, err := RandomBytes(saltLen)
	if err != nil {
		return KDFParams{}, err
	}
	p.Salt = salt
	return p, nil
}

// Serialize encodes p to its fixed-size opaque wire form.
func (p KDFParams) Serialize() []byte {
	buf := make([]byte, kdfParamsLen)
	buf[0] = kdfParamsVersion
	copy(buf[1:1+saltLen], p.Salt)
	off := 1 + saltLen
	binary.BigEndian.PutUint32(buf[off:off+4], p.N)
	binary.BigEndian.PutUint32(buf[off+4:off+8], p.R)
	binary.BigEndian.PutUint32(buf[off+8:off+12], p.P)
	return buf
}

// DeserializeKDFParams decodes a KDFParams from its opaque wire form.
func DeserializeKDFParams(data []byte) (KDFParams, error) {
	if len(data) != kdfParamsLen {
		return KDFParams{}, vaulterrors.New("crypto.DeserializeKDFParams", vaulterrors.BadLength)
	}
	if data[0] != kdfParamsVersion {
		return KDFParams{}, vaulterrors.Wrap("crypto.DeserializeKDFParams", vaulterrors.CorruptMetadata,
			fmt.Errorf("unsupported kdf params version %d", data[0]))
	}
	off := 1 + saltLen
	return KDFParams{
		Salt: append([]byte(nil), data[1:off]...),
		N:    binary.BigEndian.Uint32(data[off : off+4]),
		R:    binary.BigEndian.Uint32(data[off+4 : off+8]),
		P:    binary.BigEndian.Uint32(data[off+8 : off+12]),
	}, nil
}

// DeriveKp runs scrypt over passphrase using p, producing a key of
// keyLen bytes (the active cipher's key length). Failures (e.g. cost
// parameters scrypt rejects) surface as KdfFailure.
func DeriveKp(passphrase string, p KDFParams, keyLen int) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), p.Salt, int(p.N), int(p.R), int(p.P), keyLen)
	if err != nil {
		return nil, vaulterrors.Wrap("crypto.DeriveKp", vaulterrors.KdfFailure, err)
	}
	return key, nil
}
