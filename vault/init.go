package vault

import (
	"context"
	"errors"

	"github.com/google/uuid"

	vcrypto "github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/envelope"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/vaulterrors"
)

// InitOptions are the inputs to Init.
type InitOptions struct {
	ServerURL string // required unless NoAuth is set
	Passphrase string
	UIDHex     string // must decode to exactly 16 bytes
	Cipher     *vcrypto.Cipher // nil selects crypto.DefaultCipher
	NoAuth     bool
	Client     envelope.Client // required unless NoAuth is set
	AuthSetup  []byte          // opaque second-factor enrollment material, forwarded to Client.Register
}

// Init creates a new vault's on-disk metadata in dir. No on-disk state
// changes if any step before file creation fails; a server registration
// that succeeds before a failing file write is tolerated as a harmless
// orphan.
func Init(dir string, opts InitOptions) error {
	const op = "vault.Init"

	cipher := vcrypto.DefaultCipher
	if opts.Cipher != nil {
		cipher = *opts.Cipher
	}

	ctx, err := vcrypto.New(cipher)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	if err := ctx.GenIV(); err != nil {
		return err
	}

	kdfParams, err := vcrypto.NewKDFParams()
	if err != nil {
		return err
	}

	if err := ctx.SetPassphraseKey(opts.Passphrase, kdfParams); err != nil {
		return err
	}

	id, err := uuid.Parse(opts.UIDHex)
	if err != nil {
		return vaulterrors.Wrap(op, vaulterrors.BadUid, err)
	}

	flags := byte(0)
	if opts.NoAuth {
		flags |= metadata.FlagNoAuth
	}

	if !opts.NoAuth {
		if opts.ServerURL == "" {
			return vaulterrors.New(op, vaulterrors.MissingServer)
		}
		if opts.Client == nil {
			return vaulterrors.New(op, vaulterrors.MissingServer)
		}

		keyLen, err := vcrypto.KeyLen(cipher)
		if err != nil {
			return err
		}
		freshKe, err := vcrypto.RandomBytes(keyLen)
		if err != nil {
			return err
		}
		ks, err := envelope.Wrap(ctx.Key(), freshKe)
		if err != nil {
			vcrypto.Zeroize(freshKe)
			return err
		}
		if err := opts.Client.Register(context.Background(), [16]byte(id), opts.AuthSetup, ks); err != nil {
			vcrypto.Zeroize(freshKe)
			var verr *vaulterrors.Error
			if errors.As(err, &verr) {
				return err
			}
			return vaulterrors.Wrap(op, vaulterrors.NetworkError, err)
		}
		if err := ctx.SetKey(freshKe); err != nil {
			vcrypto.Zeroize(freshKe)
			return err
		}
		vcrypto.Zeroize(freshKe)
	}

	header := metadata.Header{
		Version: metadata.SupportedVersion,
		Cipher:  cipher,
		Flags:   flags,
		UID:     [16]byte(id),
		IV:      ctx.IV(),
		KDF:     kdfParams.Serialize(),
	}
	unauth, err := header.EncodeUnauthenticated()
	if err != nil {
		return err
	}
	tag := ctx.HMAC(unauth)
	record := metadata.Finalize(unauth, tag)

	return metadata.Create(dir, record)
}
