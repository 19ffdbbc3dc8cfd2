package vault

import (
	"context"
	"errors"
	"os"

	vcrypto "github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/envelope"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/vaulterrors"
	"github.com/moneytech/rvault/vaultlog"
)

// OpenOptions are the inputs to Open.
type OpenOptions struct {
	ServerURL  string // required unless the vault has NOAUTH set
	Passphrase string
	Client     envelope.Client
	TOTPToken  string
}

// Open opens an existing vault, deriving K_p from the passphrase,
// fetching and unwrapping K_e from the escrow server unless NOAUTH is
// set, and verifying the metadata HMAC. On any error, all allocated
// crypto state is destroyed before returning.
func Open(dir string, opts OpenOptions) (*Vault, error) {
	const op = "vault.Open"

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			vaultlog.PathError(op, dir, err)
			return nil, vaulterrors.Wrap(op, vaulterrors.NotFound, err)
		}
		return nil, vaulterrors.Wrap(op, vaulterrors.IoError, err)
	}
	if !info.IsDir() {
		return nil, vaulterrors.New(op, vaulterrors.NotADirectory)
	}

	parsed, err := metadata.Load(dir)
	if err != nil {
		if vaulterrors.Is(err, vaulterrors.CorruptMetadata) {
			vaultlog.Corrupt(op, err)
		}
		if vaulterrors.Is(err, vaulterrors.IncompatibleVersion) {
			vaultlog.VersionMismatch(op, err)
		}
		return nil, err
	}
	h := parsed.Header

	ctx, err := vcrypto.New(h.Cipher)
	if err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			ctx.Destroy()
		}
	}()

	if err := ctx.SetIV(h.IV); err != nil {
		return nil, err
	}

	kdfParams, err := vcrypto.DeserializeKDFParams(h.KDF)
	if err != nil {
		return nil, err
	}
	if err := ctx.SetPassphraseKey(opts.Passphrase, kdfParams); err != nil {
		return nil, err
	}

	if !h.NoAuth() {
		if opts.ServerURL == "" {
			return nil, vaulterrors.New(op, vaulterrors.MissingServer)
		}
		if opts.Client == nil {
			return nil, vaulterrors.New(op, vaulterrors.MissingServer)
		}
		ks, err := opts.Client.Fetch(context.Background(), h.UID, opts.TOTPToken)
		if err != nil {
			var verr *vaulterrors.Error
			if errors.As(err, &verr) {
				return nil, err
			}
			return nil, vaulterrors.Wrap(op, vaulterrors.NetworkError, err)
		}
		ke, err := envelope.Unwrap(ctx.Key(), ks)
		if err != nil {
			return nil, err
		}
		err = ctx.SetKey(ke)
		vcrypto.Zeroize(ke)
		if err != nil {
			return nil, err
		}
	}

	if !ctx.VerifyHMAC(parsed.Unauthenticated, parsed.Tag) {
		vaultlog.VerificationFailed(op)
		return nil, vaulterrors.Wrap(op, vaulterrors.AuthenticationFailed,
			errors.New(vaulterrors.AuthenticationFailedHint))
	}

	serverURL := opts.ServerURL
	if h.NoAuth() {
		serverURL = ""
	}
	v := &Vault{
		basePath:  dir,
		serverURL: serverURL,
		uid:       h.UID,
		flags:     h.Flags,
		ctx:       ctx,
		files:     make(map[int]*FileHandle),
	}
	ok = true
	return v, nil
}
