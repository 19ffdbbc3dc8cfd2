package vault

import (
	"os"

	vcrypto "github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/recovery"
	"github.com/moneytech/rvault/vaulterrors"
)

// OpenEKey opens a vault via an out-of-band recovery bundle, bypassing
// the escrow server entirely. The metadata HMAC is never verified on
// this path — the bundle is trusted as an escape hatch. The resulting
// vault's ServerURL is always empty; any operation requiring the server
// must fail cleanly against that.
func OpenEKey(dir, bundlePath string) (*Vault, error) {
	const op = "vault.OpenEKey"

	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, vaulterrors.Wrap(op, vaulterrors.BadRecovery, err)
	}
	bundle, err := recovery.Parse(raw)
	if err != nil {
		return nil, err
	}

	metaBytes, ok := bundle.Section(recovery.SectionMetadata)
	if !ok {
		return nil, vaulterrors.New(op, vaulterrors.BadRecovery)
	}
	ekey, ok := bundle.Section(recovery.SectionEKey)
	if !ok {
		return nil, vaulterrors.New(op, vaulterrors.BadRecovery)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.Wrap(op, vaulterrors.NotFound, err)
		}
		return nil, vaulterrors.Wrap(op, vaulterrors.IoError, err)
	}
	if !info.IsDir() {
		return nil, vaulterrors.New(op, vaulterrors.NotADirectory)
	}

	parsed, err := metadata.Parse(metaBytes)
	if err != nil {
		return nil, err
	}
	h := parsed.Header

	ctx, err := vcrypto.New(h.Cipher)
	if err != nil {
		return nil, err
	}
	ok2 := false
	defer func() {
		if !ok2 {
			ctx.Destroy()
		}
	}()

	if err := ctx.SetIV(h.IV); err != nil {
		return nil, err
	}
	if err := ctx.SetKey(ekey); err != nil {
		if vaulterrors.Is(err, vaulterrors.BadLength) {
			return nil, vaulterrors.New(op, vaulterrors.BadKey)
		}
		return nil, err
	}

	v := &Vault{
		basePath:  dir,
		serverURL: "",
		uid:       h.UID,
		flags:     h.Flags,
		ctx:       ctx,
		files:     make(map[int]*FileHandle),
	}
	ok2 = true
	return v, nil
}
