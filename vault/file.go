package vault

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moneytech/rvault/fileobject"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/vaulterrors"
)

// reservedDotPrefix hides dot-prefixed names from directory iteration.
// That's a filesystem front-end concern, but the rule is defined
// alongside the vault so both layers agree on it.
const reservedDotPrefix = "."

// FileHandle is an open file object: a back-reference to its owning
// vault (not ownership) plus the underlying descriptor. FileHandle
// reads and writes a file's entire encrypted payload in one shot
// through the fileobject package rather than in chunks.
type FileHandle struct {
	id    int
	vault *Vault
	f     *os.File
	path  string
}

// OpenFile opens (creating if necessary) a file object at relPath,
// relative to the vault's base directory, and registers it in the
// vault's open-file list. Rejects the vault's own metadata file name
// and any dot-prefixed name, so a file object can never alias the
// vault's on-disk metadata record.
func (v *Vault) OpenFile(relPath string) (*FileHandle, error) {
	base := filepath.Base(relPath)
	if base == metadata.FileName || strings.HasPrefix(base, reservedDotPrefix) {
		return nil, vaulterrors.New("vault.OpenFile", vaulterrors.BadLength)
	}
	path := filepath.Join(v.basePath, relPath)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, vaulterrors.Wrap("vault.OpenFile", vaulterrors.IoError, err)
	}
	fh := &FileHandle{vault: v, f: f, path: path}
	fh.id = v.registerFile(fh)
	return fh, nil
}

// ReadAll reads and decrypts the file object's entire payload.
func (fh *FileHandle) ReadAll() ([]byte, error) {
	if _, err := fh.f.Seek(0, io.SeekStart); err != nil {
		return nil, vaulterrors.Wrap("FileHandle.ReadAll", vaulterrors.IoError, err)
	}
	raw, err := io.ReadAll(fh.f)
	if err != nil {
		return nil, vaulterrors.Wrap("FileHandle.ReadAll", vaulterrors.IoError, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return fileobject.Open(fh.vault.ctx, raw)
}

// WriteAll encrypts plaintext and overwrites the file object's entire
// payload.
func (fh *FileHandle) WriteAll(plaintext []byte) error {
	sealed, err := fileobject.Seal(fh.vault.ctx, plaintext)
	if err != nil {
		return err
	}
	if err := fh.f.Truncate(0); err != nil {
		return vaulterrors.Wrap("FileHandle.WriteAll", vaulterrors.IoError, err)
	}
	if _, err := fh.f.Seek(0, io.SeekStart); err != nil {
		return vaulterrors.Wrap("FileHandle.WriteAll", vaulterrors.IoError, err)
	}
	if _, err := fh.f.Write(sealed); err != nil {
		return vaulterrors.Wrap("FileHandle.WriteAll", vaulterrors.IoError, err)
	}
	return vaulterrors.Wrap("FileHandle.WriteAll", vaulterrors.IoError, fh.f.Sync())
}

// Close removes fh from its vault's open-file registry and closes the
// underlying descriptor.
func (fh *FileHandle) Close() error {
	fh.vault.unregisterFile(fh.id)
	return fh.f.Close()
}
