// Package vault implements the vault handle and its lifecycle:
// Init, Open, OpenEKey, Close, and the registry of open file objects.
package vault

import (
	"sync"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/metadata"
	"github.com/moneytech/rvault/vaulterrors"
)

// State is the vault lifecycle state. It exists mainly to make an
// illegal transition (closing twice) fail loudly rather than corrupt
// the file registry.
type State int

const (
	StateOpen State = iota
	StateClosed
)

// Vault is the in-memory handle: base path, optional server URL,
// cipher/crypto context, UID, and the registry of open file objects.
// The vault exclusively owns its crypto context; file handles hold a
// back-reference to the vault, not ownership.
type Vault struct {
	mu sync.Mutex

	basePath  string
	serverURL string // empty for NOAUTH vaults and recovered vaults
	uid       [16]byte
	flags     byte
	ctx       *crypto.Context
	state     State

	nextFileID int
	files      map[int]*FileHandle
}

// BasePath returns the vault's base directory.
func (v *Vault) BasePath() string { return v.basePath }

// ServerURL returns the escrow server URL this vault was opened
// against, or "" if it's a NOAUTH or recovered vault.
func (v *Vault) ServerURL() string { return v.serverURL }

// UID returns the vault's 16-byte client identifier.
func (v *Vault) UID() [16]byte { return v.uid }

// Cipher returns the vault's configured cipher.
func (v *Vault) Cipher() crypto.Cipher { return v.ctx.Cipher() }

// NoAuth reports whether this vault was created/opened with NOAUTH set.
func (v *Vault) NoAuth() bool { return v.flags&metadata.FlagNoAuth != 0 }

// OpenFileCount returns the number of currently registered open file
// objects.
func (v *Vault) OpenFileCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.files)
}

// registerFile adds fh to the vault's open-file registry and returns
// its id.
func (v *Vault) registerFile(fh *FileHandle) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextFileID
	v.nextFileID++
	v.files[id] = fh
	return id
}

// unregisterFile removes id from the registry. Safe to call more than
// once for the same id.
func (v *Vault) unregisterFile(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.files, id)
}

// Close drains the open-file registry — closing every file object
// still registered — then destroys the crypto context, wiping key
// material. Callers must not call Close twice; it is not idempotent,
// and a second call returns an error.
func (v *Vault) Close() error {
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		return vaulterrors.New("vault.Close", vaulterrors.IoError)
	}
	handles := make([]*FileHandle, 0, len(v.files))
	for _, fh := range v.files {
		handles = append(handles, fh)
	}
	v.mu.Unlock()

	for _, fh := range handles {
		_ = fh.Close()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.files) != 0 {
		return vaulterrors.New("vault.Close", vaulterrors.IoError)
	}
	v.ctx.Destroy()
	v.state = StateClosed
	return nil
}
