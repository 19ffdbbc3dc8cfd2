package metadata

import (
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/moneytech/rvault/vaulterrors"
)

// FileName is the fixed metadata file name within a vault directory.
const FileName = "vault.meta"

// Load memory-maps the metadata file read-only and parses it. The
// mapping is released before Load returns — it is never held open
// longer than the single open call that needs it.
func Load(dir string) (*Parsed, error) {
	path := filepath.Join(dir, FileName)
	r, err := mmap.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.Wrap("metadata.Load", vaulterrors.NotFound, err)
		}
		return nil, vaulterrors.Wrap("metadata.Load", vaulterrors.IoError, err)
	}
	defer r.Close()

	if r.Len() < fixedFieldsLen {
		return nil, vaulterrors.New("metadata.Load", vaulterrors.CorruptMetadata)
	}
	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, vaulterrors.Wrap("metadata.Load", vaulterrors.IoError, err)
	}

	return Parse(buf)
}

// Create writes a complete metadata record to dir with exclusive-create
// semantics and mode 0600, then fsyncs the file and its containing
// directory. Fails AlreadyExists if the file is already present; in
// that case no bytes are written.
func Create(dir string, record []byte) error {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return vaulterrors.Wrap("metadata.Create", vaulterrors.AlreadyExists, err)
		}
		return vaulterrors.Wrap("metadata.Create", vaulterrors.IoError, err)
	}
	defer f.Close()

	if _, err := f.Write(record); err != nil {
		return vaulterrors.Wrap("metadata.Create", vaulterrors.IoError, err)
	}
	if err := f.Sync(); err != nil {
		return vaulterrors.Wrap("metadata.Create", vaulterrors.IoError, err)
	}

	dirF, err := os.Open(dir)
	if err != nil {
		return vaulterrors.Wrap("metadata.Create", vaulterrors.IoError, err)
	}
	defer dirF.Close()
	if err := dirF.Sync(); err != nil {
		return vaulterrors.Wrap("metadata.Create", vaulterrors.IoError, err)
	}
	return nil
}

// Exists reports whether the metadata file is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
