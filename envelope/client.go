// Package envelope defines the key-escrow server collaborator contract.
// The HTTP/TLS transport to a real server lives elsewhere; this package
// only defines the interface the vault calls through, plus an
// in-memory test double sufficient to exercise the full
// Init→Register / Open→Fetch round trip without a network.
package envelope

import (
	"context"

	"github.com/moneytech/rvault/vaulterrors"
)

// Client is the escrow server collaborator contract: register a
// wrapped key at init, fetch it back at open. Both operations are keyed
// by uid; Fetch additionally takes a TOTP token. Authentication details
// (TOTP generation, TLS session setup) belong to the collaborator
// implementation, not here.
type Client interface {
	// Register posts K_s (K_e wrapped under K_p) to the server for uid,
	// one-shot at init. authSetup carries whatever second-factor
	// enrollment material the server implementation requires.
	Register(ctx context.Context, uid [16]byte, authSetup []byte, ks []byte) error

	// Fetch authenticates with uid and totpToken and returns K_s.
	Fetch(ctx context.Context, uid [16]byte, totpToken string) (ks []byte, err error)
}

// Memory is an in-memory Client test double: it never performs network
// I/O; Register always succeeds, and Fetch returns whatever was last
// registered for a UID (AuthFailed if nothing was). It exists to let vault-level tests exercise the
// server-bound open/init paths without a real escrow server.
type Memory struct {
	records map[[16]byte][]byte
}

// NewMemory returns an empty in-memory client.
func NewMemory() *Memory {
	return &Memory{records: make(map[[16]byte][]byte)}
}

// Register stores ks under uid, overwriting any prior registration.
func (m *Memory) Register(_ context.Context, uid [16]byte, _ []byte, ks []byte) error {
	m.records[uid] = append([]byte(nil), ks...)
	return nil
}

// Fetch returns the previously registered ks for uid, or AuthFailed if
// none was registered.
func (m *Memory) Fetch(_ context.Context, uid [16]byte, _ string) ([]byte, error) {
	ks, ok := m.records[uid]
	if !ok {
		return nil, vaulterrors.New("envelope.Memory.Fetch", vaulterrors.AuthFailed)
	}
	return append([]byte(nil), ks...), nil
}
