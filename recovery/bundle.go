// Package recovery parses the out-of-band recovery bundle format: a
// text container of named sections, of which the vault core consumes
// exactly two — METADATA (the raw vault header bytes) and EKEY (the
// raw K_e). Any other sections a bundle carries (e.g. a human note, or
// a future section kind) are preserved but ignored.
package recovery

import (
	"bufio"
	"encoding/base64"
	"strings"

	"github.com/moneytech/rvault/vaulterrors"
)

const bundleMagic = "RVAULT-RECOVERY-BUNDLE v1"

// Bundle is a parsed recovery bundle: a set of named byte sections.
type Bundle struct {
	Sections map[string][]byte
}

// Section returns the named section's raw bytes, or ok=false if the
// bundle doesn't carry it.
func (b *Bundle) Section(name string) ([]byte, bool) {
	v, ok := b.Sections[name]
	return v, ok
}

// SectionMetadata and SectionEKey are the two sections this core requires.
const (
	SectionMetadata = "METADATA"
	SectionEKey     = "EKEY"
)

// Parse decodes a recovery bundle from its text form:
//
//	RVAULT-RECOVERY-BUNDLE v1
//	BEGIN <NAME>
//	<base64, one or more lines>
//	END <NAME>
//	... (repeated per section)
//
// Any structural violation fails BadRecovery.
func Parse(text []byte) (*Bundle, error) {
	sc := bufio.NewScanner(strings.NewReader(string(text)))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, vaulterrors.New("recovery.Parse", vaulterrors.BadRecovery)
	}
	if strings.TrimSpace(sc.Text()) != bundleMagic {
		return nil, vaulterrors.New("recovery.Parse", vaulterrors.BadRecovery)
	}

	sections := make(map[string][]byte)
	var (
		current string
		inSect  bool
		b64     strings.Builder
	)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case !inSect && strings.HasPrefix(line, "BEGIN "):
			current = strings.TrimPrefix(line, "BEGIN ")
			if current == "" {
				return nil, vaulterrors.New("recovery.Parse", vaulterrors.BadRecovery)
			}
			inSect = true
			b64.Reset()
		case inSect && line == "END "+current:
			raw, err := base64.StdEncoding.DecodeString(b64.String())
			if err != nil {
				return nil, vaulterrors.Wrap("recovery.Parse", vaulterrors.BadRecovery, err)
			}
			sections[current] = raw
			inSect = false
			current = ""
		case inSect:
			b64.WriteString(line)
		default:
			return nil, vaulterrors.New("recovery.Parse", vaulterrors.BadRecovery)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, vaulterrors.Wrap("recovery.Parse", vaulterrors.BadRecovery, err)
	}
	if inSect {
		return nil, vaulterrors.New("recovery.Parse", vaulterrors.BadRecovery)
	}

	return &Bundle{Sections: sections}, nil
}

// Encode serializes sections back to bundle text, in the iteration
// order given by names. Used by tests and by any tool that produces
// recovery bundles; the core itself only ever consumes them.
func Encode(names []string, sections map[string][]byte) []byte {
	var sb strings.Builder
	sb.WriteString(bundleMagic + "\n")
	for _, name := range names {
		data, ok := sections[name]
		if !ok {
			continue
		}
		sb.WriteString("BEGIN " + name + "\n")
		sb.WriteString(base64.StdEncoding.EncodeToString(data))
		sb.WriteString("\n")
		sb.WriteString("END " + name + "\n")
	}
	return []byte(sb.String())
}
