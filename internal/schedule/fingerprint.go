package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// fingerprintVersion prefixes the canonical encoding. Bump it whenever the
// encoding below changes.
const fingerprintVersion = "v1"

// Fingerprint is a SHA-256 digest of a canonical GroupSchedule.
type Fingerprint [sha256.Size]byte

// Compute fingerprints the canonical schedule. Only canonical fields are
// encoded, in a fixed order.
func Compute(s GroupSchedule) Fingerprint {
	var b strings.Builder
	b.WriteString(fingerprintVersion)
	b.WriteString("|group=")
	b.WriteString(s.Group.String())
	b.WriteString("|today=")
	writeDay(&b, s.Today)
	b.WriteString("|tomorrow=")
	if s.Tomorrow == nil {
		b.WriteString("absent")
	} else {
		writeDay(&b, *s.Tomorrow)
	}
	return sha256.Sum256([]byte(b.String()))
}

func writeDay(b *strings.Builder, d DaySchedule) {
	b.WriteByte('[')
	for i, w := range d.Windows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(w.Start)))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(int(w.End)))
	}
	b.WriteByte(']')
}

// IsZero reports whether f is the zero digest (no fingerprint).
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// ParseFingerprint decodes a hex digest produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(raw) != len(f) {
		return f, fmt.Errorf("decode fingerprint: want %d bytes, got %d", len(f), len(raw))
	}
	copy(f[:], raw)
	return f, nil
}

func (f Fingerprint) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Fingerprint) UnmarshalText(b []byte) error {
	parsed, err := ParseFingerprint(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FingerprintFromBytes copies a raw digest read from storage.
func FingerprintFromBytes(raw []byte) (Fingerprint, error) {
	var f Fingerprint
	if len(raw) != len(f) {
		return f, fmt.Errorf("fingerprint: want %d bytes, got %d", len(f), len(raw))
	}
	copy(f[:], raw)
	return f, nil
}
