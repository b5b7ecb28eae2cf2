package checklist

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// hashDomain is the domain-separation prefix for spec hashes. The version
// suffix permits a future layout change without colliding with old values.
const hashDomain = "checklist-sync/spec/v1"

// Hash computes a stable content hash of the spec.
//
// The hash is stored as sync-traceability metadata on the target page; two
// specs that differ only in Go-level representation (but not content) must
// hash identically, so every string is NFC-normalized and the layout is a
// fixed canonical encoding rather than encoding/json output.
func Hash(s *Spec) string {
	var b strings.Builder
	writeField(&b, s.Title)
	writeField(&b, s.RegionTitle)
	b.WriteString(strconv.Itoa(len(s.Sections)))
	b.WriteByte(0)
	for _, sec := range s.Sections {
		writeField(&b, sec.Heading)
		b.WriteString(strconv.Itoa(len(sec.Items)))
		b.WriteByte(0)
		for _, it := range sec.Items {
			writeField(&b, it.ID)
			writeField(&b, it.Text)
		}
	}

	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// writeField appends one length-prefixed NFC-normalized string. Length
// prefixing removes boundary ambiguity between adjacent fields.
func writeField(b *strings.Builder, s string) {
	n := norm.NFC.String(s)
	b.WriteString(strconv.Itoa(len(n)))
	b.WriteByte(':')
	b.WriteString(n)
	b.WriteByte(0)
}
