package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/minibayes/minibayes/internal/graph"
)

// Domain prefix for content-addressed run identity.
// Version suffix enables future algorithm migration.
const DomainRun = "minibayes/run/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a run: the
// document plus the seed and iteration count that drive the chain. Two
// runs with equal fingerprints replay bit for bit.
//
// The canonical form sorts object keys, NFC-normalizes strings, writes
// floats in shortest round-trip form, and resolves omitted node types
// to the operator default, so documents an engine cannot tell apart
// fingerprint identically.
//
// DESIGN DECISION: Comment is intentionally EXCLUDED from the
// fingerprint. The fingerprint represents what the engine computes, not
// how the document is annotated. This enables:
//   - Stable identity: re-exported documents keep their run history
//   - Honest dedup: editing prose never forces a fresh run
//
// Returns an error if the document holds a non-finite constant, which
// has no canonical JSON form.
func Fingerprint(doc *Document, seed uint64, iterations int) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"iterations":`)
	buf.WriteString(strconv.Itoa(iterations))
	buf.WriteString(`,"nodes":[`)
	for i := range doc.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalNode(&buf, &doc.Nodes[i]); err != nil {
			return "", fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	buf.WriteString(`],"seed":`)
	buf.WriteString(strconv.FormatUint(seed, 10))
	buf.WriteByte('}')

	return hashWithDomain(DomainRun, buf.Bytes()), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(doc *Document, seed uint64, iterations int) string {
	fp, err := Fingerprint(doc, seed, iterations)
	if err != nil {
		panic(err)
	}
	return fp
}

// writeCanonicalNode emits one node with keys in sorted order:
// in_node, in_nodes, operator, query_index, sequence, type, value.
// Absent optional payloads are omitted; an absent type is resolved to
// the operator's result type first.
func writeCanonicalNode(buf *bytes.Buffer, s *NodeSpec) error {
	typ := s.Type
	if typ == "" {
		op, ok := graph.OpFromName(s.Operator)
		if !ok {
			return fmt.Errorf("unknown operator %q has no default type", s.Operator)
		}
		typ = op.Result().String()
	}

	buf.WriteByte('{')
	first := true
	key := func(name string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeCanonicalString(buf, name)
		buf.WriteByte(':')
	}

	if s.InNode != nil {
		key("in_node")
		buf.WriteString(strconv.Itoa(*s.InNode))
	}
	if s.InNodes != nil {
		key("in_nodes")
		buf.WriteByte('[')
		for j, p := range s.InNodes {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(p))
		}
		buf.WriteByte(']')
	}
	key("operator")
	writeCanonicalString(buf, s.Operator)
	if s.QueryIndex != nil {
		key("query_index")
		buf.WriteString(strconv.Itoa(*s.QueryIndex))
	}
	key("sequence")
	buf.WriteString(strconv.Itoa(s.Sequence))
	key("type")
	writeCanonicalString(buf, typ)
	if s.Value != nil {
		key("value")
		if err := writeCanonicalNumber(buf, *s.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString writes an NFC-normalized JSON string without
// HTML escaping, per RFC 8785.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	out := tmp.Bytes()
	// json.Encoder adds trailing newline, remove it
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(out)
}

// writeCanonicalNumber writes a float in shortest round-trip form.
// Negative zero collapses to zero so equal values hash equally.
func writeCanonicalNumber(buf *bytes.Buffer, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("non-finite value %v has no canonical form", v)
	}
	if v == 0 {
		buf.WriteByte('0')
		return nil
	}
	buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	return nil
}
