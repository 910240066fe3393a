// Package canon implements the deterministic byte encoding CORTEX hashes
// and chains the ledger against. Any change to the encoding rules here
// breaks every hash computed by an existing ledger, so the rules are kept
// intentionally small and are covered by fixed test vectors.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Encode returns the canonical byte form of v: JSON with object keys
// sorted lexicographically, no insignificant whitespace, numbers in
// shortest round-trip form, and time.Time values encoded as millisecond
// precision ISO-8601 with a trailing "Z".
func Encode(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canon: normalize: %w", err)
	}
	var buf bytes.Buffer
	if err := writeValue(&buf, normalized); err != nil {
		return nil, fmt.Errorf("canon: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// MustEncode is Encode but panics on error. Reserved for call sites that
// serialize a value whose shape is controlled by this package (e.g.
// already-validated ledger detail payloads).
func MustEncode(v interface{}) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Hash returns the lowercase hex-encoded SHA-256 digest of b.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashValue canonically encodes v and hashes the result.
func HashValue(v interface{}) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// Timestamp formats t as millisecond-precision ISO-8601 UTC with a
// trailing "Z", the wire format every timestamp field uses.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// normalize round-trips v through encoding/json to obtain a tree of
// map[string]interface{}, []interface{}, and scalar types with
// time.Time values pre-formatted, so writeValue only has to deal with a
// small closed set of Go types.
func normalize(v interface{}) (interface{}, error) {
	if t, ok := v.(time.Time); ok {
		return Timestamp(t), nil
	}
	if t, ok := v.(*time.Time); ok {
		if t == nil {
			return nil, nil
		}
		return Timestamp(*t), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, val)
	case json.Number:
		writeNumber(buf, val)
	case float64:
		writeNumber(buf, json.Number(formatFloat(val)))
	case map[string]interface{}:
		writeObject(buf, val)
	case []interface{}:
		writeArray(buf, val)
	default:
		return fmt.Errorf("canon: unsupported value type %T", v)
	}
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]interface{}) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		// Error already validated during normalize/Encode's recursive
		// descent; object values here always came from json.Unmarshal.
		_ = writeValue(buf, obj[k])
	}
	buf.WriteByte('}')
}

func writeArray(buf *bytes.Buffer, arr []interface{}) {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		_ = writeValue(buf, elem)
	}
	buf.WriteByte(']')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeNumber(buf *bytes.Buffer, n json.Number) {
	buf.WriteString(n.String())
}

// formatFloat renders f the way encoding/json marshals a float64: the
// shortest round-trip digits, in plain decimal form except for very small
// or very large magnitudes, which use exponent form. NaN and ±Inf, which
// JSON cannot represent, are written as "0".
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	b, _ := json.Marshal(f)
	return string(b)
}
