// Package codec turns the full merchant catalog into a compact URL-safe
// token and back. The token is the wire protocol of the whole application:
// canonical JSON, DEFLATE-compressed, base64url-encoded with no padding so
// it can sit in a URL fragment without percent-encoding.
//
// Decode is a public-facing code path (anyone can craft a share link), so it
// treats every input as hostile: any decompression, parse or schema
// validation failure is reported as ErrCorrupted and never as a panic or a
// partially-populated catalog.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"zapcatalog/pkg/contracts/domain"
)

// ErrCorrupted classifies every decode failure: empty tokens, bad base64,
// truncated or garbled compressed streams, structural parse failures and
// catalogs that violate the schema invariants.
var ErrCorrupted = errors.New("codec: invalid or corrupted catalog token")

// maxDecodedBytes caps the decompressed payload so a crafted token cannot
// balloon into an allocation attack.
const maxDecodedBytes = 4 << 20

// Encode serializes a catalog into its compact token. The round-trip law
// Decode(Encode(x)) == x holds for every valid StoreData, independent of
// product count or optional-field absence.
func Encode(data domain.StoreData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("codec: marshal catalog: %w", err)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("codec: init compressor: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("codec: compress catalog: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("codec: flush compressor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Any failure returns an error wrapping ErrCorrupted;
// the returned StoreData is the zero value in that case, never a partial
// structure.
func Decode(token string) (domain.StoreData, error) {
	var zero domain.StoreData
	if token == "" {
		return zero, fmt.Errorf("%w: empty token", ErrCorrupted)
	}

	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	raw, err := io.ReadAll(io.LimitReader(r, maxDecodedBytes))
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if len(raw) == 0 {
		return zero, fmt.Errorf("%w: empty payload", ErrCorrupted)
	}

	var data domain.StoreData
	if err := json.Unmarshal(raw, &data); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	// A token can be structurally valid JSON and still carry a catalog that
	// breaks the schema invariants. That is crafted input too.
	if err := data.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return data, nil
}

// IsCorrupted reports whether err came from a failed Decode.
func IsCorrupted(err error) bool {
	return errors.Is(err, ErrCorrupted)
}
