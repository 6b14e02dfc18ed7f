// Package linker builds the canonical shareable catalog URL and extracts
// tokens back out of it. The link format is the public contract printed on
// QR codes and pasted into chats:
//
//	<origin>[/path]/#/c?d=<token>
//
// Compose is deliberately forgiving about its base URL: trailing slashes,
// existing fragments and query strings from whatever page the merchant is
// currently viewing are all stripped before the catalog route is appended.
package linker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"zapcatalog/internal/codec"
	"zapcatalog/pkg/contracts/domain"
)

// catalogRoute marks the customer-facing catalog view inside the fragment.
const catalogRoute = "#/c"

// tokenParam is the query parameter carrying the compact catalog token.
const tokenParam = "d"

// ErrNoToken is returned by ExtractToken when the URL carries no catalog
// token.
var ErrNoToken = errors.New("linker: url carries no catalog token")

// Compose encodes the catalog and embeds the token in a canonical absolute
// URL based on baseOrigin. The base may carry a path, query, fragment or
// trailing slashes; separators are never doubled.
func Compose(baseOrigin string, data domain.StoreData) (string, error) {
	base, err := normalizeBase(baseOrigin)
	if err != nil {
		return "", err
	}

	token, err := codec.Encode(data)
	if err != nil {
		return "", err
	}

	return base + "/" + catalogRoute + "?" + tokenParam + "=" + token, nil
}

// ExtractToken pulls the compact token out of a share URL produced by
// Compose. It is the customer-side inverse used before handing the token to
// the codec.
func ExtractToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("linker: parse url: %w", err)
	}

	// The route lives in the fragment, so the token is invisible to normal
	// query parsing: #/c?d=<token>
	fragment := u.Fragment
	if fragment == "" {
		return "", ErrNoToken
	}
	_, query, found := strings.Cut(fragment, "?")
	if !found {
		return "", ErrNoToken
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("linker: parse fragment query: %w", err)
	}
	token := values.Get(tokenParam)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// QR renders the share URL for the catalog as a PNG of the given pixel size.
func QR(shareURL string, size int) ([]byte, error) {
	png, err := qrcode.Encode(shareURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("linker: render qr code: %w", err)
	}
	return png, nil
}

// normalizeBase strips query, fragment and trailing slashes from the base
// origin, keeping scheme, host and any path prefix.
func normalizeBase(baseOrigin string) (string, error) {
	trimmed := strings.TrimSpace(baseOrigin)
	if trimmed == "" {
		return "", errors.New("linker: base origin is required")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("linker: parse base origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("linker: base origin %q must be absolute", baseOrigin)
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String(), nil
}
