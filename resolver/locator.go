package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/justapithecus/hostside/types"
)

// Parse splits an identifier of the form <scheme>:<path>[?<query>].
//
// The scheme is kept verbatim; whether it is supported is decided by the
// Registry. The query is decoded as '&'-separated key=value pairs and the
// first value of each key wins.
func Parse(identifier string) (*types.ArtifactReference, error) {
	idx := strings.IndexByte(identifier, ':')
	if idx <= 0 {
		return nil, &Error{Kind: ErrInvalidIdentifier, Path: identifier, Err: fmt.Errorf("missing scheme")}
	}
	scheme := identifier[:idx]
	if !validScheme(scheme) {
		return nil, &Error{Kind: ErrInvalidIdentifier, Path: identifier, Err: fmt.Errorf("malformed scheme %q", scheme)}
	}

	rest := identifier[idx+1:]
	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == "" {
		return nil, &Error{Kind: ErrInvalidIdentifier, Scheme: scheme, Path: identifier, Err: fmt.Errorf("empty path")}
	}

	options, err := parseOptions(rawQuery)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidIdentifier, Scheme: scheme, Path: identifier, Err: err}
	}

	return types.NewArtifactReference(identifier, scheme, path, options), nil
}

// parseOptions decodes key=value pairs separated by '&'. Only '&'
// separates pairs, so ';' stays part of a value. The first value of a
// repeated key wins.
func parseOptions(rawQuery string) (map[string]string, error) {
	options := make(map[string]string)
	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("query key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("query value for %q: %w", key, err)
		}
		if _, seen := options[key]; !seen {
			options[key] = value
		}
	}
	return options, nil
}

// validScheme follows RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
