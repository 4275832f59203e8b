package main

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Resolve decodes a location fragment into the ordered list of document URLs.
//
// The fragment is a percent-encoded base64 payload. Decoded, it is a leading
// delimiter followed by '&'-separated percent-encoded URLs. A leading '#' is
// accepted and ignored. Only an empty payload is rejected; entries are not
// validated here.
func Resolve(fragment string) (URLList, error) {
	raw, err := url.PathUnescape(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	decoded, err := decodeBase64(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if decoded == "" {
		return nil, ErrEmptyRequest
	}

	// drop the leading delimiter byte; every segment after it is an entry,
	// empty ones included, so a bad entry fails at fetch time
	var urls URLList
	for _, seg := range strings.Split(decoded[1:], "&") {
		u, err := url.PathUnescape(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v", ErrMalformedRequest, seg, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Encode is the inverse of Resolve. The result carries no leading '#'.
func Encode(urls []string) string {
	var b strings.Builder
	for _, u := range urls {
		b.WriteByte('&')
		b.WriteString(escapeComponent(u))
	}
	return escapeComponent(base64.StdEncoding.EncodeToString([]byte(b.String())))
}

// decodeBase64 is lenient the way browsers' atob is: ASCII whitespace is
// ignored and padding is optional.
func decodeBase64(s string) (string, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, s)
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// escapeComponent percent-encodes s so that url.PathUnescape restores it.
// Spaces become %20, never '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
