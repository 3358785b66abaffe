// Package dburl extracts connection parameters from a database URL.
package dburl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/avoss/pgdrive/internal/models"
)

// DefaultPort is used when the URL carries no explicit port.
const DefaultPort = 5432

var (
	// ErrMalformedURL indicates the URL lacks a scheme, host, or database path.
	ErrMalformedURL = errors.New("malformed database URL")

	// ErrMissingCredential indicates no password could be resolved from either
	// the URL user-info or the password query parameter.
	ErrMissingCredential = errors.New("no password in URL user-info or password query parameter")
)

// Parse resolves a connection URL into a ConnectionSpec.
//
// The password comes from the URL user-info when present, otherwise from the
// first value of the "password" query parameter. The first non-empty source
// wins entirely; credentials are never merged across sources. Operators use
// the query-parameter form when special characters make user-info unsafe.
func Parse(rawURL string, fallbackUser string) (*models.ConnectionSpec, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrMalformedURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		return nil, fmt.Errorf("%w: missing database path", ErrMalformedURL)
	}

	spec := &models.ConnectionSpec{
		Host:     u.Hostname(),
		Port:     DefaultPort,
		Database: database,
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port %q", ErrMalformedURL, p)
		}
		spec.Port = port
	}

	// User-info username, else the configured fallback. Both absent leaves
	// the user empty so the dump tool can apply its own default.
	if u.User != nil && u.User.Username() != "" {
		spec.User = u.User.Username()
	} else {
		spec.User = fallbackUser
	}

	spec.Password = resolvePassword(u)
	if spec.Password == "" {
		return nil, ErrMissingCredential
	}

	return spec, nil
}

// resolvePassword returns the first non-empty password source. An empty
// user-info password does not shadow a present query parameter.
func resolvePassword(u *url.URL) string {
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			return pw
		}
	}
	return u.Query().Get("password")
}
