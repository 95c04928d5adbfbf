// Package otpauth builds and inspects the otpauth:// provisioning URIs that
// authenticator apps read from QR codes.
package otpauth

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp"
)

const scheme = "otpauth://"

// FormatURI returns the TOTP provisioning URI for an account.
//
// Values are embedded exactly as given. Nothing is percent-encoded, so a name
// or username containing '&', '?' or spaces produces a URI that a strict parser
// may read differently; existing exports depend on this exact form.
func FormatURI(name, username, secret string) string {
	return scheme + "totp/" + username + "?secret=" + secret + "&issuer=" + name
}

// Info holds the fields an authenticator app would read from a provisioning URI.
type Info struct {
	Type    string
	Issuer  string
	Account string
	Secret  string
}

// ParseURI extracts the type, issuer, account name and secret from an
// otpauth URI
func ParseURI(uri string) (Info, error) {
	if !strings.HasPrefix(uri, scheme) {
		return Info{}, fmt.Errorf("not a valid otpauth URL: %s", uri)
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse otpauth URL: %w", err)
	}

	if key.Secret() == "" {
		return Info{}, fmt.Errorf("no secret found in otpauth URL")
	}

	return Info{
		Type:    key.Type(),
		Issuer:  key.Issuer(),
		Account: key.AccountName(),
		Secret:  key.Secret(),
	}, nil
}
