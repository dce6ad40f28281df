// Package identity reads the caller's email out of a compact identity token.
//
// Decode only looks at the payload segment. Signature, issuer, audience and
// expiry are verified upstream (see package validator); a token that reaches
// Decode is trusted to have been checked already.
package identity

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storefront/go-storefront/core"
)

// EmailClaim is the name of the claim carrying the caller's email.
const EmailClaim = "email"

// Claims is the subset of the token payload used by the storefront.
type Claims struct {
	Email   string
	Subject string
	Issuer  string
	Expiry  int64
}

// Decode returns the email claim of token. Any failure is reported as an
// error matching core.ErrInvalidToken.
func Decode(token string) (string, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// DecodeClaims parses the payload segment of token.
func DecodeClaims(token string) (*Claims, error) {
	// JWT format: header.payload.signature
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, core.NewTokenError(
			core.ErrorCodeTokenMalformed,
			fmt.Sprintf("expected 3 token segments, got %d", len(parts)),
			nil,
		)
	}
	if parts[0] == "" || parts[1] == "" {
		return nil, core.NewTokenError(core.ErrorCodeTokenMalformed, "empty token segment", nil)
	}

	payloadJSON, err := decodeSegment(parts[1])
	if err != nil {
		return nil, core.NewTokenError(core.ErrorCodePayloadInvalid, "failed to decode token payload", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, core.NewTokenError(core.ErrorCodePayloadInvalid, "failed to unmarshal token payload", err)
	}
	if payload == nil {
		return nil, core.NewTokenError(core.ErrorCodePayloadInvalid, "token payload is not an object", nil)
	}

	email, err := stringClaim(payload, EmailClaim)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, core.NewTokenError(core.ErrorCodeClaimsMissing, "email claim is missing", nil)
	}

	claims := &Claims{Email: email}
	// Registered claims are informational; a malformed one does not
	// invalidate the email.
	claims.Subject, _ = stringClaim(payload, "sub")
	claims.Issuer, _ = stringClaim(payload, "iss")
	if raw, ok := payload["exp"]; ok {
		var exp json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if dec.Decode(&exp) == nil {
			if f, err := exp.Float64(); err == nil {
				claims.Expiry = int64(f)
			}
		}
	}

	return claims, nil
}

// stringClaim returns the named claim when it holds a JSON string. An absent
// or null claim yields "" without error; any other type is rejected.
func stringClaim(payload map[string]json.RawMessage, name string) (string, error) {
	raw, ok := payload[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", core.NewTokenError(
			core.ErrorCodeClaimsMissing,
			fmt.Sprintf("%s claim is not a string", name),
			err,
		)
	}
	return value, nil
}

// decodeSegment accepts base64url with or without padding.
func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
}
