package validator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedToken is returned when a token is not a compact JWS.
	ErrMalformedToken = errors.New("token is not a compact JWS")

	// ErrTokenTooLarge is returned for tokens above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size")
)

// maxTokenSize bounds the token accepted for parsing. Identity tokens are a
// few KB at most.
const maxTokenSize = 64 * 1024

// tokenHeader is the part of the JOSE header read before verification.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// parseHeader rejects anything but header.payload.signature and returns the
// decoded protected header.
func parseHeader(tokenString string) (*tokenHeader, error) {
	if len(tokenString) > maxTokenSize {
		return nil, ErrTokenTooLarge
	}
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrMalformedToken
	}

	encoded, _, _ := strings.Cut(tokenString, ".")
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: header is not base64url: %v", ErrMalformedToken, err)
	}

	var header tokenHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: header is not JSON: %v", ErrMalformedToken, err)
	}
	return &header, nil
}
