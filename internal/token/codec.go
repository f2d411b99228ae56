package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// DecodeClaims decodes the payload segment of a JWT without verifying its
// signature. It is advisory only: the result must never be used to authorize
// anything, only to read expiry bookkeeping. Any malformed input yields an
// empty map.
func DecodeClaims(token string) map[string]any {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return map[string]any{}
	}

	// Providers differ on whether the payload is padded.
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return map[string]any{}
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return map[string]any{}
	}

	return claims
}

// claimExpiry returns the exp claim of a token as a Unix timestamp.
// The second return is false when the token is undecodable or carries no
// usable exp.
func claimExpiry(token string) (int64, bool) {
	exp, ok := DecodeClaims(token)["exp"].(float64)
	if !ok || exp <= 0 {
		return 0, false
	}
	return int64(exp), true
}
