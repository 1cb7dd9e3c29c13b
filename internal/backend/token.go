// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/http"
	"strings"
)

// parseBearerToken extracts token from a value like "Bearer <token>" case-insensitively.
// Returns the token string without the "Bearer " prefix, or empty string if invalid format.
func parseBearerToken(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 7 {
		return ""
	}
	// case-insensitive prefix match, followed by whitespace
	if strings.EqualFold(v[0:6], "bearer") && (v[6] == ' ' || v[6] == '\t') {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// findBearerTokenInHeaders looks for a Bearer token in the Authorization header
// and then in any header whose value carries one.
// Returns the token string without the "Bearer " prefix, or empty string if not found.
func findBearerTokenInHeaders(h http.Header) string {
	if t := parseBearerToken(h.Get("Authorization")); t != "" {
		return t
	}
	for _, vals := range h {
		for _, v := range vals {
			if t := parseBearerToken(v); t != "" {
				return t
			}
		}
	}
	return ""
}

// extractAccessToken extracts the session token from the login payload.
// It tries the common field names so backend naming drift doesn't break login.
func extractAccessToken(result map[string]any) string {
	for _, key := range []string{"token", "access_token", "accessToken"} {
		if v, ok := result[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
