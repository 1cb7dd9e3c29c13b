// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the structured logger and utilities for secure logging.
// It includes functions for masking sensitive information in log messages and
// formatting errors for user-friendly display while protecting credentials and secrets.
//
// The package helps ensure that passwords and session tokens are not accidentally
// exposed in logs or error messages shown to users, including response bodies the
// backend echoes back in error payloads.
package logging

import (
	"regexp"
)

var (
	rePassword  = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reToken     = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._~+/=-]+)`)
	reJSONField = regexp.MustCompile(`(?i)("(?:password|token|access_token|accessToken|refresh_token)"\s*:\s*")([^"]*)(")`)
	reRedisURL  = regexp.MustCompile(`(?i)(rediss?://[^:/@\s]*:)([^@\s]+)(@)`)
	reSecretEnv = regexp.MustCompile(`\b((?:GATEKEEP_PASSWORD|GATEKEEP_KEYRING_PASSPHRASE|GATEKEEP_STORE_REDIS_PASSWORD)=)(\S*)`)
)

// Mask replaces sensitive values in the input string with "***".
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reJSONField.ReplaceAllString(out, "$1***$3")
	out = reRedisURL.ReplaceAllString(out, "$1***$3")
	out = reSecretEnv.ReplaceAllString(out, "$1***")
	return out
}
