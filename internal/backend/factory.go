// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

// New creates a backend API implementation for baseURL.
// Returns HTTP client (real backend).
func New(baseURL string, endpoints Endpoints, opts ...Option) API {
	return newHTTP(baseURL, endpoints, opts...)
}
