// Package mocks holds generated test doubles for the backend client.
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=backend_api_mock.go gatekeep/cli/internal/backend API
