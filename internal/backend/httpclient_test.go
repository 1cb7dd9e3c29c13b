// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatekeep/cli/internal/backend/backendtest"
	"gatekeep/cli/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake(t *testing.T) (*backendtest.Server, API) {
	t.Helper()
	srv := backendtest.New(t)
	srv.AddAccount("a@b.com", "pw", model.User{ID: "7", Email: "a@b.com", Name: "Ada"},
		model.Role{RoleName: "Admin"}, model.Role{RoleName: "editor"})
	return srv, New(srv.URL, Endpoints{}, WithUserAgent("gatekeep-cli/test"))
}

func TestHTTP_Login(t *testing.T) {
	srv, api := newFake(t)

	res, err := api.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "t1", res.Token)
	assert.Equal(t, model.ID("7"), res.User.ID)
	assert.Equal(t, "a@b.com", res.User.Email)
	assert.Nil(t, res.User.Roles)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/auth/login", calls[0].Path)
	assert.Empty(t, calls[0].Authorization)
	assert.Equal(t, "gatekeep-cli/test", calls[0].UserAgent)
	_, err = uuid.Parse(calls[0].RequestID)
	assert.NoError(t, err, "request id should be a uuid")
}

func TestHTTP_LoginInvalidCredentials(t *testing.T) {
	_, api := newFake(t)

	res, err := api.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Body, "invalid credentials")
}

func TestHTTP_MeAndRoles(t *testing.T) {
	srv, api := newFake(t)
	ctx := context.Background()
	token := srv.IssueToken("a@b.com")

	user, err := api.Me(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.ID("7"), user.ID)
	assert.Nil(t, user.Roles, "roles absent unless the backend sends them")

	roles, err := api.Roles(ctx, token, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Role{{RoleName: "Admin"}, {RoleName: "editor"}}, roles)

	for _, c := range srv.Calls() {
		assert.Equal(t, "Bearer "+token, c.Authorization, c.Path)
	}
	assert.Equal(t, 1, srv.CallsTo("/users/7/roles"))
}

func TestHTTP_MeIncludesRoles(t *testing.T) {
	srv, api := newFake(t)
	srv.MeIncludesRoles = true

	user, err := api.Me(context.Background(), srv.IssueToken("a@b.com"))
	require.NoError(t, err)
	assert.True(t, user.HasAdminRole())
}

func TestHTTP_MeRejectedToken(t *testing.T) {
	_, api := newFake(t)

	_, err := api.Me(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTP_Logout(t *testing.T) {
	srv, api := newFake(t)
	token := srv.IssueToken("a@b.com")

	require.NoError(t, api.Logout(context.Background(), token))
	assert.False(t, srv.SessionActive(token))
}

func TestHTTP_LogoutServerError(t *testing.T) {
	srv, api := newFake(t)
	srv.Fail(backendtest.RouteLogout, http.StatusInternalServerError)

	err := api.Logout(context.Background(), srv.IssueToken("a@b.com"))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestHTTP_RolesNullBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	t.Cleanup(ts.Close)

	roles, err := New(ts.URL, Endpoints{}).Roles(context.Background(), "t", "1")
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
}

func TestHTTP_CustomEndpoints(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(ts.Close)

	api := New(ts.URL+"/", Endpoints{Roles: "/api/v2/accounts/{id}/groups"})
	_, err := api.Roles(context.Background(), "t", "a b")
	require.NoError(t, err)
	assert.Equal(t, "/api/v2/accounts/a b/groups", gotPath)
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		ts.Close()
	})

	api := New(ts.URL, Endpoints{}, WithTimeout(50*time.Millisecond))
	_, err := api.Me(context.Background(), "t")
	require.Error(t, err)
}

func TestHTTP_WithHTTPClientLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	h := newHTTP("http://localhost", Endpoints{}, WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, h.client.Timeout)
	assert.NotSame(t, shared, h.client)
}

func TestParseLoginResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		header    http.Header
		wantToken string
		wantErr   bool
	}{
		{name: "token field", body: `{"token":"t1","user":{"id":7}}`, wantToken: "t1"},
		{name: "access_token field", body: `{"access_token":"t2","user":{"id":7}}`, wantToken: "t2"},
		{name: "camel case field", body: `{"accessToken":"t3","user":{"id":7}}`, wantToken: "t3"},
		{
			name:      "authorization header",
			body:      `{"user":{"id":7}}`,
			header:    http.Header{"Authorization": []string{"Bearer t4"}},
			wantToken: "t4",
		},
		{name: "missing token", body: `{"user":{"id":7}}`, wantErr: true},
		{name: "missing user", body: `{"token":"t1"}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			res, err := parseLoginResponse([]byte(tt.body), header)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, res.Token)
			assert.Equal(t, model.ID("7"), res.User.ID)
		})
	}
}

func TestParseBearerToken(t *testing.T) {
	assert.Equal(t, "abc", parseBearerToken("Bearer abc"))
	assert.Equal(t, "abc", parseBearerToken("  bearer   abc "))
	assert.Equal(t, "", parseBearerToken("Basic abc"))
	assert.Equal(t, "", parseBearerToken("Bearerabc"))
	assert.Equal(t, "", parseBearerToken("Bearer"))
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Op: "login", Code: 503}
	assert.Equal(t, "login failed (status 503)", err.Error())

	err = &StatusError{Op: "login", Code: 401, Body: "nope"}
	assert.Equal(t, "login failed (status 401): nope", err.Error())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
