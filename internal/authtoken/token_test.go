package authtoken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodGet, req.Method)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{name: "token", status: http.StatusOK, body: `{"token":"abc123"}`, want: "abc123"},
		{name: "anonymous", status: http.StatusOK, body: `{}`, want: ""},
		{name: "null token", status: http.StatusOK, body: `{"token":null}`, want: ""},
		{name: "bad json", status: http.StatusOK, body: `{"token":`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := serve(t, c.status, c.body)
			got, err := Fetch(context.Background(), srv.Client(), srv.URL+"/token")
			if c.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}
