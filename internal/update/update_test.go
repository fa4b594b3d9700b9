package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

func releaseServer(t *testing.T, status int, body string) *api.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, LatestPath, r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	c, err := api.New(api.Config{BaseURL: ts.URL})
	require.NoError(t, err)
	return c
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		current string
		want    string
	}{
		{"newer release", http.StatusOK, `{"tag_name":"v1.3.0"}`, "1.2.0", "1.3.0"},
		{"same release", http.StatusOK, `{"tag_name":"v1.2.0"}`, "v1.2.0", ""},
		{"empty tag", http.StatusOK, `{"tag_name":""}`, "1.2.0", ""},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, "1.2.0", ""},
		{"garbage", http.StatusOK, `<html>`, "1.2.0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(context.Background(), releaseServer(t, tt.status, tt.body), tt.current)
			if tt.want == "" {
				require.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			require.Equal(t, tt.want, res.LatestVersion)
		})
	}
}
