package crudclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/errs"
)

func TestGetProjectDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/proj-1", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Project{ID: "proj-1", Name: "hello-world-bot", Status: "draft"})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	p, err := c.GetProject(t.Context(), "proj-1")
	require.NoError(t, err)
	require.Equal(t, "hello-world-bot", p.Name)
}

func TestAllocatePortSurfacesConflictAsUserActionable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	_, err := c.AllocatePort(t.Context(), "srv-1", "proj-1", 8080)
	require.Error(t, err)
	require.Equal(t, errs.KindUserActionable, errs.KindOf(err))
}

func TestServerErrorSurfacesAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	_, err := c.ListServers(t.Context())
	require.Error(t, err)
	require.Equal(t, errs.KindTransient, errs.KindOf(err))
}
