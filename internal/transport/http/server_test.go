package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServerAppliesEngineDefaults(t *testing.T) {
	server := NewServer(ServerConfig{Address: ":8080"}, http.NewServeMux())

	require.Equal(t, ":8080", server.Addr)
	require.Equal(t, defaultReadTimeout, server.ReadTimeout)
	require.Equal(t, defaultWriteTimeout, server.WriteTimeout)
	require.Equal(t, defaultIdleTimeout, server.IdleTimeout)
}

func TestNewServerKeepsExplicitTimeouts(t *testing.T) {
	server := NewServer(ServerConfig{
		Address:      ":9090",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  30 * time.Second,
	}, http.NewServeMux())

	require.Equal(t, 2*time.Second, server.ReadTimeout)
	require.Equal(t, 90*time.Second, server.WriteTimeout)
	require.Equal(t, 30*time.Second, server.IdleTimeout)
}
