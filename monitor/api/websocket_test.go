package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsTestServer(hub *WSHub) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(upgrader, w, r)
	}))
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestServeWSRefusesWhenHubNotRunning(t *testing.T) {
	hub := NewWSHub(quietLog())
	srv := wsTestServer(hub)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	// The handler must close the connection instead of parking it on an
	// unserviced registration channel.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestServeWSRefusesAfterHubShutdown(t *testing.T) {
	hub := NewWSHub(quietLog())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := wsTestServer(hub)
	defer srv.Close()

	cancel()
	<-hub.done

	conn := dialWS(t, srv)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubBroadcastsToConnectedClient(t *testing.T) {
	hub := NewWSHub(quietLog())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := wsTestServer(hub)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	// Registration races the broadcast; retry until the client is seen.
	deadline := time.Now().Add(2 * time.Second)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for time.Now().Before(deadline) {
			hub.RollupRefreshed(time.Now())
			time.Sleep(10 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(deadline)
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), string(WSMessageTypeRollupRefreshed))
	<-done
}
