package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConn returns the server side of a live websocket and the dialed client side.
func serverConn(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-conns:
		return ws, client
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
		return nil, nil
	}
}

func TestWsSignalConn_TrySendBackpressure(t *testing.T) {
	ws, _ := serverConn(t)
	c := newWsSignalConn(ws, 2)
	defer c.Close()

	require.NoError(t, c.TrySend([]byte("a")))
	require.NoError(t, c.TrySend([]byte("b")))
	assert.ErrorIs(t, c.TrySend([]byte("c")), ErrBackpressure)

	assert.Equal(t, "a", string(<-c.send))
	require.NoError(t, c.TrySend([]byte("c")))
}

func TestWsSignalConn_CloseIsIdempotent(t *testing.T) {
	ws, client := serverConn(t)
	c := newWsSignalConn(ws, 1)

	c.Close()
	c.Close()

	assert.ErrorIs(t, c.TrySend([]byte("late")), ErrConnClosed)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker(nil)
	assert.True(t, open(req("https://evil.example")))

	wildcard := originChecker([]string{"*"})
	assert.True(t, wildcard(req("https://evil.example")))

	strict := originChecker([]string{"https://chat.example"})
	assert.True(t, strict(req("https://chat.example")))
	assert.True(t, strict(req("")), "non-browser clients send no origin")
	assert.False(t, strict(req("https://evil.example")))
}

func TestNewSignalWSController_DefaultsSendBuffer(t *testing.T) {
	ctl := NewSignalWSController(nil, Options{})
	assert.Equal(t, DefaultOptions().SendBuffer, ctl.opts.SendBuffer)
}
