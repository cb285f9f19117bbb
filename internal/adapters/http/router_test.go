package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:           "test",
		Port:           8080,
		Secret:         "test-secret",
		ReadLimit:      4096,
		SendBuffer:     16,
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		PingPeriod:     30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})
	srv := httptest.NewServer(SetupRouter(ctx, testConfig(), o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func next(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	return string(data)
}

// expectSilence must be the last read on conn: a timed-out read leaves the
// gorilla reader broken.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %q", data)
}

func joinFrame(room, name string) string {
	return `{"type":"join","payload":{"roomId":"` + room + `","name":"` + name + `"}}`
}

func chatFrame(room, text, name string) string {
	return `{"type":"chat","payload":{"roomId":"` + room + `","chat":"` + text + `","name":"` + name + `"}}`
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestRelay_Scenario(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/")
	b := dial(t, srv, "/")

	send(t, a, joinFrame("ALPHA-1", "Alice"))
	assert.Equal(t, protocol.JoinConfirmation, next(t, a))
	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, a))

	send(t, b, joinFrame("ALPHA-1", "Bob"))
	assert.Equal(t, protocol.JoinConfirmation, next(t, b))
	assert.JSONEq(t, `{"type":"update_users","count":2}`, next(t, b))
	assert.JSONEq(t, `{"type":"update_users","count":2}`, next(t, a))

	send(t, a, chatFrame("ALPHA-1", "hi", "Alice"))
	assert.JSONEq(t, `{"sender":"me","name":"Alice","text":"hi"}`, next(t, a))
	assert.JSONEq(t, `{"sender":"them","name":"Alice","text":"hi"}`, next(t, b))

	require.NoError(t, b.Close())
	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, a))
	_, ok := o.Rooms.Get("ALPHA-1")
	assert.True(t, ok)

	require.NoError(t, a.Close())
	waitFor(t, func() bool {
		_, ok := o.Rooms.Get("ALPHA-1")
		return !ok
	})
	waitFor(t, func() bool { return o.Registry.Len() == 0 })
}

func TestRelay_MalformedFramesAreDropped(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/api/ws/signal")

	send(t, a, `{"type":"join","payload":{"name":"Alice"}}`)
	send(t, a, `not json`)
	send(t, a, `{"type":"wave"}`)
	send(t, a, `{"type":"chat","payload":{"roomId":"r","chat":"hi"}}`)

	// The first frame back must answer the valid join.
	send(t, a, joinFrame("r", "Alice"))
	assert.Equal(t, protocol.JoinConfirmation, next(t, a))
	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, a))
	assert.Equal(t, 1, o.Rooms.Len())
}

func TestRelay_ChatBeforeJoinIsDropped(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/")

	send(t, a, chatFrame("r", "early", "Alice"))
	expectSilence(t, a)
	assert.Equal(t, 0, o.Rooms.Len())
}

func TestRelay_RoomSwitch(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/")
	b := dial(t, srv, "/")

	send(t, a, joinFrame("one", "Alice"))
	next(t, a)
	next(t, a)
	send(t, b, joinFrame("one", "Bob"))
	next(t, b)
	next(t, b)
	next(t, a)

	send(t, a, joinFrame("two", "Alice"))
	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, b))
	assert.Equal(t, protocol.JoinConfirmation, next(t, a))
	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, a))

	one, ok := o.Rooms.Get("one")
	require.True(t, ok)
	assert.Equal(t, 1, one.MemberCount())
	two, ok := o.Rooms.Get(domain.RoomID("two"))
	require.True(t, ok)
	assert.Equal(t, 1, two.MemberCount())
}

func TestRelay_RoomsAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv, "/")
	send(t, a, joinFrame("ALPHA-1", "Alice"))
	next(t, a)
	next(t, a)

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Rooms []struct {
			ID          string `json:"id"`
			MemberCount int    `json:"member_count"`
		} `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, "ALPHA-1", body.Rooms[0].ID)
	assert.Equal(t, 1, body.Rooms[0].MemberCount)

	resp2, err := http.Get(srv.URL + "/api/rooms/ALPHA-1")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestRelay_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelay_RootWithoutUpgrade(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"), "client token session cookie")
}

func TestRelay_ShutdownClosesSessions(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/")
	send(t, a, joinFrame("r", "Alice"))
	next(t, a)
	next(t, a)

	o.Shutdown()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)
	waitFor(t, func() bool { return o.Rooms.Len() == 0 && o.Registry.Len() == 0 })
}

func TestRelay_RoomMembers(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv, "/")
	send(t, a, joinFrame("r", "  Alice  "))
	next(t, a)
	next(t, a)

	resp, err := http.Get(srv.URL + "/api/rooms/r/members")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body MembersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.RoomID("r"), body.ID)
	require.Len(t, body.Members, 1)
	assert.Equal(t, "Alice", body.Members[0].Name)
	assert.NotEmpty(t, body.Members[0].SID)

	resp2, err := http.Get(srv.URL + "/api/rooms/nope/members")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestRelay_ChatWithoutNameIsDropped(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv, "/")
	send(t, a, joinFrame("r", "Alice"))
	next(t, a)
	next(t, a)

	send(t, a, `{"type":"chat","payload":{"roomId":"r","chat":"nameless"}}`)
	send(t, a, chatFrame("r", "named", "Alice"))
	assert.JSONEq(t, `{"sender":"me","name":"Alice","text":"named"}`, next(t, a))
}

func TestRelay_OversizeFrameDisconnectsSender(t *testing.T) {
	srv, o := newTestServer(t)
	a := dial(t, srv, "/")
	b := dial(t, srv, "/")
	send(t, a, joinFrame("r", "Alice"))
	next(t, a)
	next(t, a)
	send(t, b, joinFrame("r", "Bob"))
	next(t, b)
	next(t, b)
	next(t, a)

	big := strings.Repeat("x", int(testConfig().ReadLimit)+1)
	send(t, b, chatFrame("r", big, "Bob"))

	assert.JSONEq(t, `{"type":"update_users","count":1}`, next(t, a))
	room, ok := o.Rooms.Get("r")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}
