package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/signaling"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	hub := signaling.NewHub(signaling.Options{
		Lobbies: []config.Lobby{{ID: "l1", DisplayName: "Daily"}},
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(hub, logger))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg protocol.ClientMessage) {
	t.Helper()
	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// next reads frames until one of type T arrives.
func next[T protocol.ServerMessage](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.DecodeServer(data)
		require.NoError(t, err)
		if m, ok := msg.(T); ok {
			return m
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestSnapshots(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var lobbies protocol.Lobbies
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lobbies))
	require.Len(t, lobbies.Lobbies, 1)
	assert.Equal(t, "l1", lobbies.Lobbies[0].ID)
	assert.Equal(t, 0, lobbies.Lobbies[0].Count)

	resp2, err := http.Get(srv.URL + "/api/meetings")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	assert.JSONEq(t, `{"meetings":[]}`, string(body))
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	aliceID := next[protocol.Welcome](t, alice).ClientID
	bob := dial(t, srv)
	bobID := next[protocol.Welcome](t, bob).ClientID
	require.NotEqual(t, aliceID, bobID)

	send(t, alice, protocol.JoinLobby{LobbyID: "l1"})
	next[protocol.LobbyState](t, alice)
	send(t, bob, protocol.JoinLobby{LobbyID: "l1"})

	state := next[protocol.LobbyState](t, bob)
	ids := []string{state.Members[0].ID, state.Members[1].ID}
	assert.ElementsMatch(t, []string{aliceID, bobID}, ids)

	payload := json.RawMessage(`{"sdp":{"type":"offer","sdp":"v=0"}}`)
	send(t, alice, protocol.Signal{TargetID: bobID, Payload: payload})
	sig := next[protocol.SignalEvent](t, bob)
	assert.Equal(t, aliceID, sig.From)
	assert.JSONEq(t, string(payload), string(sig.Payload))

	resp, err := http.Get(srv.URL + "/api/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	var lobbies protocol.Lobbies
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lobbies))
	assert.Equal(t, 2, lobbies.Lobbies[0].Count)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
