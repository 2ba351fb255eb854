package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docctl-server/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func startManager(t *testing.T, opts Options) (*Manager, func()) {
	t.Helper()
	m := NewManager(opts, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()
	return m, func() {
		cancel()
		<-stopped
	}
}

func fakeClient(id, userID string, m *Manager) *Client {
	return NewClient(id, userID, nil, m)
}

func nextMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestPublishReachesEveryClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, stop := startManager(t, Options{})
	defer stop()

	a := fakeClient("a", "user-1", m)
	b := fakeClient("b", "user-2", m)
	require.True(t, m.Attach(a))
	require.True(t, m.Attach(b))
	require.Eventually(t, func() bool { return m.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	m.Publish(domain.EventFormIssued, domain.FormEvent{OriginalDocNo: "QP-01", DocVer: "1.1", By: "user-1"})

	for _, c := range []*Client{a, b} {
		msg := nextMessage(t, c)
		assert.Equal(t, TypeEvent, msg.Type)
		assert.Equal(t, domain.EventFormIssued, msg.Event)

		var ev domain.FormEvent
		require.NoError(t, msg.UnmarshalPayload(&ev))
		assert.Equal(t, "1.1", ev.DocVer)
	}
}

func TestConnectionCapPerUser(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, stop := startManager(t, Options{MaxConnPerUser: 1})
	defer stop()

	first := fakeClient("first", "user-1", m)
	second := fakeClient("second", "user-1", m)
	require.True(t, m.Attach(first))
	require.True(t, m.Attach(second))

	select {
	case _, ok := <-second.Send:
		assert.False(t, ok, "rejected client should be closed")
	case <-time.After(time.Second):
		t.Fatal("second client was not rejected")
	}
	assert.Equal(t, 1, m.GetUserConnections("user-1"))
}

func TestPingGetsPong(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, stop := startManager(t, Options{})
	defer stop()

	c := fakeClient("c", "user-1", m)
	require.True(t, m.Attach(c))
	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	m.receive(&ClientMessage{Client: c, Message: []byte(`{"type":"ping"}`)})
	assert.Equal(t, TypePong, nextMessage(t, c).Type)

	m.receive(&ClientMessage{Client: c, Message: []byte(`{"type":"subscribe"}`)})
	assert.Equal(t, TypeError, nextMessage(t, c).Type)

	m.receive(&ClientMessage{Client: c, Message: []byte(`not json`)})
	assert.Equal(t, TypeError, nextMessage(t, c).Type)
}

func TestStopClosesClientsAndUnblocksCallers(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, stop := startManager(t, Options{})
	c := fakeClient("c", "user-1", m)
	require.True(t, m.Attach(c))
	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	stop()

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, m.Attach(fakeClient("late", "user-2", m)))
	assert.NotPanics(t, func() { m.Publish(domain.EventFormDeleted, nil) })
}

func TestWebSocketRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, stop := startManager(t, Options{PongWait: 2 * time.Second, PingPeriod: time.Second})
	defer stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient("srv-1", "user-1", conn, m)
		if !m.Attach(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	m.Publish(domain.EventDocumentClaimed, domain.ClaimEvent{IDNos: []string{"B202406001"}, By: "user-1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, domain.EventDocumentClaimed, msg.Event)

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypePong, msg.Type)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.Eventually(t, func() bool { return m.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
