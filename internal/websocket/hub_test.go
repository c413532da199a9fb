package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/batch"
)

func newTestHub(t *testing.T) (*ProgressHub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewProgressHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/runs/:id", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/runs/" + runID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestProgressHubDeliversToRunSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "run-1")
	hello := readMessage(t, conn)
	assert.Equal(t, MessageConnected, hello.Type)
	assert.Equal(t, "run-1", hello.RunID)
	assert.Equal(t, 1, hub.Subscribers("run-1"))

	hub.Publish("other-run", MessageProgress, batch.Progress{RunID: "other-run", Total: 1})
	hub.Publish("run-1", MessageProgress, batch.Progress{RunID: "run-1", Total: 10, Completed: 3})

	msg := readMessage(t, conn)
	require.Equal(t, MessageProgress, msg.Type, "messages for other runs are not delivered")
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 10, data["total"])
	assert.EqualValues(t, 3, data["completed"])
}

func TestProgressHubForward(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "run-2")
	readMessage(t, conn)

	progress := make(chan batch.Progress, 2)
	progress <- batch.Progress{RunID: "run-2", Total: 2, Completed: 1}
	progress <- batch.Progress{RunID: "run-2", Total: 2, Completed: 2}
	close(progress)
	hub.Forward("run-2", progress)
	hub.Publish("run-2", MessageCompleted, map[string]string{"run_id": "run-2"})

	types := []string{readMessage(t, conn).Type, readMessage(t, conn).Type, readMessage(t, conn).Type}
	assert.Equal(t, []string{MessageProgress, MessageProgress, MessageCompleted}, types)
}

func TestProgressHubUnregistersClosedClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "run-3")
	readMessage(t, conn)
	require.Equal(t, 1, hub.GetConnectionCount())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
