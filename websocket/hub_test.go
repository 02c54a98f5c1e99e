package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"libris/logger"
	"libris/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func registered(t *testing.T, hub *Hub, userID string, buffer int) *Client {
	t.Helper()
	client := newClient(hub, nil, userID, buffer, userID, models.MainGroup)
	require.NoError(t, hub.Register(client))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[client]
		return ok
	}, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case frame := <-client.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", client.userID)
		return Envelope{}
	}
}

func requireSilent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case frame := <-client.send:
		t.Fatalf("client %s unexpectedly received %s", client.userID, frame)
	default:
	}
}

func TestHub_PublishReachesOnlyRoomMembers(t *testing.T) {
	req := require.New(t)
	hub, _ := startHub(t)

	alice := registered(t, hub, "alice", 4)
	bob := registered(t, hub, "bob", 4)

	req.NoError(hub.Publish("bob", "new_message", map[string]string{"text": "hi"}))

	env := receive(t, bob)
	req.Equal("new_message", env.Type)
	req.Equal(map[string]any{"text": "hi"}, env.Payload)
	requireSilent(t, alice)
}

func TestHub_GroupRoomReachesEveryone(t *testing.T) {
	req := require.New(t)
	hub, _ := startHub(t)

	alice := registered(t, hub, "alice", 4)
	bob := registered(t, hub, "bob", 4)
	req.Equal(2, hub.RoomSize(models.MainGroup))

	req.NoError(hub.Publish(models.MainGroup, "new_message", "hello team"))

	req.Equal("hello team", receive(t, alice).Payload)
	req.Equal("hello team", receive(t, bob).Payload)
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	hub, _ := startHub(t)
	require.NoError(t, hub.Publish("nobody", "new_message", nil))
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	req := require.New(t)
	hub, _ := startHub(t)

	slow := registered(t, hub, "slow", 1)
	req.NoError(hub.Publish("slow", "new_message", 1))
	req.NoError(hub.Publish("slow", "new_message", 2))

	req.Equal(float64(1), receive(t, slow).Payload)
	requireSilent(t, slow)
}

func TestHub_JoinAddsRoom(t *testing.T) {
	req := require.New(t)
	hub, _ := startHub(t)

	client := registered(t, hub, "alice", 4)
	hub.Join(client, "reading-club")
	req.Equal(1, hub.RoomSize("reading-club"))

	req.NoError(hub.Publish("reading-club", "new_message", "chapter 3"))
	req.Equal("chapter 3", receive(t, client).Payload)
}

func TestHub_UnregisterLeavesRooms(t *testing.T) {
	req := require.New(t)
	hub, _ := startHub(t)

	client := registered(t, hub, "alice", 4)
	hub.Unregister(client)

	req.Eventually(func() bool { return hub.ConnectedClients() == 0 }, time.Second, 5*time.Millisecond)
	req.Zero(hub.RoomSize("alice"))
	req.Zero(hub.RoomSize(models.MainGroup))

	_, open := <-client.send
	req.False(open)
	req.NoError(hub.Publish("alice", "new_message", "late"))
}

func TestHub_ClosedAfterRun(t *testing.T) {
	req := require.New(t)
	hub, cancel := startHub(t)

	client := registered(t, hub, "alice", 4)
	cancel()

	req.Eventually(func() bool {
		return hub.Publish("alice", "new_message", nil) == ErrHubClosed
	}, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	req.False(open)
	req.ErrorIs(hub.Register(newClient(hub, nil, "bob", 1, "bob")), ErrHubClosed)
	hub.Unregister(client)
}
