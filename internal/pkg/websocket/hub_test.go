package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func registerTestClient(t *testing.T, hub *Hub, accountID int64, role models.Role) *Client {
	t.Helper()
	c := newClient(hub, nil, accountID, role, "test", zerolog.Nop())
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ClientsCount(AccountRoom(accountID)) > 0 }, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToAccount(t *testing.T) {
	hub := startHub(t)
	applicant := registerTestClient(t, hub, 10, models.RoleApplicant)
	other := registerTestClient(t, hub, 11, models.RoleApplicant)

	require.NoError(t, hub.SendToAccount(10, Event{Type: EventApplicationAdmitted, Payload: map[string]int64{"applicationId": 3}}))

	ev := receive(t, applicant)
	assert.Equal(t, EventApplicationAdmitted, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
	assertNothing(t, other)
}

func TestSendToRolesDeliversOncePerClient(t *testing.T) {
	hub := startHub(t)
	registrar := registerTestClient(t, hub, 1, models.RoleRegistrar)
	admin := registerTestClient(t, hub, 2, models.RoleAdmin)
	student := registerTestClient(t, hub, 3, models.RoleStudent)

	require.NoError(t, hub.SendToRoles(Event{Type: EventApplicationSubmitted}, models.RoleRegistrar, models.RoleAdmin))

	assert.Equal(t, EventApplicationSubmitted, receive(t, registrar).Type)
	assert.Equal(t, EventApplicationSubmitted, receive(t, admin).Type)
	assertNothing(t, student)
	assertNothing(t, registrar)
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := startHub(t)
	c := registerTestClient(t, hub, 7, models.RoleFinance)
	assert.Equal(t, 1, hub.ClientsCount(RoleRoom(models.RoleFinance)))

	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.ClientsCount(RoleRoom(models.RoleFinance)) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}
