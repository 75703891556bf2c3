package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pasarchat/pkg/logger"
)

// Manager tracks room membership and fans events out to connected clients.
// Join, Leave, RemoveClient and Publish are each atomic with respect to the
// others.
type Manager struct {
	rooms map[string]map[*Client]struct{}
	mutex sync.RWMutex
	now   func() time.Time
}

// NewManager returns a Manager with no rooms.
func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]map[*Client]struct{}),
		now:   time.Now,
	}
}

// Join subscribes the client to room. Joining twice is a no-op.
func (m *Manager) Join(room string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members, ok := m.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// Leave unsubscribes the client from room. Leaving a room it never joined
// is a no-op.
func (m *Manager) Leave(room string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.leaveLocked(room, client)
}

// RemoveClient drops every subscription the client holds.
func (m *Manager) RemoveClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for room := range client.rooms {
		m.leaveLocked(room, client)
	}
}

func (m *Manager) leaveLocked(room string, client *Client) {
	delete(client.rooms, room)
	members, ok := m.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
}

// RoomSize reports how many connections are subscribed to room.
func (m *Manager) RoomSize(room string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[room])
}

// InRoom reports whether the client is subscribed to room.
func (m *Manager) InRoom(room string, client *Client) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.rooms[room][client]
	return ok
}

// Publish delivers event to every connection in room. A room without
// subscribers is a silent no-op.
func (m *Manager) Publish(_ context.Context, room, event string, payload interface{}) error {
	data, err := json.Marshal(&WSMessage{
		Type:      event,
		Data:      payload,
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	m.broadcast(room, data, nil)
	return nil
}

// broadcast returns the number of clients the frame was queued for.
func (m *Manager) broadcast(room string, data []byte, except *Client) int {
	m.mutex.RLock()
	targets := make([]*Client, 0, len(m.rooms[room]))
	for client := range m.rooms[room] {
		if client != except {
			targets = append(targets, client)
		}
	}
	m.mutex.RUnlock()

	delivered := 0
	for _, client := range targets {
		if client.enqueue(data) {
			delivered++
		} else {
			logger.Warn("Dropping frame for client %s in room %s: send buffer full or closed", client.ID, room)
		}
	}
	return delivered
}
