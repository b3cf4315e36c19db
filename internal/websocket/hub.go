package websocket

import "github.com/rs/zerolog/log"

type notification struct {
	userID  int
	message []byte
}

// Hub maintains the set of active clients and delivers task notifications to
// the connections of the owning user.
type Hub struct {
	// Registered clients, grouped by user ID.
	subscriptions map[int]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	notify chan notification
	done   chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		notify:        make(chan notification, 64),
		done:          make(chan struct{}),
		subscriptions: make(map[int]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for _, subs := range h.subscriptions {
				for client := range subs {
					close(client.Send)
				}
			}
			h.subscriptions = make(map[int]map[*Client]bool)
			return
		case client := <-h.Register:
			if h.subscriptions[client.UserID] == nil {
				h.subscriptions[client.UserID] = make(map[*Client]bool)
			}
			h.subscriptions[client.UserID][client] = true
			log.Info().Int("user_id", client.UserID).Str("client_id", client.ID).Int("total_clients", h.count()).Msg("Client connected")
		case client := <-h.Unregister:
			if subs, ok := h.subscriptions[client.UserID]; ok && subs[client] {
				h.remove(client)
				log.Info().Int("user_id", client.UserID).Str("client_id", client.ID).Int("total_clients", h.count()).Msg("Client disconnected")
			}
		case n := <-h.notify:
			for client := range h.subscriptions[n.userID] {
				select {
				case client.Send <- n.message:
				default:
					// Slow consumer; drop it rather than block the hub.
					h.remove(client)
				}
			}
		}
	}
}

// Join registers a client. It is a no-op once the hub is stopped.
func (h *Hub) Join(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
	}
}

// Leave unregisters a client. It is a no-op once the hub is stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastTo queues a message for every connection of userID. It never
// blocks; messages are dropped when the queue is full or the hub is stopped.
func (h *Hub) BroadcastTo(userID int, message []byte) {
	if message == nil {
		return
	}
	select {
	case <-h.done:
	case h.notify <- notification{userID: userID, message: message}:
	default:
		log.Warn().Int("user_id", userID).Msg("Notification queue full, dropping message")
	}
}

func (h *Hub) remove(client *Client) {
	subs := h.subscriptions[client.UserID]
	delete(subs, client)
	close(client.Send)
	if len(subs) == 0 {
		delete(h.subscriptions, client.UserID)
	}
}

func (h *Hub) count() int {
	n := 0
	for _, subs := range h.subscriptions {
		n += len(subs)
	}
	return n
}
