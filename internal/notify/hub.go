package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Event types fanned out to bracket subscribers.
const (
	EventBracketGenerated    = "bracket_generated"
	EventMatchCompleted      = "match_completed"
	EventTournamentCompleted = "tournament_completed"
	EventTournamentCancelled = "tournament_cancelled"
	EventBracketReset        = "bracket_reset"
)

type Event struct {
	Type         string    `json:"type"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Payload      any       `json:"payload,omitempty"`
}

// Hub routes bracket events to websocket clients subscribed to a tournament.
// Room state is owned by the Run goroutine; all access goes through channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan Event
	rooms      map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			slog.Debug("client subscribed", "room", client.room, "clients", len(h.rooms[client.room]))

		case client := <-h.unregister:
			if clients, ok := h.rooms[client.room]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}

		case event := <-h.events:
			message, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to marshal event", "type", event.Type, "error", err)
				continue
			}
			room := event.TournamentID.String()
			for client := range h.rooms[room] {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.rooms[room], client)
					close(client.send)
				}
			}
		}
	}
}

// Publish queues an event for delivery. It never blocks the caller; if the hub
// is saturated the event is dropped, which is acceptable for display traffic.
func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	default:
		slog.Warn("event dropped, hub saturated", "type", event.Type, "tournament_id", event.TournamentID)
	}
}
