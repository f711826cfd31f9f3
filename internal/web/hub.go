package web

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/interview"
	"github.com/blockedby/interview-os/internal/logger"
)

// Hub keeps the set of connected UI clients and fans committed changes out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	quit       chan struct{}
	stopOnce   sync.Once

	snapshot func() interface{}
	log      *zerolog.Logger
}

// NewHub creates a hub. Call Run to start dispatching.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		quit:       make(chan struct{}),
		log:        logger.Component("hub"),
	}
}

// SetLogger replaces the hub logger.
func (h *Hub) SetLogger(l *zerolog.Logger) {
	h.log = l
}

// SetSnapshot sets the source of the full session sent to every new client.
func (h *Hub) SetSnapshot(fn func() interface{}) {
	h.snapshot = fn
}

// Run dispatches registrations and messages until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.greet(client)
			h.log.Debug().Int("clients", len(h.clients)).Msg("client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug().Int("clients", len(h.clients)).Msg("client disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-h.quit:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Stop ends Run and disconnects all clients.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast encodes event and queues it for every client. It never blocks:
// when the queue is full the message is dropped and logged.
func (h *Hub) Broadcast(event interface{}) {
	message, err := Encode(event)
	if err != nil {
		h.log.Error().Err(err).Msg("encode event")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.Warn().Msg("broadcast queue full, dropping event")
	}
}

func (h *Hub) greet(client *Client) {
	if h.snapshot == nil {
		return
	}
	message, err := json.Marshal(WSEvent{Type: EventSessionSnapshot, Payload: h.snapshot()})
	if err != nil {
		h.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	select {
	case client.send <- message:
	default:
	}
}

// Encode wraps an engine event in the websocket envelope.
// Raw byte slices pass through unchanged.
func Encode(event interface{}) ([]byte, error) {
	switch ev := event.(type) {
	case []byte:
		return ev, nil
	case interview.Event:
		return json.Marshal(WSEvent{Type: ev.Type, Payload: ev})
	default:
		return json.Marshal(WSEvent{Type: EventMessage, Payload: ev})
	}
}
