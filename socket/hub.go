package socket

import (
	"encoding/json"
	"sync"
	"time"

	"studyhub/internal/cache"
	"studyhub/internal/coalesce"
	"studyhub/internal/document/model"
	"studyhub/pkg/logger"
)

const (
	TitleType          = "TITLE"           // Title keystrokes
	ContentType        = "CONTENT"         // Body content changes
	DocumentType       = "DOCUMENT"        // Full document snapshot on join
	PresenceUpdateType = "PRESENCE_UPDATE" // A user joined or left

	RoleWriter = "writer"
	RoleViewer = "viewer"
)

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// EditPayload carries the new value of a coalesced field.
type EditPayload struct {
	Value string `json:"value"`
}

type UserStatus struct {
	UserID   string    `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

// SessionStore resolves the document a session opens, with the caller's
// visibility applied.
type SessionStore interface {
	Get(userID, docID string) (*model.Document, error)
}

// Editor decides whether a user may mutate a document's fields.
type Editor interface {
	CanEdit(userID string, doc *model.Document) bool
}

// Hub tracks one room per open document. The first client in a room hydrates
// the session cache; edits flow through the coalescer so rapid keystrokes
// become a minimal ordered sequence of durable writes; the last client
// leaving flushes whatever is still inside the quiet window.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	docs      SessionStore
	authz     Editor
	cache     *cache.Cache
	coalescer *coalesce.Coalescer

	mu       sync.Mutex
	Presence map[string]map[string]UserStatus // docID -> userID -> status
}

func NewHub(docs SessionStore, authz Editor, sessionCache *cache.Cache, coalescer *coalesce.Coalescer) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		docs:       docs,
		authz:      authz,
		cache:      sessionCache,
		coalescer:  coalescer,
		Presence:   make(map[string]map[string]UserStatus),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
				h.Presence[client.DocID] = make(map[string]UserStatus)
				// First user in the room seeds the session cache.
				h.cache.UpsertOne(*client.doc)
			}
			h.Rooms[client.DocID][client] = true
			h.Presence[client.DocID][client.UserID] = UserStatus{UserID: client.UserID, LastSeen: time.Now()}

			current, ok := h.cache.Get(client.DocID)
			if !ok {
				current = *client.doc
			}
			h.mu.Unlock()

			// Send the full document state to the user who just joined.
			snapshot, _ := json.Marshal(current)
			initialMsg, _ := json.Marshal(WSMessage{Type: DocumentType, DocID: client.DocID, Payload: snapshot})
			client.Send <- initialMsg

			h.broadcastPresenceUpdate(client.DocID)

		case client := <-h.Unregister:
			h.mu.Lock()
			docID := client.DocID
			if _, ok := h.Rooms[client.DocID][client]; ok {
				delete(h.Rooms[client.DocID], client)
				delete(h.Presence[client.DocID], client.UserID)
				close(client.Send)

				if len(h.Rooms[client.DocID]) == 0 {
					// Edits still inside the quiet window must not be lost.
					h.coalescer.Flush(client.DocID)
					h.cache.Remove(client.DocID)
					delete(h.Rooms, client.DocID)
					delete(h.Presence, client.DocID)
					logger.Sugar.Infof("Closed and flushed empty room: %s", client.DocID)
				}
			}
			h.mu.Unlock()

			if h.Rooms[docID] != nil {
				h.broadcastPresenceUpdate(docID)
			}

		case msg := <-h.Broadcast:
			if field, ok := editField(msg.Type); ok {
				var edit EditPayload
				if err := json.Unmarshal(msg.Payload, &edit); err != nil {
					logger.Sugar.Errorf("Error unmarshalling edit payload: %v", err)
					continue
				}
				h.applyEdit(msg.DocID, field, edit.Value)
			}

			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.DocID]))
			for client := range h.Rooms[msg.DocID] {
				if client.UserID != msg.UserID { // Don't echo to the sender.
					clientsToSend = append(clientsToSend, client)
				}
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// A full send buffer means the client stopped reading.
					// Closing the connection makes its read pump unregister
					// it; sending to Unregister here would block the hub on
					// its own channel.
					logger.Sugar.Warnf("Client %s's send buffer is full. Closing connection.", client.UserID)
					client.Conn.Close()
				}
			}
		}
	}
}

// applyEdit patches the session cache optimistically and hands the value to
// the coalescer for a debounced durable write.
func (h *Hub) applyEdit(docID string, field coalesce.Field, value string) {
	patch := model.Patch{}
	switch field {
	case coalesce.FieldTitle:
		patch.Title = &value
	case coalesce.FieldContent:
		patch.Content = &value
	}
	h.cache.Patch(docID, patch)
	h.coalescer.Edit(docID, field, value)
}

func editField(msgType string) (coalesce.Field, bool) {
	switch msgType {
	case TitleType:
		return coalesce.FieldTitle, true
	case ContentType:
		return coalesce.FieldContent, true
	default:
		return "", false
	}
}

func (h *Hub) broadcastPresenceUpdate(docID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[docID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[docID]))
		for _, status := range h.Presence[docID] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[docID]))
		for client := range h.Rooms[docID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, DocID: docID, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			// Don't unregister here, just log. The main pumps handle
			// unresponsive clients.
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
