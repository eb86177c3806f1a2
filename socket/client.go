package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"studyhub/internal/document/model"
	"studyhub/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows connections from the web client's dev server.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	DocID  string
	UserID string
	Send   chan []byte
	Role   string

	doc *model.Document
}

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		logger.Sugar.Error("Missing docId")
		conn.Close()
		return
	}

	// Resolve the document with the caller's visibility; an invisible or
	// missing document rejects the session.
	doc, err := hub.docs.Get(userID, docID)
	if err != nil {
		logger.Sugar.Warnf("Connection rejected for doc %s: %v", docID, err)
		conn.Close()
		return
	}

	role := RoleViewer
	if hub.authz.CanEdit(userID, doc) {
		role = RoleWriter
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		DocID:  docID,
		UserID: userID,
		Role:   role,
		Send:   make(chan []byte, 256),
		doc:    doc,
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Overwrite with server-authoritative values to prevent spoofing.
		msg.DocID = c.DocID
		msg.UserID = c.UserID

		switch msg.Type {
		case TitleType, ContentType:
			// Only the document's owner may edit its fields.
			if c.Role != RoleWriter {
				logger.Sugar.Warnf("Permission denied: user %s (role %s) tried to edit doc %s", c.UserID, c.Role, c.DocID)
				continue
			}
		}

		c.Hub.Broadcast <- msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Send ping every 30s
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Connection is dead
			}
		}
	}
}
