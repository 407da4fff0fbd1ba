package service

import (
	"encoding/json"
	"fmt"
	"time"

	ws "backend/internal/websocket"

	"github.com/google/uuid"
)

// parseActorID converts the authenticated user id to a nullable uuid for
// audit rows. Automated callers pass an empty string.
func parseActorID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}

// formatDocNo builds a sequential document number like SO-202608-0007.
// Callers hold the advisory lock for the prefix before counting.
func formatDocNo(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("200601"), seq)
}

// docNoPrefix is the LIKE prefix covering the current period.
func docNoPrefix(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, at.Format("200601"))
}

// StockEvent is the websocket payload pushed after any stock movement.
type StockEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// broadcast pushes a stock event to connected clients. Best effort; callers
// invoke it after their transaction committed.
func broadcast(hub *ws.Hub, event string, data map[string]interface{}) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	hub.Broadcast <- payload
}
