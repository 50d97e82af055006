package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"financas/internal/core"
)

// ChangeMessage announces that a user's collections changed. It carries no
// document data; consumers read the current state from the store.
type ChangeMessage struct {
	UserID      string            `json:"user_id"`
	Collections []core.Collection `json:"collections"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewChangeMessage(userID string, collections []core.Collection) *ChangeMessage {
	return &ChangeMessage{
		UserID:      userID,
		Collections: collections,
		Timestamp:   time.Now(),
	}
}

// Touches reports whether the change includes collection c.
func (m *ChangeMessage) Touches(c core.Collection) bool {
	for _, mc := range m.Collections {
		if mc == c {
			return true
		}
	}
	return false
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and sanity-checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("change message without user_id")
	}
	return &msg, nil
}
