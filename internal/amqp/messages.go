package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/notify"
)

// ReportEmailMessage carries a fully rendered-ready report payload so the
// mailer worker needs no database access.
type ReportEmailMessage struct {
	ID           string              `json:"id"`
	Notification notify.Notification `json:"notification"`
	Timestamp    time.Time           `json:"timestamp"`
}

func NewReportEmailMessage(n notify.Notification) *ReportEmailMessage {
	return &ReportEmailMessage{
		ID:           uuid.NewString(),
		Notification: n,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *ReportEmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportEmailMessageFromJSON(data []byte) (*ReportEmailMessage, error) {
	var msg ReportEmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
