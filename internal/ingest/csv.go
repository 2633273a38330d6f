// Package ingest turns a CSV-shaped BI export into the message-event table
// every analytics component consumes.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// SchemaError reports required export columns missing from the header row.
// It is fatal for the department being processed.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04",
}

type columnIndex struct {
	conversation int
	sentTime     int
	sender       int
	messageType  int
	skill        int
	text         int
	messageID    int
	agentName    int
	customer     int
}

// ParseEvents reads a raw export. Header matching is case-insensitive and
// trimmed (the export carries a trailing space on "Agent Name"). Rows whose
// conversation id or timestamp cannot be used are skipped and reported back
// as row errors; a missing required column is a SchemaError.
func ParseEvents(r io.Reader) ([]models.MessageEvent, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols, schemaErr := mapColumns(header)
	if schemaErr != nil {
		return nil, nil, schemaErr
	}

	var events []models.MessageEvent
	var rowErrs []string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		convID := strings.TrimSpace(field(record, cols.conversation))
		if convID == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("line %d: empty conversation id", line))
			continue
		}
		sentTime, err := parseTime(field(record, cols.sentTime))
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		events = append(events, models.MessageEvent{
			ConversationID: convID,
			SentTime:       sentTime,
			Sender:         models.ParseSenderRole(field(record, cols.sender)),
			Type:           models.ParseMessageType(field(record, cols.messageType)),
			Skill:          strings.TrimSpace(field(record, cols.skill)),
			Text:           field(record, cols.text),
			MessageID:      strings.TrimSpace(field(record, cols.messageID)),
			AgentName:      strings.TrimSpace(field(record, cols.agentName)),
			CustomerName:   strings.TrimSpace(field(record, cols.customer)),
		})
	}
	return events, rowErrs, nil
}

func mapColumns(header []string) (columnIndex, error) {
	cols := columnIndex{
		conversation: -1, sentTime: -1, sender: -1, messageType: -1,
		skill: -1, text: -1, messageID: -1, agentName: -1, customer: -1,
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case "conversation id", "conversation_id":
			cols.conversation = i
		case "message sent time", "sent_time":
			cols.sentTime = i
		case "sent by", "sender":
			cols.sender = i
		case "message type", "message_type":
			cols.messageType = i
		case "skill":
			cols.skill = i
		case "text":
			cols.text = i
		case "message_id", "message id":
			cols.messageID = i
		case "agent name", "agent_name":
			cols.agentName = i
		case "customer name", "customer_name":
			cols.customer = i
		}
	}

	var missing []string
	if cols.conversation == -1 {
		missing = append(missing, "Conversation ID")
	}
	if cols.sentTime == -1 {
		missing = append(missing, "Message Sent Time")
	}
	if cols.sender == -1 {
		missing = append(missing, "Sent By")
	}
	if cols.messageType == -1 {
		missing = append(missing, "Message Type")
	}
	if len(missing) > 0 {
		return cols, &SchemaError{Missing: missing}
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseTime(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
