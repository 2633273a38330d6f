package analytics

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

func latEv(conv string, offset int, sender models.SenderRole, typ models.MessageType, skill, id, agent string) models.MessageEvent {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.MessageEvent{
		ConversationID: conv,
		SentTime:       base.Add(time.Duration(offset) * time.Second),
		Sender:         sender,
		Type:           typ,
		Skill:          skill,
		MessageID:      id,
		AgentName:      agent,
	}
}

func runScan(t *testing.T, events []models.MessageEvent, policy ResponsePolicy) []models.ResponseLatencyRecord {
	t.Helper()
	convs := Conversations(Normalize(events))
	return ResponseLatencies(convs, nil, policy, zerolog.Nop())
}

func TestFirstResponseLatency(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 5, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m2", ""),
		latEv("c1", 10, models.SenderConsumer, models.TypeNormalMessage, "", "m3", ""),
		latEv("c1", 30, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m4", ""),
	}
	records := runScan(t, events, FirstResponse)
	if len(records) != 1 {
		t.Fatalf("expected one first response, got %d", len(records))
	}
	rec := records[0]
	if rec.LatencySeconds != 5 || rec.MessageID != "m2" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Sender != "BOT_gpt_doctors" {
		t.Fatalf("unexpected sender label: %s", rec.Sender)
	}
}

func TestSubsequentResponseConsumesFirst(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 5, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m2", ""),
		latEv("c1", 10, models.SenderConsumer, models.TypeNormalMessage, "", "m3", ""),
		latEv("c1", 15, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m4", ""),
	}
	records := runScan(t, events, SubsequentResponse)
	if len(records) != 1 {
		t.Fatalf("expected one subsequent response, got %d", len(records))
	}
	rec := records[0]
	// The 5s first response is consumed silently; the second measures
	// against the fresh consumer anchor.
	if rec.LatencySeconds != 5 || rec.MessageID != "m4" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestTransferResetsAnchor(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 60, models.SenderSystem, models.TypeTransfer, "", "m2", ""),
		latEv("c1", 70, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m3", ""),
	}
	records := runScan(t, events, FirstResponse)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	// Measured from the transfer, not the original consumer message.
	if records[0].LatencySeconds != 10 {
		t.Fatalf("expected 10s after transfer reset, got %v", records[0].LatencySeconds)
	}
}

func TestPrivateSystemMessageResetsAnchor(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 30, models.SenderSystem, models.TypePrivateMessage, "", "m2", ""),
		latEv("c1", 45, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m3", ""),
	}
	records := runScan(t, events, FirstResponse)
	if len(records) != 1 || records[0].LatencySeconds != 15 {
		t.Fatalf("expected a 15s record, got %+v", records)
	}
}

func TestAgentFirstResponderEmitsNothing(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 5, models.SenderAgent, models.TypeNormalMessage, "", "m2", "Sam Agent"),
		latEv("c1", 10, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m3", ""),
	}
	records := runScan(t, events, FirstResponse)
	// The agent response does not settle the conversation; the bot response
	// against the original anchor does.
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].MessageID != "m3" || records[0].LatencySeconds != 10 {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestResponseLatenciesSortedDescending(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 5, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m2", ""),
		latEv("c2", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m3", ""),
		latEv("c2", 90, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m4", ""),
	}
	records := runScan(t, events, FirstResponse)
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if records[0].LatencySeconds != 90 || records[1].LatencySeconds != 5 {
		t.Fatalf("not sorted descending: %+v", records)
	}
}

func TestResponseLatenciesKeywordFilter(t *testing.T) {
	events := []models.MessageEvent{
		latEv("c1", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m1", ""),
		latEv("c1", 5, models.SenderBot, models.TypeNormalMessage, "GPT_Doctors", "m2", ""),
		latEv("c2", 0, models.SenderConsumer, models.TypeNormalMessage, "", "m3", ""),
		latEv("c2", 8, models.SenderBot, models.TypeNormalMessage, "gpt_sales", "m4", ""),
	}
	convs := Conversations(Normalize(events))
	records := ResponseLatencies(convs, []string{"GPT_Doctors"}, FirstResponse, zerolog.Nop())
	if len(records) != 1 {
		t.Fatalf("expected one filtered record, got %d", len(records))
	}
	if records[0].MessageID != "m2" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestNegativeLatencyRetained(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	scan := scanState{anchorSet: true, anchor: base.Add(30 * time.Second)}
	rec := scan.buildRecord(models.MessageEvent{
		SentTime:  base.Add(10 * time.Second),
		Sender:    models.SenderBot,
		Skill:     "GPT_Doctors",
		MessageID: "m2",
	})
	if rec.LatencySeconds != -20 {
		t.Fatalf("expected -20s retained, got %v", rec.LatencySeconds)
	}
}
