// Package export writes analysis results to flat files: one CSV per result
// table plus a combined spreadsheet workbook. Sink failures are reported, not
// fatal; the caller still returns the in-memory result.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// SinkError wraps a failed file write. Callers log it and flag the response
// as not uploaded.
type SinkError struct {
	Path string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("export %s: %v", e.Path, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }

var repetitionHeader = []string{
	"conversation_id", "message_id", "message", "repetition_count",
	"percentage_with_repetitions", "total_chats", "chats_with_repetitions",
}

// WriteRepetitionsCSV writes the repetition records followed by a summary
// row. With no records the file holds just the summary.
func WriteRepetitionsCSV(path string, res analytics.RepetitionResult) error {
	rows := make([][]string, 0, len(res.Records)+1)
	for _, r := range res.Records {
		rows = append(rows, []string{
			r.ConversationID, r.MessageID, r.Message,
			strconv.Itoa(r.RepetitionCount), "", "", "",
		})
	}
	message := "NO REPETITIONS FOUND"
	if len(res.Records) > 0 {
		message = "TOTAL REPETITIONS"
	}
	rows = append(rows, []string{
		"SUMMARY", "", message, "",
		fmt.Sprintf("%.2f%%", res.Percentage),
		strconv.Itoa(res.TotalChats),
		strconv.Itoa(res.ChatsWithRepetitions),
	})
	return writeCSV(path, repetitionHeader, rows)
}

var latencyHeader = []string{
	"Conversation Id", "Message Sent Time", "Sender", "Skill",
	"Response Time (secs)", "Message Id",
}

// WriteLatencyCSV writes one latency table. Rows above the four-minute
// threshold are dropped from the body but still feed the trailing average
// row's count; the average itself covers the under-threshold rows only.
func WriteLatencyCSV(path string, records []models.ResponseLatencyRecord, responseType string) error {
	if len(records) == 0 {
		return writeCSV(path, latencyHeader, nil)
	}
	stats := analytics.SummarizeLatencies(records)
	rows := make([][]string, 0, len(records)+1)
	for _, r := range records {
		if r.LatencySeconds > 240 {
			continue
		}
		rows = append(rows, []string{
			r.ConversationID,
			r.SentTime.Format("2006-01-02 15:04:05"),
			r.Sender,
			r.Skill,
			strconv.FormatFloat(r.LatencySeconds, 'f', -1, 64),
			r.MessageID,
		})
	}
	rows = append(rows, []string{
		fmt.Sprintf("AVERAGE (%s)", responseType),
		fmt.Sprintf("Avg: %.1f min", stats.AvgResponseTime/60),
		"AVERAGE",
		modalSkill(records),
		strconv.FormatFloat(stats.AvgResponseTime, 'f', 2, 64),
		fmt.Sprintf("Count: %d", len(records)),
	})
	return writeCSV(path, latencyHeader, rows)
}

var eventHeader = []string{
	"Conversation Id", "Message Sent Time", "Sent By", "Message Type",
	"Skill", "TEXT", "Message Id", "Agent Name", "Customer Name",
}

// WriteEventsCSV saves the normalized table as a re-ingestable snapshot.
func WriteEventsCSV(path string, events []models.MessageEvent) error {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.ConversationID,
			ev.SentTime.Format("2006-01-02 15:04:05"),
			string(ev.Sender),
			string(ev.Type),
			ev.Skill,
			ev.Text,
			ev.MessageID,
			ev.AgentName,
			ev.CustomerName,
		})
	}
	return writeCSV(path, eventHeader, rows)
}

var segmentHeader = []string{"Conversation Id", "Customer Name", "Last Skill", "Agent Name", "Messages"}

// WriteSegmentsCSV writes the assembled transcripts table.
func WriteSegmentsCSV(path string, segments []models.ConversationSegment) error {
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []string{s.ConversationID, s.CustomerName, s.LastSkill, s.AgentName, s.Messages})
	}
	return writeCSV(path, segmentHeader, rows)
}

// modalSkill returns the most frequent skill, ties broken alphabetically.
func modalSkill(records []models.ResponseLatencyRecord) string {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		counts[r.Skill]++
	}
	best := "AVERAGE"
	bestCount := 0
	skills := make([]string, 0, len(counts))
	for s := range counts {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	for _, s := range skills {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &SinkError{Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return &SinkError{Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	return nil
}
