package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// WorkbookInput is everything the combined audit workbook carries for one
// department run.
type WorkbookInput struct {
	Department  string
	Date        string
	Repetitions analytics.RepetitionResult
	First       []models.ResponseLatencyRecord
	Subsequent  []models.ResponseLatencyRecord
	Segments    []models.ConversationSegment
	Summary     models.AuditResult
}

// WriteWorkbook writes one sheet per result table plus a summary sheet.
func WriteWorkbook(path string, in WorkbookInput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &SinkError{Path: path, Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Repetitions", repetitionHeader, repetitionRows(in.Repetitions)); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	if err := writeSheet(f, "First Response", latencyHeader, latencyRows(in.First)); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	if err := writeSheet(f, "Non initial Response", latencyHeader, latencyRows(in.Subsequent)); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	if err := writeSheet(f, "Transcripts", segmentHeader, segmentRows(in.Segments)); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	if err := writeSheet(f, "Summary", []string{"Metric", "Value"}, summaryRows(in)); err != nil {
		return &SinkError{Path: path, Err: err}
	}

	// Drop the default sheet so the workbook opens on Repetitions.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Repetitions"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return &SinkError{Path: path, Err: err}
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func repetitionRows(res analytics.RepetitionResult) [][]any {
	rows := make([][]any, 0, len(res.Records)+1)
	for _, r := range res.Records {
		rows = append(rows, []any{r.ConversationID, r.MessageID, r.Message, r.RepetitionCount, "", "", ""})
	}
	message := "NO REPETITIONS FOUND"
	if len(res.Records) > 0 {
		message = "TOTAL REPETITIONS"
	}
	rows = append(rows, []any{
		"SUMMARY", "", message, "",
		fmt.Sprintf("%.2f%%", res.Percentage), res.TotalChats, res.ChatsWithRepetitions,
	})
	return rows
}

func latencyRows(records []models.ResponseLatencyRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.ConversationID,
			r.SentTime.Format("2006-01-02 15:04:05"),
			r.Sender,
			r.Skill,
			r.LatencySeconds,
			r.MessageID,
		})
	}
	return rows
}

func segmentRows(segments []models.ConversationSegment) [][]any {
	rows := make([][]any, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []any{s.ConversationID, s.CustomerName, s.LastSkill, s.AgentName, s.Messages})
	}
	return rows
}

func summaryRows(in WorkbookInput) [][]any {
	d := in.Summary.Delays.Summary
	return [][]any{
		{"Department", in.Department},
		{"Analysis Date", in.Date},
		{"Total Conversations", in.Summary.Repetitions.TotalConversations},
		{"Chats With Repetitions", in.Repetitions.ChatsWithRepetitions},
		{"Repetition Percentage", fmt.Sprintf("%.2f%%", in.Repetitions.Percentage)},
		{"Agent Intervention %", d.AgentIntervention.Formatted},
		{"Bot Handling %", d.Handling.Formatted},
		{"First Response Avg (secs)", d.FirstResponse.AvgResponseTime},
		{"First Response Formatted", d.FirstResponse.AvgResponseTimeFormatted},
		{"Non initial Response Avg (secs)", d.SubsequentResponse.AvgResponseTime},
		{"Non initial Response Formatted", d.SubsequentResponse.AvgResponseTimeFormatted},
	}
}
