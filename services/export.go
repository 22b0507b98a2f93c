package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/models"
)

// Supported export formats for chat session downloads.
const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "excel"
)

// SessionExport is the JSON layout of an exported chat session.
type SessionExport struct {
	ExportedAt   time.Time            `json:"exported_at"`
	SessionID    string               `json:"session_id"`
	SessionName  string               `json:"session_name"`
	MessageCount int                  `json:"message_count"`
	CreatedAt    time.Time            `json:"created_at"`
	Messages     []models.ChatMessage `json:"messages"`
}

// ExportFile is a rendered export ready to be written to the response.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a user's chat session as a downloadable file.
// Ownership checks happen in the store queries, so a session id that
// belongs to another user simply comes back as not found.
type ExportService struct {
	store *database.Store
}

func NewExportService(store *database.Store) *ExportService {
	return &ExportService{store: store}
}

// ExportSession renders the session in the requested format. Returns
// (nil, nil) when the session does not exist for this user.
func (es *ExportService) ExportSession(ctx context.Context, sessionID, userID, format string) (*ExportFile, error) {
	session, err := es.store.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	messages, err := es.store.GetMessages(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	export := &SessionExport{
		ExportedAt:   time.Now(),
		SessionID:    session.ID,
		SessionName:  session.SessionName,
		MessageCount: len(messages),
		CreatedAt:    session.CreatedAt,
		Messages:     messages,
	}

	switch format {
	case ExportFormatExcel:
		return es.exportExcel(export)
	case ExportFormatJSON, "":
		return es.exportJSON(export)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func (es *ExportService) exportJSON(export *SessionExport) (*ExportFile, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %v", err)
	}

	return &ExportFile{
		Filename:    exportFilename(export.SessionID, "json"),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func (es *ExportService) exportExcel(export *SessionExport) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Messages"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Role", "Content", "Processing Time (ms)", "Created At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, msg := range export.Messages {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), msg.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), msg.Role)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), msg.Content)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), msg.ProcessingTimeMS)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), msg.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	infoSheet := "Session"
	if _, err := f.NewSheet(infoSheet); err != nil {
		return nil, fmt.Errorf("failed to create info sheet: %v", err)
	}

	info := [][]interface{}{
		{"Session ID", export.SessionID},
		{"Session Name", export.SessionName},
		{"Message Count", export.MessageCount},
		{"Created At", export.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Exported At", export.ExportedAt.Format("2006-01-02 15:04:05")},
	}
	for i, pair := range info {
		row := i + 1
		f.SetCellValue(infoSheet, fmt.Sprintf("A%d", row), pair[0])
		f.SetCellValue(infoSheet, fmt.Sprintf("B%d", row), pair[1])
	}

	f.SetColWidth(sheetName, "C", "C", 80)
	f.SetColWidth(sheetName, "E", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %v", err)
	}

	return &ExportFile{
		Filename:    exportFilename(export.SessionID, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func exportFilename(sessionID, ext string) string {
	return fmt.Sprintf("chat_%s_%s.%s", sessionID, time.Now().Format("20060102"), ext)
}
