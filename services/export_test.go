package services

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"maternal-care-platform/models"
)

func sampleExport() *SessionExport {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &SessionExport{
		ExportedAt:   time.Now(),
		SessionID:    "11111111-2222-3333-4444-555555555555",
		SessionName:  "Week 20 questions",
		MessageCount: 2,
		CreatedAt:    created,
		Messages: []models.ChatMessage{
			{ID: 1, Role: "user", Content: "Is swimming safe?", CreatedAt: created},
			{ID: 2, Role: "assistant", Content: "Swimming is generally safe during pregnancy.", ProcessingTimeMS: 850, CreatedAt: created.Add(time.Second)},
		},
	}
}

func TestExportJSON(t *testing.T) {
	es := NewExportService(nil)

	file, err := es.exportJSON(sampleExport())
	require.NoError(t, err)

	assert.Equal(t, "application/json", file.ContentType)
	assert.Contains(t, file.Filename, ".json")

	var decoded SessionExport
	require.NoError(t, json.Unmarshal(file.Data, &decoded))
	assert.Equal(t, "Week 20 questions", decoded.SessionName)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, "assistant", decoded.Messages[1].Role)
}

func TestExportExcel(t *testing.T) {
	es := NewExportService(nil)

	file, err := es.exportExcel(sampleExport())
	require.NoError(t, err)

	assert.Contains(t, file.Filename, ".xlsx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer workbook.Close()

	role, err := workbook.GetCellValue("Messages", "B2")
	require.NoError(t, err)
	assert.Equal(t, "user", role)

	content, err := workbook.GetCellValue("Messages", "C3")
	require.NoError(t, err)
	assert.Equal(t, "Swimming is generally safe during pregnancy.", content)

	name, err := workbook.GetCellValue("Session", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Week 20 questions", name)
}
