package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/pkg/logger"
	"gorm.io/gorm"
)

const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"

	ingestBatchSize = 500
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IngestService bulk-loads tasks from an uploaded file.
type IngestService struct {
	db *gorm.DB
}

func NewIngestService(db *gorm.DB) *IngestService {
	return &IngestService{db: db}
}

type UploadResult struct {
	Format  string   `json:"format"`
	Created int      `json:"created"`
	TaskIDs []string `json:"task_ids"`
}

// Upload parses data as JSONL or CSV and inserts every record into the
// project. Either all records are stored or none.
func (s *IngestService) Upload(projectID uint, data []byte) (*UploadResult, error) {
	if err := projectExists(s.db, projectID); err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, apperr.Encoding("upload is not valid UTF-8")
	}

	format, err := detectFormat(data)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	switch format {
	case FormatJSONL:
		tasks, err = parseJSONL(data)
	default:
		tasks, err = parseCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, apperr.Validation(nil, "upload contains no records")
	}

	ids := make([]string, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		tasks[i].ProjectID = projectID
		if seen[tasks[i].ID] {
			return nil, apperr.Conflict("duplicate task id %q in upload", tasks[i].ID)
		}
		seen[tasks[i].ID] = true
		ids[i] = tasks[i].ID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(ids); start += ingestBatchSize {
			end := start + ingestBatchSize
			if end > len(ids) {
				end = len(ids)
			}
			var existing []string
			if err := tx.Model(&models.Task{}).Where("id IN ?", ids[start:end]).Limit(1).Pluck("id", &existing).Error; err != nil {
				return err
			}
			if len(existing) > 0 {
				return apperr.Conflict("task %q already exists", existing[0])
			}
		}
		return tx.CreateInBatches(&tasks, ingestBatchSize).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "task")
	}

	logger.Info().
		Uint("project_id", projectID).
		Str("format", format).
		Int("created", len(tasks)).
		Msg("tasks uploaded")

	return &UploadResult{
		Format:  format,
		Created: len(tasks),
		TaskIDs: ids,
	}, nil
}

// detectFormat sniffs the first non-blank line: an object means JSONL,
// anything else is treated as a CSV header.
func detectFormat(data []byte) (string, error) {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] == '{' {
			return FormatJSONL, nil
		}
		return FormatCSV, nil
	}
	return "", apperr.Validation(nil, "empty upload")
}

type jsonlRecord struct {
	ID     json.RawMessage `json:"id"`
	Text   *string         `json:"text"`
	Events json.RawMessage `json:"events"`
}

func parseJSONL(data []byte) ([]models.Task, error) {
	var tasks []models.Task
	for i, line := range bytes.Split(data, []byte("\n")) {
		lineNo := i + 1
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, apperr.Validation(err, "line %d: malformed JSON", lineNo)
		}
		if _, ok := fields["events"]; !ok {
			return nil, apperr.Validation(nil, "line %d: missing events", lineNo)
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, apperr.Validation(err, "line %d: unexpected field type", lineNo)
		}

		id, err := parseTaskID(rec.ID)
		if err != nil {
			return nil, apperr.Validation(err, "line %d: invalid id", lineNo)
		}
		if rec.Text == nil || strings.TrimSpace(*rec.Text) == "" {
			return nil, apperr.Validation(nil, "line %d: missing text", lineNo)
		}
		events, err := compactEvents(rec.Events)
		if err != nil {
			return nil, apperr.Validation(err, "line %d: invalid events", lineNo)
		}

		tasks = append(tasks, models.Task{
			ID:      id,
			Article: *rec.Text,
			Events:  models.JSONValue(events),
		})
	}
	return tasks, nil
}

// parseTaskID accepts a string or a number. Absent, null and empty ids get a UUID.
func parseTaskID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return uuid.NewString(), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s = strings.TrimSpace(s); s == "" {
			return uuid.NewString(), nil
		}
		return s, nil
	case '{', '[', 't', 'f':
		return "", errors.New("id must be a string or a number")
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

func parseCSV(data []byte) ([]models.Task, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, apperr.Validation(err, "line 1: unreadable CSV header")
	}

	idCol, textCol, eventsCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			idCol = i
		case "text", "article":
			if textCol == -1 {
				textCol = i
			}
		case "events":
			eventsCol = i
		}
	}
	if textCol == -1 {
		return nil, apperr.Validation(nil, "CSV header must contain a text or article column")
	}

	var tasks []models.Task
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, apperr.Validation(err, "line %d: malformed CSV", parseErr.Line)
			}
			return nil, apperr.Validation(err, "malformed CSV")
		}
		line, _ := r.FieldPos(0)

		text := column(row, textCol)
		if strings.TrimSpace(text) == "" {
			return nil, apperr.Validation(nil, "line %d: missing text", line)
		}
		id := strings.TrimSpace(column(row, idCol))
		if id == "" {
			id = uuid.NewString()
		}
		events, err := compactEvents([]byte(column(row, eventsCol)))
		if err != nil {
			return nil, apperr.Validation(err, "line %d: invalid events", line)
		}

		tasks = append(tasks, models.Task{
			ID:      id,
			Article: text,
			Events:  models.JSONValue(events),
		})
	}
	return tasks, nil
}

func column(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
