package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
)

const (
	// Title heads every rendering.
	Title = "Contact Submissions"
	// EmptyMessage replaces the list when there is nothing to show.
	EmptyMessage = "No submissions yet."

	displayTimeLayout   = "2006-01-02 15:04:05"
	deleteFailedMessage = "could not delete, try again"
	loadFailedMessage   = "could not load submissions"
)

// Row is one rendered submission.
type Row struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	DisplayTime string `json:"display_time"`
	Status      string `json:"status"`
}

// Snapshot is the rendering model of a view at one version.
type Snapshot struct {
	Version uint64 `json:"version"`
	Title   string `json:"title"`
	Total   int    `json:"total"`
	Summary string `json:"summary"`
	Rows    []Row  `json:"rows"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Collect performs a single load and renders it without mounting a view.
func Collect(ctx context.Context, source Source, location *time.Location) (Snapshot, error) {
	if source == nil {
		return Snapshot{}, errMissingSource
	}
	if location == nil {
		location = time.Local
	}
	list, err := source.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return buildSnapshot(newestFirst(list, nil), location), nil
}

func buildSnapshot(rows []submissions.Submission, location *time.Location) Snapshot {
	snapshot := Snapshot{
		Title: Title,
		Total: len(rows),
		Rows:  make([]Row, 0, len(rows)),
	}
	if len(rows) == 0 {
		snapshot.Empty = true
		snapshot.Message = EmptyMessage
		return snapshot
	}
	snapshot.Summary = fmt.Sprintf("Total submissions: %d", len(rows))
	for _, record := range rows {
		snapshot.Rows = append(snapshot.Rows, Row{
			ID:          record.ID,
			Name:        record.Name,
			Email:       record.Email,
			Message:     record.Message,
			Timestamp:   record.Timestamp,
			DisplayTime: displayTime(record, location),
			Status:      record.Status,
		})
	}
	return snapshot
}

func displayTime(record submissions.Submission, location *time.Location) string {
	createdAt, err := record.CreatedAt()
	if err != nil {
		return record.Timestamp
	}
	return createdAt.In(location).Format(displayTimeLayout)
}

// Render writes a plain-text rendering of snapshot.
func Render(w io.Writer, snapshot Snapshot) error {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")
	if snapshot.Error != "" {
		fmt.Fprintf(&b, "! %s\n", snapshot.Error)
	}
	if snapshot.Empty {
		b.WriteString(EmptyMessage)
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString(snapshot.Summary)
	b.WriteString("\n")
	for _, row := range snapshot.Rows {
		fmt.Fprintf(&b, "\n[%d] %s <%s>  %s\n", row.ID, row.Name, row.Email, row.DisplayTime)
		for _, line := range strings.Split(row.Message, "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
