// internal/export/xlsx.go
package export

import (
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"polemic/internal/orchestrator"
)

const summarySheet = "Sheet1"

var summaryHeader = []interface{}{"topic_id", "claim", "helper_type", "result", "rounds", "chat_id"}

// SummaryWriter appends one row per finished debate to a shared results
// spreadsheet. Appends are serialized so concurrent debates can share a
// single writer.
type SummaryWriter struct {
	mu   sync.Mutex
	path string
}

// NewSummaryWriter returns a writer for the spreadsheet at path. The
// file is created with a header row on the first append.
func NewSummaryWriter(path string) *SummaryWriter {
	return &SummaryWriter{path: path}
}

// Path returns the spreadsheet location.
func (w *SummaryWriter) Path() string {
	return w.path
}

// Append records one debate outcome. The result column carries the
// numeric code: 1 converged, 0 ran out of rounds, 2 anything else.
func (w *SummaryWriter) Append(o *orchestrator.Outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, fresh, err := w.open()
	if err != nil {
		return err
	}
	defer file.Close()

	if fresh {
		if err := file.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}

	rows, err := file.GetRows(summarySheet)
	if err != nil {
		return fmt.Errorf("read summary sheet: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{o.TopicID, o.Claim, o.HelperType, o.Result.Code(), o.Rounds, o.DebateID}
	if err := file.SetSheetRow(summarySheet, cell, &row); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	if err := file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (w *SummaryWriter) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return excelize.NewFile(), true, nil
	}
	file, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, false, fmt.Errorf("open summary: %w", err)
	}
	return file, false, nil
}
