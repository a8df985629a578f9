// internal/claims/claims.go
package claims

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Claim is the proposition under debate. Immutable once loaded.
type Claim struct {
	TopicID string
	Text    string
	Label   string // optional ground-truth label
}

// LoadCSV reads an ordered claim dataset. The header row names the
// columns; recognized names are topic_id/id, claim/text and
// label/ground_truth (label optional).
func LoadCSV(path string) ([]Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open claims: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("claims file %s has no data rows", path)
	}

	idCol, textCol, labelCol := -1, -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "topic_id", "id":
			idCol = i
		case "claim", "text":
			textCol = i
		case "label", "ground_truth":
			labelCol = i
		}
	}
	if textCol == -1 {
		return nil, fmt.Errorf("claims file %s: no claim column in header", path)
	}

	out := make([]Claim, 0, len(records)-1)
	for n, row := range records[1:] {
		if textCol >= len(row) || strings.TrimSpace(row[textCol]) == "" {
			continue
		}
		c := Claim{Text: strings.TrimSpace(row[textCol])}
		if idCol != -1 && idCol < len(row) {
			c.TopicID = strings.TrimSpace(row[idCol])
		}
		if c.TopicID == "" {
			c.TopicID = fmt.Sprintf("%d", n)
		}
		if labelCol != -1 && labelCol < len(row) {
			c.Label = strings.TrimSpace(row[labelCol])
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("claims file %s has no usable rows", path)
	}
	return out, nil
}
