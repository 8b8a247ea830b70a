// package formatter renders plans, run summaries and journal records as text, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

const none = "(unmatched)"

// MoveLine describes one move as `<source> -> <target>`.
func MoveLine(item models.ItemDescriptor, op models.MoveOperation) string {
	return fmt.Sprintf("#%d %q (position %d) -> position %d", item.ID, item.Title, item.Position, op.TargetPosition)
}

// PairLine describes one pairing candidate by file name.
func PairLine(c models.PairingCandidate) string {
	return fmt.Sprintf("%s -> %s", baseOr(c.Left), baseOr(c.Right))
}

// UploadLine describes one planned upload. A non-nil skip replaces the target with the skip reason.
func UploadLine(c models.PairingCandidate, title string, skip error) string {
	source := baseOr(c.Left)
	if c.HasRight() {
		source += " + " + filepath.Base(c.Right)
	}
	if skip != nil {
		return fmt.Sprintf("%s -> skipped: %v", source, skip)
	}
	return fmt.Sprintf("%s -> new lesson %q", source, title)
}

func baseOr(path string) string {
	if path == "" {
		return none
	}
	return filepath.Base(path)
}

// WritePreview writes a dry-run preview: a header followed by one line per planned operation.
func WritePreview(w io.Writer, header string, lines []string) error {
	if _, err := fmt.Fprintf(w, "%s (%d operations)\n", header, len(lines)); err != nil {
		return err
	}
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "  nothing to do")
		return err
	}
	for i, line := range lines {
		if _, err := fmt.Fprintf(w, "%4d. %s\n", i+1, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes the counts of a finished batch, then every failed item with its detail and link.
func WriteSummary(w io.Writer, kind models.RunKind, outcomes []models.ItemOutcome) error {
	var run models.Run
	run.Tally(outcomes)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d succeeded, %d skipped, %d failed\n", kind, run.Succeeded, run.Skipped, run.Failed)

	if run.Failed > 0 {
		buf.WriteString("failed:\n")
		for _, o := range outcomes {
			if o.Status != models.ItemFailed {
				continue
			}
			fmt.Fprintf(&buf, "  %s\n    %s\n", o.Label, o.Detail())
			if o.URL != "" {
				fmt.Fprintf(&buf, "    %s\n", o.URL)
			}
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteCollection lists a collection snapshot in position order.
func WriteCollection(w io.Writer, snapshot *models.CollectionSnapshot, url string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Collection %d: %d lessons\n", snapshot.CollectionID, len(snapshot.Items))
	if url != "" {
		fmt.Fprintf(&buf, "%s\n", url)
	}
	for _, item := range snapshot.Items {
		fmt.Fprintf(&buf, "%4d. %-8s %s", item.Position, "#"+strconv.Itoa(item.ID), item.Title)
		if item.Status != "" {
			fmt.Fprintf(&buf, " [%s]", item.Status)
		}
		buf.WriteString("\n")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteRuns lists journaled runs, newest first as given.
func WriteRuns(w io.Writer, runs []models.Run) error {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("no runs recorded\n")
	}
	for _, r := range runs {
		fmt.Fprintf(&buf, "%s  %-7s  collection %-6d %-9s  %d/%d ok, %d skipped, %d failed  %s\n",
			shortID(r.ID), r.Kind, r.CollectionID, r.Status,
			r.Succeeded, r.Planned, r.Skipped, r.Failed,
			r.StartedAt.UTC().Format(time.RFC3339),
		)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ExportToCSV converts run outcomes to CSV with columns: Seq, Label, ItemID, Status, Detail, URL
func ExportToCSV(outcomes []models.ItemOutcome) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Seq", "Label", "ItemID", "Status", "Detail", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, o := range outcomes {
		record := []string{
			strconv.Itoa(i + 1),
			o.Label,
			strconv.Itoa(o.ItemID),
			string(o.Status),
			o.Detail(),
			o.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type outcomeRecord struct {
	Label  string `json:"label"`
	ItemID int    `json:"item_id,omitempty"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	URL    string `json:"url,omitempty"`
}

type runReport struct {
	Run      models.Run      `json:"run"`
	Outcomes []outcomeRecord `json:"outcomes"`
}

// ExportToJSON converts a run and its outcomes to indented JSON.
func ExportToJSON(run models.Run, outcomes []models.ItemOutcome) ([]byte, error) {
	report := runReport{Run: run, Outcomes: make([]outcomeRecord, 0, len(outcomes))}
	for _, o := range outcomes {
		report.Outcomes = append(report.Outcomes, outcomeRecord{
			Label:  o.Label,
			ItemID: o.ItemID,
			Status: string(o.Status),
			Detail: o.Detail(),
			URL:    o.URL,
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToText renders a run header followed by its summary.
func ExportToText(run models.Run, outcomes []models.ItemOutcome) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Run: %s\n", run.ID)
	fmt.Fprintf(&buf, "Collection: %d (%s)\n", run.CollectionID, run.Language)
	fmt.Fprintf(&buf, "Status: %s\n", run.Status)
	fmt.Fprintf(&buf, "Started: %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(&buf, "Finished: %s\n", run.FinishedAt.UTC().Format(time.RFC3339))
	}
	buf.WriteString("\n")
	if err := WriteSummary(&buf, run.Kind, outcomes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export renders a run in the named format: text, csv or json.
func Export(run models.Run, outcomes []models.ItemOutcome, format string) ([]byte, error) {
	switch format {
	case "", "text", "txt":
		return ExportToText(run, outcomes)
	case "csv":
		return ExportToCSV(outcomes)
	case "json":
		return ExportToJSON(run, outcomes)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (want text, csv or json)", shared.ErrInvalidArgument, format)
	}
}
