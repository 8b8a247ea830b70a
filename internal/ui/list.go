package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lqx/internal/models"
)

var (
	_ list.Item = operationItem{}
	_ list.Item = outcomeItem{}
)

// operationItem is one planned operation in the preview list.
type operationItem struct {
	seq  int
	line string
}

func (i operationItem) FilterValue() string { return i.line }
func (i operationItem) Title() string       { return i.line }
func (i operationItem) Description() string { return fmt.Sprintf("operation %d", i.seq) }

// outcomeItem wraps [models.ItemOutcome] to implement [list.Item].
type outcomeItem struct {
	outcome models.ItemOutcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Label }
func (i outcomeItem) Title() string       { return i.outcome.Label }
func (i outcomeItem) Description() string {
	desc := styles.Status(i.outcome.Status)
	if detail := i.outcome.Detail(); detail != "" {
		desc = fmt.Sprintf("%s • %s", desc, detail)
	}
	if i.outcome.URL != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.outcome.URL)
	}
	return desc
}

func operationItems(lines []string) []list.Item {
	items := make([]list.Item, len(lines))
	for i, line := range lines {
		items[i] = operationItem{seq: i + 1, line: line}
	}
	return items
}

func outcomeItems(outcomes []models.ItemOutcome) []list.Item {
	items := make([]list.Item, len(outcomes))
	for i, o := range outcomes {
		items[i] = outcomeItem{outcome: o}
	}
	return items
}
