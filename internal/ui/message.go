package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lqx/internal/tasks"
)

var (
	_ tea.Msg = planReadyMsg{}
	_ tea.Msg = progressUpdateMsg{}
	_ tea.Msg = applyCompleteMsg{}
)

type planReadyMsg struct {
	preview Preview
	err     error
}

type progressUpdateMsg tasks.ProgressUpdate

type applyCompleteMsg struct {
	result *tasks.BatchResult
	err    error
}
