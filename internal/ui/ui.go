package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lqx/internal/tasks"
)

var errNotPlanned = errors.New("job has not been planned")

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlanningView ViewState = iota
	PreviewView
	ConfirmView
	ApplyView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	job          Job
	view         ViewState
	width        int
	height       int
	preview      Preview
	previewList  list.Model
	outcomeList  list.Model
	progressChan chan tasks.ProgressUpdate
	done         chan tea.Msg
	progress     tasks.ProgressUpdate
	result       *tasks.BatchResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model that plans job on start and applies it after confirmation.
func NewModel(ctx context.Context, job Job) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		job:         job,
		view:        PlanningView,
		previewList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		outcomeList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Result returns the applied batch, if any, and the last error.
func (m *Model) Result() (*tasks.BatchResult, error) {
	return m.result, m.err
}

// State returns the current view.
func (m *Model) State() ViewState {
	return m.view
}

// Init starts planning the job.
func (m *Model) Init() tea.Cmd {
	return m.startPlan()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize(&m.previewList)
		m.resize(&m.outcomeList)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		switch m.view {
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case planReadyMsg:
		m.progressChan = nil
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		m.err = nil
		m.preview = msg.preview
		m.previewList = list.New(operationItems(msg.preview.Lines), list.NewDefaultDelegate(), 0, 0)
		m.previewList.Title = msg.preview.Title
		m.resize(&m.previewList)
		m.view = PreviewView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case applyCompleteMsg:
		m.progressChan = nil
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		if msg.result != nil {
			m.outcomeList = list.New(outcomeItems(msg.result.Outcomes), list.NewDefaultDelegate(), 0, 0)
			m.outcomeList.Title = "Outcomes"
			m.resize(&m.outcomeList)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlanningView:
		return m.renderWorking("Planning")
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case ApplyView:
		return m.renderWorking("Applying")
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.apply) && m.preview.Pending > 0 {
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.previewList, cmd = m.previewList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ApplyView
		return m, m.startApply()
	case key.Matches(msg, m.keys.no):
		m.view = PreviewView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.restart) {
		m.view = PlanningView
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.startPlan()
	}

	var cmd tea.Cmd
	m.outcomeList, cmd = m.outcomeList.Update(msg)
	return m, cmd
}

// resize fits l to the window once its size is known.
func (m *Model) resize(l *list.Model) {
	if m.width > 4 && m.height > 8 {
		l.SetSize(m.width-4, m.height-8)
	}
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PreviewView:
		m.previewList, cmd = m.previewList.Update(msg)
	case ResultView:
		m.outcomeList, cmd = m.outcomeList.Update(msg)
	}
	return m, cmd
}

// run executes fn in the background. Progress is relayed until fn returns, then its message is delivered.
func (m *Model) run(fn func(progress chan<- tasks.ProgressUpdate) tea.Msg) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan tea.Msg, 1)
	m.progressChan = progress
	m.done = done

	go func() {
		msg := fn(progress)
		close(progress)
		done <- msg
	}()

	return m.waitForProgress()
}

func (m *Model) startPlan() tea.Cmd {
	return m.run(func(progress chan<- tasks.ProgressUpdate) tea.Msg {
		preview, err := m.job.Plan(m.ctx, progress)
		return planReadyMsg{preview: preview, err: err}
	})
}

func (m *Model) startApply() tea.Cmd {
	return m.run(func(progress chan<- tasks.ProgressUpdate) tea.Msg {
		result, err := m.job.Apply(m.ctx, progress)
		return applyCompleteMsg{result: result, err: err}
	})
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderWorking(title string) string {
	status := "Starting..."
	if m.progress.Message != "" {
		status = m.progress.Message
	}
	if m.progress.Total > 1 {
		status = fmt.Sprintf("%s (%d/%d)", status, m.progress.Step, m.progress.Total)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", styles.title.Render(title), styles.help.Render(status), helpView)
}

func (m *Model) renderPreview() string {
	if m.preview.Pending == 0 {
		title := styles.title.Render(m.preview.Title)
		body := styles.ok.Render("Nothing to do.")
		if len(m.preview.Lines) > 0 {
			body = fmt.Sprintf("%s\n\n%s", body, m.previewList.View())
		}
		return fmt.Sprintf("%s\n%s\n\n%s", title, body, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.apply, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.previewList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Apply %d operations?", m.preview.Pending))
	info := m.preview.Title
	if skipped := len(m.preview.Lines) - m.preview.Pending; skipped > 0 {
		info += "\n" + styles.warn.Render(fmt.Sprintf("%d planned items will be skipped", skipped))
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	title := styles.ok.Render("✓ Done")
	if m.err != nil {
		title = styles.err.Render(fmt.Sprintf("✗ Aborted: %v", m.err))
	} else if m.result.Failed > 0 {
		title = styles.warn.Render("Done with failures")
	}
	counts := fmt.Sprintf("%d succeeded, %d skipped, %d failed", m.result.Succeeded, m.result.Skipped, m.result.Failed)
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, counts, m.outcomeList.View(), helpView)
}
