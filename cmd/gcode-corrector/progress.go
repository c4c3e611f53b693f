package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type progressMsg int

type doneMsg struct{ err error }

// progressModel draws a bar while a file is corrected. q or ctrl+c
// cancels the run.
type progressModel struct {
	title    string
	bar      progress.Model
	percent  int
	canceled bool
	cancel   func()
	err      error
}

func newProgressModel(title string, cancel func()) progressModel {
	return progressModel{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel: cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.canceled = true
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-len(m.title)-12, 10), 60)
	case progressMsg:
		m.percent = int(msg)
	case doneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.percent = 100
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("  ")
	sb.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	if m.canceled {
		sb.WriteString(labelStyle.Render("  canceling"))
	}
	sb.WriteString("\n")
	if m.percent < 100 && !m.canceled {
		sb.WriteString(labelStyle.Render("  q to cancel"))
		sb.WriteString("\n")
	}
	return sb.String()
}
