package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	discussion "github.com/jsalvador/gdsim/core"
	"github.com/jsalvador/gdsim/core/api"
	"github.com/jsalvador/gdsim/core/audio"
	"github.com/jsalvador/gdsim/core/recording"
)

const (
	sidebarWidth      = 33
	sidebarPadding    = 1
	sidebarOuterWidth = sidebarWidth + sidebarPadding*2

	viewportPadding = 1
	footerHeight    = 4
)

type participantsMsg []discussion.Participant
type messagesMsg []discussion.Message
type humanTurnMsg struct{}
type humanTurnClosedMsg struct{}
type roundCompleteMsg int
type elapsedMsg int
type discussionDoneMsg struct{}
type discussionFailedMsg struct{ err error }

type submissionMsg struct {
	result *api.SubmissionResult
	err    error
}

var (
	nameStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	roleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	thinkingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	humanStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	recStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().PaddingTop(1).Foreground(lipgloss.Color("241"))
)

type model struct {
	orchestrator *discussion.Orchestrator
	recorder     *recording.Session
	encoding     audio.EncodingInfo
	topic        string

	participants []discussion.Participant
	messages     []discussion.Message
	round        int
	humanTurn    bool
	submitting   bool
	elapsed      int
	notice       string
	done         bool

	termWidth  int
	termHeight int
	ready      bool

	viewport        viewport.Model
	input           textinput.Model
	automaticScroll bool
}

func newModel(orchestrator *discussion.Orchestrator, recorder *recording.Session, encoding audio.EncodingInfo, topic string) model {
	input := textinput.New()
	input.Placeholder = "Type your reply..."
	input.CharLimit = 0

	return model{
		orchestrator:    orchestrator,
		recorder:        recorder,
		encoding:        encoding,
		topic:           topic,
		participants:    orchestrator.Participants(),
		input:           input,
		automaticScroll: true,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height

		viewportHeight := m.termHeight - viewportPadding*2 - footerHeight
		if !m.ready {
			m.viewport = viewport.New(m.viewportWidth(), viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.viewportWidth()
			m.viewport.Height = viewportHeight
		}
		m.viewport.SetContent(m.transcript())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()

		case "q":
			if !m.input.Focused() {
				return m.quit()
			}

		case "enter":
			if m.humanTurn && !m.submitting && m.input.Focused() {
				text := strings.TrimSpace(m.input.Value())
				if text == "" {
					return m, nil
				}
				m.submitting = true
				m.notice = "Sending reply..."
				return m, m.submitTextCmd(text)
			}

		case "ctrl+r":
			return m.toggleRecording()

		case "esc":
			if m.recorder != nil && m.recorder.State() == recording.StateRecording {
				m.recorder.Cancel()
				m.elapsed = 0
				m.notice = "Recording discarded."
				return m, nil
			}
		}

	case participantsMsg:
		m.participants = msg
		return m, nil

	case messagesMsg:
		m.messages = msg
		m.viewport.SetContent(m.transcript())
		if m.automaticScroll {
			m.viewport.GotoBottom()
		}
		return m, nil

	case humanTurnMsg:
		m.humanTurn = true
		m.submitting = false
		m.notice = ""
		m.input.Focus()
		return m, textinput.Blink

	case humanTurnClosedMsg:
		m.humanTurn = false
		m.submitting = false
		m.notice = ""
		m.input.Blur()
		m.input.Reset()
		if m.recorder != nil {
			m.recorder.Finish()
		}
		return m, nil

	case roundCompleteMsg:
		m.round = int(msg)
		return m, nil

	case elapsedMsg:
		m.elapsed = int(msg)
		return m, nil

	case submissionMsg:
		return m.applySubmission(msg)

	case discussionFailedMsg:
		m.done = true
		m.notice = fmt.Sprintf("Discussion aborted: %v", msg.err)
		return m, nil

	case discussionDoneMsg:
		m.done = true
		m.notice = "Discussion finished. Press 'q' to quit."
		return m, nil
	}

	var commands []tea.Cmd
	var command tea.Cmd

	if m.input.Focused() {
		m.input, command = m.input.Update(msg)
		commands = append(commands, command)
	}

	m.viewport, command = m.viewport.Update(msg)
	commands = append(commands, command)
	m.automaticScroll = m.viewport.AtBottom()

	return m, tea.Batch(commands...)
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.recorder != nil {
		m.recorder.Cancel()
	}
	return m, tea.Quit
}

func (m model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recorder == nil || !m.humanTurn || m.submitting {
		return m, nil
	}

	if m.recorder.State() == recording.StateRecording {
		clip, err := m.recorder.Stop()
		m.elapsed = 0
		if err != nil {
			m.notice = fmt.Sprintf("Recording rejected: %v", err)
			return m, nil
		}
		m.submitting = true
		m.notice = "Transcribing reply..."
		return m, m.submitAudioCmd(clip)
	}

	if err := m.recorder.Start(); err != nil {
		m.notice = fmt.Sprintf("Cannot record: %v", err)
		return m, nil
	}
	m.elapsed = 0
	m.notice = ""
	return m, nil
}

func (m model) submitTextCmd(text string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.orchestrator.SubmitText(context.Background(), text)
		return submissionMsg{result: result, err: err}
	}
}

func (m model) submitAudioCmd(clip []byte) tea.Cmd {
	wav := audio.WrapWAV(clip, m.encoding.SampleRate, m.encoding.Channels)
	return func() tea.Msg {
		result, err := m.orchestrator.SubmitAudio(context.Background(), wav)
		return submissionMsg{result: result, err: err}
	}
}

func (m model) applySubmission(msg submissionMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if m.recorder != nil {
		m.recorder.Finish()
	}

	if msg.err != nil {
		m.notice = fmt.Sprintf("Submission failed: %v", msg.err)
		return m, nil
	}
	if !msg.result.Success {
		reason := msg.result.Error
		if reason == "" {
			reason = "backend rejected the reply"
		}
		m.notice = fmt.Sprintf("Submission rejected: %s", reason)
		return m, nil
	}

	// The reply lands in the transcript when the backend echoes it on the
	// round stream.
	m.notice = "Reply sent."
	m.input.Reset()
	return m, nil
}

func (m model) viewportWidth() int {
	return m.termWidth - sidebarOuterWidth - viewportPadding*2
}

func (m model) transcript() string {
	var lines []string
	for _, message := range m.messages {
		if message.IsThinking {
			lines = append(lines, thinkingStyle.Render(fmt.Sprintf("%s is thinking...", message.Agent)))
			continue
		}

		name := nameStyle
		if message.IsHuman {
			name = humanStyle
		}
		header := name.Render(message.Agent)
		if message.Role != "" {
			header += " " + roleStyle.Render("("+message.Role+")")
		}
		lines = append(lines, header+"\n"+message.Text)
	}
	return wordwrap.String(strings.Join(lines, "\n\n"), m.viewportWidth()-4)
}

func statusLabel(status discussion.Status) string {
	switch status {
	case discussion.StatusThinking:
		return "thinking..."
	case discussion.StatusSpeaking:
		return "speaking"
	case discussion.StatusSpoke:
		return "spoke"
	default:
		return "waiting"
	}
}

func (m model) View() string {
	if m.termWidth == 0 {
		return "Loading..."
	}

	mainStyle := lipgloss.NewStyle().
		Padding(1).
		Width(m.termWidth - sidebarOuterWidth).
		Height(m.termHeight - footerHeight)

	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(sidebarPadding).
		Width(sidebarWidth).
		Height(m.termHeight - 2)

	roster := []string{
		nameStyle.Render("Topic") + ": " + m.topic,
		nameStyle.Render("Round") + ": " + statusStyle.Render(fmt.Sprintf("%d", m.round)),
		"",
	}
	for _, participant := range m.participants {
		name := nameStyle
		if participant.IsHuman {
			name = humanStyle
		}
		roster = append(roster, fmt.Sprintf("%s: %s",
			name.Render(participant.Name),
			statusStyle.Render(statusLabel(participant.Status)),
		))
	}
	sidebar := sidebarStyle.Render(strings.Join(roster, "\n"))

	footer := m.footer()

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left,
			mainStyle.Render(m.viewport.View()),
			footer,
		),
		sidebar,
	)
}

func (m model) footer() string {
	var lines []string

	switch {
	case m.recorder != nil && m.recorder.State() == recording.StateRecording:
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %ds", m.elapsed))+
			helpStyle.Render("  Ctrl+R to stop and send, Esc to discard"))
	case m.humanTurn && !m.submitting:
		prompt := "Your turn. Enter to send"
		if m.recorder != nil {
			prompt += ", Ctrl+R to record"
		}
		lines = append(lines, statusStyle.Render(prompt))
		lines = append(lines, m.input.View())
	}

	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, helpStyle.Render("Press 'q' or 'Ctrl+C' to quit"))

	return strings.Join(lines, "\n")
}
