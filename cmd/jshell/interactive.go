package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jvmkit/jni-runtime/jvm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B07219")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateCompose modelState = iota
	stateShowResult
)

const (
	fieldClass = iota
	fieldMethod
	fieldArgs
	fieldCount
)

type callRequest struct {
	className string
	method    string
	static    bool
	args      []string
	reply     chan callResultMsg
}

type interactiveModel struct {
	err      error
	cfg      shellConfig
	requests chan callRequest
	ready    bool
	quitting bool
	result   string
	inputs   []textinput.Model
	focusIdx int
	state    modelState
}

func newInteractiveModel(cfg shellConfig) *interactiveModel {
	labels := []struct {
		prompt      string
		placeholder string
	}{
		{"class: ", "java.util.ArrayList"},
		{"method: ", "empty to construct; prefix with 'static ' for statics"},
		{"args: ", "comma-separated strings"},
	}
	inputs := make([]textinput.Model, fieldCount)
	for i, l := range labels {
		ti := textinput.New()
		ti.Prompt = l.prompt
		ti.Placeholder = l.placeholder
		ti.Width = 56
		if i == 0 {
			ti.Focus()
		}
		inputs[i] = ti
	}
	return &interactiveModel{
		cfg:      cfg,
		requests: make(chan callRequest),
		inputs:   inputs,
		state:    stateCompose,
	}
}

type builtMsg struct {
	err error
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.startWorker
}

// startWorker runs the JVM on a dedicated goroutine. A Runtime is pinned to
// the thread that built it, so every call is funneled through the request
// channel instead of touching the runtime from bubbletea's goroutines.
func (m *interactiveModel) startWorker() tea.Msg {
	ready := make(chan error, 1)

	go func() {
		rt, err := buildRuntime(m.cfg)
		ready <- err
		if err != nil {
			return
		}
		defer rt.Close()

		for req := range m.requests {
			req.reply <- doCall(rt, req)
		}
	}()

	return builtMsg{err: <-ready}
}

func doCall(rt *jvm.Runtime, req callRequest) callResultMsg {
	result, cleanup, err := call(rt, req.className, req.method, req.static, req.args)
	if err != nil {
		closeAll(cleanup...)
		return callResultMsg{err: err}
	}

	var value any
	err = rt.ToNative(result, &value)
	closeAll(cleanup...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%v", value)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			if m.ready && !m.quitting {
				m.quitting = true
				close(m.requests)
			}
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateCompose:
				return m, m.callFunction
			case stateShowResult:
				m.state = stateCompose
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateCompose {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateCompose
				m.result = ""
				m.err = nil
			}
		}

	case builtMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ready = true

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateCompose {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) callFunction() tea.Msg {
	if !m.ready {
		return callResultMsg{err: fmt.Errorf("JVM not ready yet")}
	}

	className := strings.TrimSpace(m.inputs[fieldClass].Value())
	if className == "" {
		return callResultMsg{err: fmt.Errorf("a class name is required")}
	}
	method := strings.TrimSpace(m.inputs[fieldMethod].Value())
	static := false
	if rest, ok := strings.CutPrefix(method, "static "); ok {
		static = true
		method = strings.TrimSpace(rest)
	}

	req := callRequest{
		className: className,
		method:    method,
		static:    static,
		args:      splitList(m.inputs[fieldArgs].Value()),
		reply:     make(chan callResultMsg, 1),
	}
	m.requests <- req
	return <-req.reply
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("JVM Shell"))
	b.WriteString("\n\n")

	if !m.ready {
		b.WriteString("Starting JVM...\n")
		return b.String()
	}

	switch m.state {
	case stateCompose:
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • ctrl+c quit"))

	case stateShowResult:
		b.WriteString(labelStyle.Render(m.inputs[fieldClass].Value()))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(cfg shellConfig) error {
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
