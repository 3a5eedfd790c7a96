package main

// This file implements the interactive chat session using bubbletea.

import (
	"bufio"
	"errors"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"kairo/internal/core"
	"kairo/internal/types"
)

var (
	chatPlain bool
	chatURL   string
)

// chatCmd starts a long-running session with the tuner and rule watcher live
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session; feedback tunes weights while you work",
	Long: `Starts the engine with its background tuner and, when configured, the
rule-table watcher, then answers requests until you quit.

Commands inside the session:
  /url <address>   set the page URL sent with later requests
  /url             clear the page URL
  /quit            leave the session`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Read requests line by line from stdin instead of the TUI")
	chatCmd.Flags().StringVar(&chatURL, "url", "", "Initial page URL")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(0)
	defer cancel()

	return withEngine(ctx, func(eng *core.Engine) error {
		if err := eng.Start(ctx); err != nil {
			return err
		}
		if chatPlain {
			return plainChat(ctx, eng, cmd.InOrStdin(), cmd.OutOrStdout(), chatURL)
		}

		p := tea.NewProgram(newChatModel(ctx, eng, chatURL), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
}

// plainChat answers one request per input line.
func plainChat(ctx context.Context, eng *core.Engine, in io.Reader, w io.Writer, url string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if handled, quit, note := chatCommand(line, &url); handled {
			if quit {
				return nil
			}
			fmt.Fprintln(w, mutedStyle.Render(note))
			continue
		}
		out, err := eng.Orchestrator.Orchestrate(ctx, chatRequest(line, url))
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render(err.Error()))
			continue
		}
		writeOutcome(w, out, nil)
	}
	return scanner.Err()
}

// chatCommand interprets slash commands shared by both chat modes.
func chatCommand(line string, url *string) (handled, quit bool, note string) {
	if !strings.HasPrefix(line, "/") {
		return false, false, ""
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, true, ""
	case "/url":
		if len(fields) < 2 {
			*url = ""
			return true, false, "page URL cleared"
		}
		*url = fields[1]
		return true, false, "page URL set to " + *url
	default:
		return true, false, "unknown command " + fields[0]
	}
}

func chatRequest(text, url string) types.Request {
	return types.Request{
		Text:    text,
		Context: types.RequestContext{URL: url, Timestamp: time.Now()},
	}
}

type chatEntry struct {
	request string
	outcome core.Outcome
	err     error
	note    string
}

type outcomeMsg chatEntry

// chatModel is the bubbletea model of the interactive session.
type chatModel struct {
	ctx    context.Context
	engine *core.Engine
	url    string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history []chatEntry
	busy    bool
	ready   bool
	width   int
}

func newChatModel(ctx context.Context, eng *core.Engine, url string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask anything... (Enter to send, Ctrl+C to exit)"
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = titleStyle
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return chatModel{
		ctx:      ctx,
		engine:   eng,
		url:      url,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		const chrome = 4
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.renderer = newRenderer(msg.Width - 4)
		m.ready = true
		m.refresh()

	case outcomeMsg:
		m.busy = false
		m.history = append(m.history, chatEntry(msg))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if handled, quit, note := chatCommand(text, &m.url); handled {
		if quit {
			return m, tea.Quit
		}
		m.history = append(m.history, chatEntry{note: note})
		m.refresh()
		return m, nil
	}

	m.busy = true
	return m, tea.Batch(m.orchestrate(text), m.spinner.Tick)
}

// orchestrate runs the request off the update loop.
func (m chatModel) orchestrate(text string) tea.Cmd {
	ctx, eng, url := m.ctx, m.engine, m.url
	return func() tea.Msg {
		out, err := eng.Orchestrator.Orchestrate(ctx, chatRequest(text, url))
		return outcomeMsg{request: text, outcome: out, err: err}
	}
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m chatModel) transcript() string {
	var b strings.Builder
	for _, e := range m.history {
		if e.note != "" {
			b.WriteString(mutedStyle.Render(e.note) + "\n\n")
			continue
		}
		b.WriteString(titleStyle.Render("› "+e.request) + "\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render(e.err.Error()) + "\n\n")
			continue
		}
		b.WriteString(outcomeHeader(e.outcome) + "\n")
		b.WriteString(renderMarkdown(m.renderer, e.outcome.Response.Markdown()) + "\n")
	}
	return b.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "starting kairo..."
	}
	status := mutedStyle.Render(fmt.Sprintf("%d answered", m.answered()))
	if m.url != "" {
		status += mutedStyle.Render(" · " + m.url)
	}
	if m.busy {
		status = m.spinner.View() + " orchestrating · " + status
	}
	return m.viewport.View() + "\n" + status + "\n" + m.input.View()
}

func (m chatModel) answered() int {
	n := 0
	for _, e := range m.history {
		if e.note == "" && e.err == nil {
			n++
		}
	}
	return n
}
