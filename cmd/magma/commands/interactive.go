package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// replModel is a minimal bubbletea REPL around the same tool chain runQuery
// drives one-shot: a textarea for the question, a viewport for scrollback,
// and a spinner while a query is in flight. Unlike the teacher's incident
// chat TUI (internal/agent/tui), there is no multi-agent event stream to
// render — each submission is a single synchronous pipeline run.
type replModel struct {
	client    *toolClient
	intent    string
	maxTokens int
	depth     int

	textArea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	history  strings.Builder
	busy     bool
	width    int
	height   int
	lastErr  error
}

type answerMsg struct {
	stages []string
	answer string
	err    error
}

func newReplModel(client *toolClient, intent string, maxTokens, depth int) replModel {
	ta := textarea.New()
	ta.Placeholder = "Ask MAGMA something..."
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetKeys("shift+enter")

	vp := viewport.New(80, 20)
	vp.SetContent("")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = queryStageStyle

	return replModel{
		client:    client,
		intent:    intent,
		maxTokens: maxTokens,
		depth:     depth,
		textArea:  ta,
		viewport:  vp,
		spinner:   s,
	}
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tea.WindowSize())
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(msg.Width - 4)
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - m.textArea.Height() - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			question := strings.TrimSpace(m.textArea.Value())
			if question == "" {
				return m, nil
			}
			m.textArea.Reset()
			m.busy = true
			m.history.WriteString(queryTitleStyle.Render("> ") + question + "\n")
			m.viewport.SetContent(m.history.String())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.spinner.Tick, m.runQuery(question))
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.history.WriteString(queryStageStyle.Render("error: "+msg.err.Error()) + "\n\n")
		} else {
			for _, stage := range msg.stages {
				m.history.WriteString(queryStageStyle.Render(stage) + "\n")
			}
			rendered, err := glamour.Render(msg.answer, "dark")
			if err != nil {
				rendered = msg.answer
			}
			m.history.WriteString(rendered + "\n")
		}
		m.viewport.SetContent(m.history.String())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var taCmd, vpCmd tea.Cmd
	m.textArea, taCmd = m.textArea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

func (m replModel) View() string {
	status := ""
	if m.busy {
		status = m.spinner.View() + " running query..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		queryTitleStyle.Render("MAGMA interactive query"),
		m.viewport.View(),
		status,
		m.textArea.View(),
	)
}

// runQuery drives the same pipeline as the one-shot query command and
// delivers its result back to Update as a tea.Msg.
func (m replModel) runQuery(question string) tea.Cmd {
	client, intent, maxTokens, depth := m.client, m.intent, m.maxTokens, m.depth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		var stages []string
		search, err := client.call(ctx, "semantic_search", map[string]interface{}{"query": question, "limit": 10})
		if err != nil {
			return answerMsg{err: fmt.Errorf("semantic_search: %w", err)}
		}
		matches, _ := search["matches"].([]interface{})
		entityIDs := collectEntityIDs(matches)
		stages = append(stages, fmt.Sprintf("  semantic_search: %d matches, %d seed entities", len(matches), len(entityIDs)))

		views := []interface{}{wrapView("semantic", matches)}
		if len(entityIDs) > 0 {
			for _, stage := range []struct {
				tool string
				args map[string]interface{}
			}{
				{"entity_lookup", map[string]interface{}{"entity_ids": entityIDs, "depth": depth}},
				{"temporal_expand", map[string]interface{}{"entity_ids": entityIDs}},
				{"causal_expand", map[string]interface{}{"entity_ids": entityIDs, "direction": "both", "depth": depth}},
			} {
				result, err := client.call(ctx, stage.tool, stage.args)
				if err != nil {
					return answerMsg{err: fmt.Errorf("%s: %w", stage.tool, err)}
				}
				nodes, _ := result["nodes"].([]interface{})
				stages = append(stages, fmt.Sprintf("  %s: %d nodes", stage.tool, len(nodes)))
				views = append(views, result)
			}
		}

		merged, err := client.call(ctx, "subgraph_merge", map[string]interface{}{"views": views})
		if err != nil {
			return answerMsg{err: fmt.Errorf("subgraph_merge: %w", err)}
		}
		mergedNodes, _ := merged["nodes"].([]interface{})
		stages = append(stages, fmt.Sprintf("  subgraph_merge: %d nodes", len(mergedNodes)))

		linearized, err := client.call(ctx, "linearize_context", map[string]interface{}{
			"subgraph": merged, "intent": intent, "max_tokens": maxTokens,
		})
		if err != nil {
			return answerMsg{err: fmt.Errorf("linearize_context: %w", err)}
		}
		text, _ := linearized["text"].(string)
		return answerMsg{stages: stages, answer: text}
	}
}

func runInteractiveQuery(serverURL, intent string, maxTokens, depth int) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("query --interactive requires a terminal; redirect output or drop --interactive for a one-shot query")
	}
	client := newToolClient(serverURL)
	model := newReplModel(client, intent, maxTokens, depth)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
