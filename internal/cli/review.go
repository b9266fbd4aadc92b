package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// Style definitions for the review TUI.
var (
	reviewTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	reviewPanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(1, 2)

	reviewHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	reviewSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62"))

	reviewReplyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	reviewIgnoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	reviewHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	reviewNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	reviewErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

type reviewModel struct {
	ctx    context.Context
	width  int
	height int

	drafts []models.Draft
	cursor int

	notice string
	err    error
}

// decisionDoneMsg carries the result of an approve/reject back to the model.
type decisionDoneMsg struct {
	notice string
	err    error
}

func newReviewModel(ctx context.Context) reviewModel {
	return reviewModel{
		ctx:    ctx,
		drafts: Store.LoadDrafts(),
	}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.drafts)-1 {
				m.cursor++
			}
			return m, nil
		case "a":
			return m, m.decide(decisionApprove)
		case "p":
			return m, m.decide(decisionPromote)
		case "r":
			return m, m.decide(decisionReject)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case decisionDoneMsg:
		m.notice = msg.notice
		m.err = msg.err
		m.drafts = Store.LoadDrafts()
		if m.cursor >= len(m.drafts) && m.cursor > 0 {
			m.cursor = len(m.drafts) - 1
		}
		if len(m.drafts) == 0 {
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

// Reviewer decisions.
const (
	decisionApprove = iota
	decisionPromote
	decisionReject
)

func (m reviewModel) decide(decision int) tea.Cmd {
	if len(m.drafts) == 0 {
		return nil
	}
	draft := m.drafts[m.cursor]
	ctx := m.ctx

	return func() tea.Msg {
		switch decision {
		case decisionReject:
			if _, err := Orchestrator.Reject(draft.UID); err != nil {
				return decisionDoneMsg{err: err}
			}
			return decisionDoneMsg{notice: fmt.Sprintf("Rejected draft %d.", draft.UID)}
		case decisionPromote:
			if EngineErr != nil {
				return decisionDoneMsg{err: fmt.Errorf("cannot promote to references: %w", EngineErr)}
			}
			sent, err := Orchestrator.Approve(ctx, draft.UID, true)
			if err != nil {
				return decisionDoneMsg{err: err}
			}
			return decisionDoneMsg{notice: fmt.Sprintf("Approved draft %d (%d sent) and promoted to references.", draft.UID, sent)}
		default:
			sent, err := Orchestrator.Approve(ctx, draft.UID, false)
			if err != nil {
				return decisionDoneMsg{err: err}
			}
			return decisionDoneMsg{notice: fmt.Sprintf("Approved draft %d (%d sent).", draft.UID, sent)}
		}
	}
}

func (m reviewModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := reviewTitleStyle.Render(" Draft Review ")
	help := reviewHelpStyle.Render("↑/↓: select | a: approve | p: approve+promote | r: reject | q: quit")

	if len(m.drafts) == 0 {
		return fmt.Sprintf("%s\n\n  No drafts awaiting review.\n\n%s", title, help)
	}

	listPanel := reviewPanelStyle.Render(m.renderList())
	detailWidth := m.width - lipgloss.Width(listPanel) - 8
	if detailWidth < 30 {
		detailWidth = 30
	}
	detailPanel := reviewPanelStyle.Width(detailWidth).Render(m.renderDetail())
	body := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel)

	status := ""
	if m.err != nil {
		status = "\n" + reviewErrorStyle.Render("Error: "+m.err.Error())
	} else if m.notice != "" {
		status = "\n" + reviewNoticeStyle.Render(m.notice)
	}

	return fmt.Sprintf("%s\n\n%s%s\n\n%s", title, body, status, help)
}

func (m reviewModel) renderList() string {
	var b strings.Builder
	b.WriteString(reviewHeaderStyle.Render(fmt.Sprintf("Drafts (%d)", len(m.drafts))))
	b.WriteString("\n")

	for i, d := range m.drafts {
		line := fmt.Sprintf(" %-6d %-8s %s ", d.UID, d.Action, clip(d.Subject, 28))
		if i == m.cursor {
			b.WriteString(reviewSelectedStyle.Render(line))
		} else {
			b.WriteString(styleForAction(d.Action).Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m reviewModel) renderDetail() string {
	d := m.drafts[m.cursor]

	var b strings.Builder
	b.WriteString(reviewHeaderStyle.Render(fmt.Sprintf("UID %d", d.UID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("From:       %s\n", d.OriginalFrom))
	b.WriteString(fmt.Sprintf("Subject:    %s\n", d.Subject))
	b.WriteString(fmt.Sprintf("Category:   %s (%d%%)\n", d.Category, int(math.Round(d.Confidence*100))))
	b.WriteString(fmt.Sprintf("Language:   %s\n", d.Language))
	b.WriteString(fmt.Sprintf("Action:     %s\n", styleForAction(d.Action).Render(string(d.Action))))
	b.WriteString(fmt.Sprintf("\nSummary:\n  %s\n", d.Summary))

	if d.Action == models.ActionReply {
		b.WriteString("\nDrafted reply:\n")
		for _, line := range strings.Split(d.ReplyBody, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	return b.String()
}

func styleForAction(action models.Action) lipgloss.Style {
	if action == models.ActionReply {
		return reviewReplyStyle
	}
	return reviewIgnoreStyle
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review the drafted replies",
	Long: `Launch an interactive terminal view of the current draft batch. Navigate
with the arrow keys, approve with a, approve and promote into the reference
knowledge base with p, reject with r. The view exits when the last draft is
decided.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		p := tea.NewProgram(newReviewModel(cmd.Context()), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
