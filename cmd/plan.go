package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/institute-of-production-systems/shopsim/sim"
)

// planCmd lets a human planner resolve every decision point
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Step through a simulation and resolve its decisions interactively",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)
		// every category surfaces; configured heuristics only back the "r" key
		simCfg := cfg.SimConfig()
		simCfg.Heuristics = nil
		s, _, cleanup, err := newSimulator(cfg, simCfg, os.Stdout)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer func() {
			if err := cleanup(); err != nil {
				logrus.Errorf("%v", err)
			}
		}()
		if err := s.RunUntilDecision(); err != nil {
			logrus.Fatalf("%v", err)
		}
		if !s.Done() {
			final, err := tea.NewProgram(newPlanModel(s, cfg), tea.WithAltScreen()).Run()
			if err != nil {
				logrus.Fatalf("planner: %v", err)
			}
			if m, ok := final.(*planModel); ok && m.err != nil {
				logrus.Fatalf("%v", m.err)
			}
		}
		s.Report().Print(os.Stdout)
	},
}

// actionItem is one legal action of the pending decision.
type actionItem struct {
	action int
	row    string
	col    string
}

func (i actionItem) Title() string       { return fmt.Sprintf("%s → %s", i.row, i.col) }
func (i actionItem) Description() string { return fmt.Sprintf("action %d", i.action) }
func (i actionItem) FilterValue() string { return i.row + " " + i.col }

// planModel is the bubbletea model of the planner.
type planModel struct {
	sim     *sim.Simulator
	cfg     *RunConfig
	actions list.Model
	status  string
	err     error
}

var (
	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6BCB77")).
			MarginBottom(1)
	planStatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
	planErrorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)
)

func newPlanModel(s *sim.Simulator, cfg *RunConfig) *planModel {
	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)
	delegate.SetSpacing(0)
	actions := list.New([]list.Item{}, delegate, 80, 20)
	actions.SetShowStatusBar(false)
	actions.SetFilteringEnabled(false)
	m := &planModel{sim: s, cfg: cfg, actions: actions}
	m.refresh()
	return m
}

// refresh lists the legal actions of the pending decision.
func (m *planModel) refresh() {
	d := m.sim.Pending()
	if d == nil {
		m.actions.Title = fmt.Sprintf("Finished at t=%d", m.sim.Clock())
		m.actions.SetItems(nil)
		return
	}
	m.actions.Title = fmt.Sprintf("t=%d  %s: %s", m.sim.Clock(), d.Category, d.Subject)
	legal := m.sim.GetLegalActions()
	items := make([]list.Item, 0, len(legal))
	for _, a := range legal {
		row, col := m.sim.Labels(a)
		items = append(items, actionItem{action: a, row: row, col: col})
	}
	m.actions.SetItems(items)
	m.actions.Select(0)
}

func (m *planModel) Init() tea.Cmd { return nil }

func (m *planModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.actions.SetSize(msg.Width, max(msg.Height-6, 5))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			item, ok := m.actions.SelectedItem().(actionItem)
			if !ok {
				return m, nil
			}
			return m.apply(item.action, "selected")
		case "r":
			d := m.sim.Pending()
			if d == nil {
				return m, nil
			}
			name := m.cfg.heuristic(d.Category)
			a, err := m.sim.Suggest(name)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			return m.apply(a, name)
		}
	}

	var cmd tea.Cmd
	m.actions, cmd = m.actions.Update(msg)
	return m, cmd
}

// apply sets action and advances to the next decision. Fatal simulation errors end the planner.
func (m *planModel) apply(action int, by string) (tea.Model, tea.Cmd) {
	d := m.sim.Pending()
	row, col := m.sim.Labels(action)
	done, err := m.sim.SetAction(action)
	if err != nil && sim.IsFatal(err) {
		m.err = err
		return m, tea.Quit
	}
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("%s: %s → %s (%s)", categoryLabel(d), row, col, by)
	m.refresh()
	if done {
		return m, tea.Quit
	}
	return m, nil
}

func categoryLabel(d *sim.Decision) string {
	if d == nil {
		return "run"
	}
	return d.Category.String()
}

func (m *planModel) View() string {
	header := planTitleStyle.Render("⬡ SHOPSIM PLANNER")
	content := m.actions.View()
	if m.err != nil {
		content = fmt.Sprintf("%s\n\n%s", content, planErrorStyle.Render(fmt.Sprintf("⚠ %v", m.err)))
	}
	help := fmt.Sprintf("enter: apply  r: %s  q: quit", m.heuristicHint())
	footer := planStatusStyle.Render(m.status + "\n" + help)
	return fmt.Sprintf("%s\n%s\n%s", header, content, footer)
}

func (m *planModel) heuristicHint() string {
	d := m.sim.Pending()
	if d == nil {
		return "heuristic"
	}
	return m.cfg.heuristic(d.Category)
}
