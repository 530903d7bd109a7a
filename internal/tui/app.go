package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/tiergate/internal/validation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// maxFinishedLines bounds the per-case history shown under the bar.
const maxFinishedLines = 12

// EventMsg wraps a validation event for the bubbletea loop.
type EventMsg struct {
	Event validation.Event
}

// eventsClosedMsg is sent when the event channel is closed.
type eventsClosedMsg struct{}

type caseLine struct {
	name    string
	passed  bool
	message string
}

// Model is the bubbletea model for a validation run.
type Model struct {
	title  string
	events <-chan validation.Event

	depth   models.Depth
	tier    string
	total   int
	done    int
	passed  int
	failed  int
	running map[string]string
	lines   []caseLine

	metrics  *models.Metrics
	verdict  bool
	finished bool
	aborted  bool

	width    int
	progress progress.Model
	spinner  spinner.Model
	styles   styles
}

// New creates a model that reads from events. A nil channel is allowed
// for tests that drive Update directly.
func New(title string, events <-chan validation.Event) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	s := defaultStyles()
	sp.Style = s.running

	return &Model{
		title:    title,
		events:   events,
		running:  make(map[string]string),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  sp,
		styles:   s,
		width:    80,
	}
}

// Run shows the model until the run completes or the user aborts.
func Run(ctx context.Context, title string, events <-chan validation.Event) (*Model, error) {
	m := New(title, events)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if fm, ok := final.(*Model); ok {
		m = fm
	}
	return m, err
}

// Aborted reports whether the user quit before the run completed.
func (m *Model) Aborted() bool { return m.aborted }

// Finished reports whether the completed event arrived.
func (m *Model) Finished() bool { return m.finished }

// Metrics returns the final metrics, or nil before completion.
func (m *Model) Metrics() *models.Metrics { return m.metrics }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick)
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.finished {
				m.aborted = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 10), 60)

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		if m.finished {
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case eventsClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev validation.Event) {
	switch ev.Type {
	case validation.EventDepthResolved:
		m.depth = ev.Depth
		m.tier = ev.Message
	case validation.EventPlanned:
		m.total = ev.Total
	case validation.EventCaseStarted:
		m.running[ev.CaseID] = ev.CaseName
	case validation.EventCaseFinished:
		delete(m.running, ev.CaseID)
		m.done++
		if ev.Passed {
			m.passed++
		} else {
			m.failed++
		}
		m.lines = append(m.lines, caseLine{name: ev.CaseName, passed: ev.Passed, message: ev.Message})
		if len(m.lines) > maxFinishedLines {
			m.lines = m.lines[len(m.lines)-maxFinishedLines:]
		}
	case validation.EventCompleted:
		m.finished = true
		m.verdict = ev.Passed
		m.metrics = ev.Metrics
		m.running = make(map[string]string)
	}
}

// percent is the completed share of planned cases, in [0, 1].
func (m *Model) percent() float64 {
	switch {
	case m.finished:
		return 1
	case m.total <= 0:
		return 0
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("tiergate · " + m.title))
	b.WriteString("\n")

	depth := string(m.depth)
	if depth == "" {
		depth = "resolving"
	}
	fmt.Fprintf(&b, "%s%s", s.label.Render("Depth"), s.depth.Render(depth))
	if m.tier != "" {
		fmt.Fprintf(&b, " %s", s.dim.Render("("+m.tier+" tier)"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s%s\n", s.label.Render("Progress"), m.progress.ViewAs(m.percent()))
	fmt.Fprintf(&b, "%s%s  %s  %s\n\n",
		s.label.Render("Cases"),
		s.value.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
		s.passed.Render(fmt.Sprintf("%d passed", m.passed)),
		s.failed.Render(fmt.Sprintf("%d failed", m.failed)))

	for _, l := range m.lines {
		if l.passed {
			fmt.Fprintf(&b, "  %s %s\n", s.passed.Render("✓"), l.name)
			continue
		}
		fmt.Fprintf(&b, "  %s %s", s.failed.Render("✗"), l.name)
		if l.message != "" {
			fmt.Fprintf(&b, " %s", s.dim.Render(truncate(l.message, max(m.width-len(l.name)-8, 20))))
		}
		b.WriteString("\n")
	}

	names := make([]string, 0, len(m.running))
	for _, name := range m.running {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n", m.spinner.View(), s.running.Render(name))
	}

	if m.finished {
		if m.verdict {
			b.WriteString(s.verdict.Foreground(s.passed.GetForeground()).Render("Validation PASSED"))
		} else {
			b.WriteString(s.verdict.Foreground(s.failed.GetForeground()).Render("Validation FAILED"))
		}
		if m.metrics != nil {
			fmt.Fprintf(&b, "\n%s", s.dim.Render(m.metrics.String()))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(s.dim.Render("\nq: abort"))
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
