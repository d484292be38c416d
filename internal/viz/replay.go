package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/magbrake/internal/dynamo"
)

const (
	replayFrame   = 30 * time.Millisecond
	replayFrames  = 300
	columnRows    = 16
	minGraphWidth = 20
)

type replayTickMsg time.Time

func replayTick() tea.Cmd {
	return tea.Tick(replayFrame, func(t time.Time) tea.Msg {
		return replayTickMsg(t)
	})
}

// Replay plays a recorded trajectory back, advancing a few samples per
// frame so a run of any length takes a few seconds.
type Replay struct {
	tr       *dynamo.Trajectory
	title    string
	idx      int
	stride   int
	paused   bool
	progress progress.Model
	top      float64
	bottom   float64
}

func NewReplay(tr *dynamo.Trajectory, title string) Replay {
	p := progress.New(
		progress.WithScaledGradient("#00ccff", "#00ff88"),
		progress.WithoutPercentage(),
	)
	p.Width = 40

	stride := tr.Len() / replayFrames
	if stride < 1 {
		stride = 1
	}

	top, bottom := 1.0, 0.0
	first := true
	for _, x := range tr.Positions {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if first {
			top, bottom, first = x, x, false
		}
		top, bottom = math.Max(top, x), math.Min(bottom, x)
	}
	// the ring sits at zero and is always in view
	top, bottom = math.Max(top, 0), math.Min(bottom, 0)
	if top == bottom {
		top++
	}

	return Replay{
		tr:       tr,
		title:    title,
		stride:   stride,
		progress: p,
		top:      top,
		bottom:   bottom,
	}
}

func (m Replay) Index() int   { return m.idx }
func (m Replay) Paused() bool { return m.paused }

func (m Replay) last() int {
	if m.tr.Len() == 0 {
		return 0
	}
	return m.tr.Len() - 1
}

// Fraction of the run already shown.
func (m Replay) Fraction() float64 {
	if m.last() == 0 {
		return 1
	}
	return float64(m.idx) / float64(m.last())
}

func (m Replay) Init() tea.Cmd {
	return replayTick()
}

func (m Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if !m.paused && m.idx >= m.last() {
				m.idx = 0
			}
		case "left", "h":
			m.paused = true
			m.idx = max(m.idx-1, 0)
		case "right", "l":
			m.paused = true
			m.idx = min(m.idx+1, m.last())
		case "home":
			m.idx = 0
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = max(min(msg.Width-8, 60), minGraphWidth)
		return m, nil

	case replayTickMsg:
		if !m.paused {
			m.idx = min(m.idx+m.stride, m.last())
			if m.idx == m.last() {
				m.paused = true
			}
		}
		return m, replayTick()
	}

	return m, nil
}

func (m Replay) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	if m.tr.Len() == 0 {
		b.WriteString(ErrorStyle.Render("empty trajectory"))
		b.WriteString("\n")
		return b.String()
	}

	status := StatusRunning.Render("▶ playing")
	if m.paused {
		status = StatusPaused.Render("⏸ paused")
	}
	b.WriteString(m.progress.ViewAs(m.Fraction()))
	b.WriteString("  " + status + "\n\n")

	i := m.idx
	info := []string{
		KeyValue("sample", fmt.Sprintf("%d/%d", i+1, m.tr.Len())),
		KeyValue("time [s]", m.tr.Times[i]),
		KeyValue("height [m]", m.tr.Positions[i]),
		KeyValue("velocity [m/s]", m.tr.Velocities[i]),
		KeyValue("accel [m/s^2]", m.tr.Accelerations[i]),
	}

	col := m.column(m.tr.Positions[i])
	for r := 0; r < len(col); r++ {
		b.WriteString(col[r])
		if r < len(info) {
			b.WriteString("   " + info[r])
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(KeyHint.Render("space pause • ←/→ step • home restart • q quit"))
	b.WriteString("\n")
	return b.String()
}

// column draws the fall path with the ring at height zero.
func (m Replay) column(x float64) []string {
	rowOf := func(v float64) int {
		r := int(math.Round((m.top - v) / (m.top - m.bottom) * float64(columnRows-1)))
		return max(0, min(columnRows-1, r))
	}

	ring := rowOf(0)
	dipole := -1
	if !math.IsNaN(x) && !math.IsInf(x, 0) {
		dipole = rowOf(x)
	}

	rows := make([]string, columnRows)
	for r := range rows {
		switch {
		case r == dipole && r == ring:
			rows[r] = "═●═"
		case r == dipole:
			rows[r] = " ● "
		case r == ring:
			rows[r] = "═══"
		default:
			rows[r] = Subtle.Render(" │ ")
		}
	}
	return rows
}
