// Package browse implements an interactive terminal browser over the builds
// of an evaluated script.
//
// The list view fuzzy-filters the artifacts. Opening an artifact shows its
// rule, dependencies, variables, and pool, and dependencies that are built
// themselves can be followed. Filter queries are remembered across sessions.
package browse

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// view selects what the model renders.
type view int

const (
	viewList view = iota
	viewBuild
)

const (
	filterPrompt  = "/ "
	defaultWidth  = 80
	defaultHeight = 24

	// reserved is the number of lines around the artifact rows.
	reserved = 3
)

// model is the Bubble Tea model of the browser.
type model struct {
	ctxFunc    func() context.Context
	graph      *graph.Graph
	artifacts  []string
	input      textinput.Model
	logger     log.Logger
	history    *History
	historyIdx int
	matches    fuzzy.Matches
	selected   int      // index into matches
	offset     int      // first visible row of matches
	trail      []string // opened artifacts, current last
	edge       int      // selected dependency of the current build
	width      int
	height     int
	view       view
	quitting   bool
}

// Run starts the browser over the builds of g. Queries are persisted in
// cacheDir; an empty cacheDir disables persistence.
func Run(
	ctx context.Context,
	g *graph.Graph,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if g == nil || g.Len() == 0 {
		return ErrEmptyGraph
	}

	path := ""
	if cacheDir != "" {
		path = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "browse start",
		slog.Int("builds", g.Len()),
		slog.Int("history", history.Len()),
	)

	m := newModel(ctx, g, history, logger)

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = p.Run()

	return err
}

func newModel(
	ctx context.Context,
	g *graph.Graph,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(filterPrompt)
	ti.Placeholder = "filter artifacts"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = defaultWidth - len(filterPrompt) - 2

	m := model{
		ctxFunc:    func() context.Context { return ctx },
		graph:      g,
		artifacts:  g.Artifacts(),
		input:      ti,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		height:     defaultHeight,
		view:       viewList,
	}

	m.refresh()

	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.logger.TraceContext(m.ctxFunc(), "browse keypress",
			slog.String("key", msg.String()),
		)

		if m.view == viewBuild {
			return m.handleBuildKey(msg)
		}

		return m.handleListKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - len(filterPrompt) - 2
		m.scroll()

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	if m.view == viewBuild {
		return m.renderBuild()
	}

	return m.renderList()
}

func (m model) handleListKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEsc:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.historyIdx = m.history.Len()
		m.refresh()

		return m, nil

	case tea.KeyUp:
		m.move(-1)

		return m, nil

	case tea.KeyDown:
		m.move(1)

		return m, nil

	case tea.KeyPgUp:
		m.move(-m.rows())

		return m, nil

	case tea.KeyPgDown:
		m.move(m.rows())

		return m, nil

	case tea.KeyCtrlP:
		return m.recall(-1), nil

	case tea.KeyCtrlN:
		return m.recall(1), nil

	case tea.KeyEnter:
		if len(m.matches) == 0 {
			return m, nil
		}

		if err := m.history.Add(m.input.Value()); err != nil {
			m.logger.WarnContext(m.ctxFunc(), "could not save history",
				slog.Any("error", err))
		}

		m.historyIdx = m.history.Len()
		m.open(m.matches[m.selected].Str)

		return m, nil
	}

	var cmd tea.Cmd

	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh()

	return m, cmd
}

func (m model) handleBuildKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEsc, tea.KeyBackspace, tea.KeyLeft:
		m.back()

		return m, nil

	case tea.KeyUp:
		if m.edge > 0 {
			m.edge--
		}

		return m, nil

	case tea.KeyDown:
		if m.edge < len(m.edges())-1 {
			m.edge++
		}

		return m, nil

	case tea.KeyEnter, tea.KeyRight:
		edges := m.edges()
		if m.edge < len(edges) {
			if _, ok := m.graph.Get(edges[m.edge].artifact); ok {
				m.open(edges[m.edge].artifact)
			}
		}

		return m, nil

	case tea.KeyRunes:
		if msg.String() == "q" {
			m.quitting = true

			return m, tea.Quit
		}
	}

	return m, nil
}

// refresh recomputes the matches of the current query. An empty query
// matches every artifact in emission order.
func (m *model) refresh() {
	query := m.input.Value()

	if query == "" {
		m.matches = make(fuzzy.Matches, len(m.artifacts))
		for i, a := range m.artifacts {
			m.matches[i] = fuzzy.Match{Str: a, Index: i}
		}
	} else {
		m.matches = fuzzy.Find(query, m.artifacts)
	}

	m.selected = 0
	m.offset = 0
}

// move shifts the selection by delta rows, clamped to the matches.
func (m *model) move(delta int) {
	m.selected = max(0, min(m.selected+delta, len(m.matches)-1))
	m.scroll()
}

// scroll keeps the selection inside the visible rows.
func (m *model) scroll() {
	rows := m.rows()

	switch {
	case m.selected < m.offset:
		m.offset = m.selected
	case m.selected >= m.offset+rows:
		m.offset = m.selected - rows + 1
	}
}

// rows returns the number of artifact rows that fit the terminal.
func (m model) rows() int {
	return max(1, m.height-reserved)
}

// recall replaces the query with an older (dir < 0) or newer history entry.
// Moving past the newest entry clears the query.
func (m model) recall(dir int) model {
	idx := m.historyIdx + dir
	if idx < 0 || idx > m.history.Len() {
		return m
	}

	m.historyIdx = idx

	query, err := m.history.Get(idx)
	if err != nil {
		query = ""
	}

	m.input.SetValue(query)
	m.input.CursorEnd()
	m.refresh()

	return m
}

func (m *model) open(artifact string) {
	m.trail = append(m.trail, artifact)
	m.edge = 0
	m.view = viewBuild
}

func (m *model) back() {
	if len(m.trail) > 0 {
		m.trail = m.trail[:len(m.trail)-1]
	}

	m.edge = 0

	if len(m.trail) == 0 {
		m.view = viewList
	}
}

// current returns the build shown in the build view.
func (m model) current() (*graph.Build, bool) {
	if len(m.trail) == 0 {
		return nil, false
	}

	return m.graph.Get(m.trail[len(m.trail)-1])
}

// edgeKind labels a dependency in the build view.
type edgeKind string

const (
	edgeExplicit  edgeKind = "dep"
	edgeImplicit  edgeKind = "implicit"
	edgeOrderOnly edgeKind = "order"
)

type edge struct {
	kind     edgeKind
	artifact string
}

// edges returns the dependencies of the current build in manifest order.
func (m model) edges() []edge {
	b, ok := m.current()
	if !ok {
		return nil
	}

	out := make([]edge, 0, len(b.Deps)+len(b.Implicit)+len(b.OrderOnly))

	for _, d := range b.Deps {
		out = append(out, edge{edgeExplicit, d})
	}

	for _, d := range b.Implicit.Sorted() {
		out = append(out, edge{edgeImplicit, d})
	}

	for _, d := range b.OrderOnly.Sorted() {
		out = append(out, edge{edgeOrderOnly, d})
	}

	return out
}
