package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/matheuskafuri/stocktracker/internal/browser"
	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/logging"
	"github.com/matheuskafuri/stocktracker/internal/notify"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
	"github.com/matheuskafuri/stocktracker/internal/store"
)

type (
	RatingsStore         = store.Store[stocks.RatingEvent, stocks.Filter]
	RecommendationsStore = store.Store[stocks.Recommendation, stocks.Filter]
)

type screen int

const (
	screenRatings screen = iota
	screenRecommendations
	screenNotFound
)

func (s screen) title() string {
	switch s {
	case screenRatings:
		return "Ratings"
	case screenRecommendations:
		return "Recommendations"
	}
	return "Not found"
}

// parseScreen maps a route name to a screen. Unknown names land on the
// not-found screen.
func parseScreen(name string) screen {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ratings", "home":
		return screenRatings
	case "recommendations", "recs":
		return screenRecommendations
	}
	return screenNotFound
}

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeHelp
)

type loader interface {
	Load(ctx context.Context, force bool) error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Ratings         *RatingsStore
	Recommendations *RecommendationsStore
	Notifier        *notify.Center
	Formatter       *format.Formatter
	Logger          *zap.Logger
	QuoteURL        string
	RefreshInterval time.Duration
	// Screen is the route to open on: "ratings", "recommendations", or
	// anything else for the not-found screen.
	Screen       string
	Filter       stocks.Filter
	ForceRefresh bool
	// LastRefresh is when the seeded ratings were stored.
	LastRefresh time.Time
}

type App struct {
	ratings  *RatingsStore
	recs     *RecommendationsStore
	notifier *notify.Center
	fmt      *format.Formatter
	log      *zap.Logger

	quoteURL     string
	refreshEvery time.Duration
	forceFirst   bool

	screen  screen
	route   string
	mode    mode
	focus   focusPane
	cursors [2]int

	width  int
	height int

	spinner     spinner.Model
	filterBar   filterBar
	filterSaved stocks.Filter
	detail      detailPane

	pending     [2]int
	lastLoaded  [2]time.Time
	openErr     error
	currentDate string
}

func NewApp(opts RunOpts) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	f := opts.Formatter
	if f == nil {
		f = format.Default()
	}
	n := opts.Notifier
	if n == nil {
		n = notify.New()
	}
	log := logging.OrNop(opts.Logger)

	if !opts.Filter.IsZero() {
		opts.Ratings.SetFilter(opts.Filter)
		opts.Recommendations.SetFilter(opts.Filter)
	}

	a := &App{
		ratings:      opts.Ratings,
		recs:         opts.Recommendations,
		notifier:     n,
		fmt:          f,
		log:          log,
		quoteURL:     opts.QuoteURL,
		refreshEvery: opts.RefreshInterval,
		forceFirst:   opts.ForceRefresh,
		screen:       parseScreen(opts.Screen),
		route:        opts.Screen,
		spinner:      sp,
		filterBar:    newFilterBar(),
		detail:       newDetailPane(),
		currentDate:  time.Now().Format("Jan 2"),
	}
	a.lastLoaded[screenRatings] = opts.LastRefresh
	return a
}

func (a *App) Init() tea.Cmd {
	var cmds []tea.Cmd
	if a.screen != screenNotFound {
		cmds = append(cmds, a.startLoad(a.screen, a.forceFirst))
	}
	cmds = append(cmds, a.refreshTick())
	return tea.Batch(cmds...)
}

func (a *App) loaderFor(s screen) loader {
	if s == screenRecommendations {
		return a.recs
	}
	return a.ratings
}

// loadCmd runs the store's Load off the update loop.
func (a *App) loadCmd(s screen, force bool) tea.Cmd {
	l := a.loaderFor(s)
	return func() tea.Msg {
		return loadedMsg{screen: s, err: l.Load(context.Background(), force)}
	}
}

func (a *App) startLoad(s screen, force bool) tea.Cmd {
	a.pending[s]++
	return tea.Batch(a.loadCmd(s, force), a.spinner.Tick)
}

func (a *App) loading() bool {
	return a.pending[screenRatings] > 0 || a.pending[screenRecommendations] > 0
}

func (a *App) refreshTick() tea.Cmd {
	if a.refreshEvery <= 0 {
		return nil
	}
	return tea.Tick(a.refreshEvery, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func openQuoteCmd(template, ticker string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.OpenQuote(template, ticker); err != nil {
			return openErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.syncDetail()
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return nil

	case tea.KeyMsg:
		// Clear sticky errors on any keypress
		a.openErr = nil
		a.notifier.Clear()
		return a.handleKey(msg)

	case loadedMsg:
		if a.pending[msg.screen] > 0 {
			a.pending[msg.screen]--
		}
		if msg.err == nil {
			a.lastLoaded[msg.screen] = time.Now()
		}
		a.clampCursor(msg.screen)
		return nil

	case openErrMsg:
		a.openErr = msg.err
		a.log.Warn("opening quote page failed", zap.Error(msg.err))
		return nil

	case refreshTickMsg:
		cmds := []tea.Cmd{a.refreshTick()}
		if a.screen != screenNotFound && a.pending[a.screen] == 0 {
			cmds = append(cmds, a.startLoad(a.screen, true))
		}
		return tea.Batch(cmds...)

	case spinner.TickMsg:
		if a.loading() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return cmd
		}
		return nil
	}

	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Global keys
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	switch a.mode {
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		switch msg.String() {
		case "?", "esc", "q":
			a.mode = modeNormal
		}
		return nil
	}

	if a.screen == screenNotFound {
		return a.handleNotFoundKey(msg)
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "j", "down":
		if a.focus == focusPreview {
			a.detail.lineDown()
		} else if a.cursors[a.screen] < a.count(a.screen)-1 {
			a.cursors[a.screen]++
		}
		return nil
	case "k", "up":
		if a.focus == focusPreview {
			a.detail.lineUp()
		} else if a.cursors[a.screen] > 0 {
			a.cursors[a.screen]--
		}
		return nil
	case "g", "home":
		a.cursors[a.screen] = 0
		return nil
	case "G", "end":
		a.cursors[a.screen] = max(0, a.count(a.screen)-1)
		return nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return nil
	case "1":
		return a.switchTo(screenRatings)
	case "2":
		return a.switchTo(screenRecommendations)
	case "o", "enter":
		if t := a.selectedTicker(); t != "" {
			return openQuoteCmd(a.quoteURL, t)
		}
		return nil
	case "/", "f":
		a.mode = modeFilter
		a.filterSaved = a.activeFilter()
		return a.filterBar.open(a.filterSaved)
	case "c":
		a.setFilter(stocks.Filter{})
		return nil
	case "r":
		if a.pending[a.screen] == 0 {
			return a.startLoad(a.screen, true)
		}
		return nil
	case "?":
		a.mode = modeHelp
		return nil
	}

	return nil
}

func (a *App) handleNotFoundKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "1", "h", "enter":
		return a.switchTo(screenRatings)
	case "2":
		return a.switchTo(screenRecommendations)
	case "?":
		a.mode = modeHelp
	}
	return nil
}

func (a *App) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.setFilter(a.filterSaved)
		a.filterBar.close()
		a.mode = modeNormal
		return nil
	case "enter":
		a.filterBar.close()
		a.mode = modeNormal
		return nil
	case "tab", "down":
		return a.filterBar.next()
	case "shift+tab", "up":
		return a.filterBar.prev()
	case "ctrl+u":
		a.filterBar.clear()
		a.setFilter(stocks.Filter{})
		return nil
	}

	cmd := a.filterBar.update(msg)
	a.setFilter(a.filterBar.value())
	return cmd
}

// switchTo shows s, loading it unless it is already loaded.
func (a *App) switchTo(s screen) tea.Cmd {
	a.screen = s
	a.focus = focusList
	a.log.Debug("screen", zap.String("name", s.title()))
	if a.pending[s] > 0 {
		return nil
	}
	return a.startLoad(s, false)
}

func (a *App) activeFilter() stocks.Filter {
	if a.screen == screenRecommendations {
		return a.recs.Filter()
	}
	return a.ratings.Filter()
}

// setFilter applies f to the active screen's store. Never fetches.
func (a *App) setFilter(f stocks.Filter) {
	if a.screen == screenRecommendations {
		a.recs.SetFilter(f)
	} else {
		a.ratings.SetFilter(f)
	}
	a.cursors[a.screen] = 0
}

func (a *App) count(s screen) int {
	if s == screenRecommendations {
		return len(a.recs.Filtered())
	}
	return len(a.ratings.Filtered())
}

func (a *App) clampCursor(s screen) {
	if s == screenNotFound {
		return
	}
	if n := a.count(s); a.cursors[s] >= n {
		a.cursors[s] = max(0, n-1)
	}
}

func (a *App) selectedEvent() *stocks.RatingEvent {
	items := a.ratings.Filtered()
	c := a.cursors[screenRatings]
	if c < 0 || c >= len(items) {
		return nil
	}
	return &items[c]
}

func (a *App) selectedRecommendation() *stocks.Recommendation {
	items := a.recs.Filtered()
	c := a.cursors[screenRecommendations]
	if c < 0 || c >= len(items) {
		return nil
	}
	return &items[c]
}

func (a *App) selectedTicker() string {
	switch a.screen {
	case screenRatings:
		if e := a.selectedEvent(); e != nil {
			return e.Ticker
		}
	case screenRecommendations:
		if r := a.selectedRecommendation(); r != nil {
			return r.Ticker
		}
	}
	return ""
}

type layout struct {
	listWidth     int
	previewWidth  int
	contentHeight int
}

func (a *App) layout() layout {
	headerHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders
	if contentHeight < 3 {
		contentHeight = 3
	}
	listWidth := int(float64(a.width) * 0.45)
	return layout{
		listWidth:     listWidth,
		previewWidth:  a.width - listWidth - 1, // gap
		contentHeight: contentHeight,
	}
}

// syncDetail points the detail viewport at the current selection.
func (a *App) syncDetail() {
	if a.width == 0 || a.screen == screenNotFound {
		return
	}
	l := a.layout()
	inner := l.previewWidth - 4
	a.detail.resize(inner, l.contentHeight)

	switch a.screen {
	case screenRatings:
		e := a.selectedEvent()
		key := "ratings:none"
		if e != nil {
			key = fmt.Sprintf("ratings:%d", e.ID)
		}
		a.detail.show(key, renderEventDetail(e, a.fmt, a.quoteURL, inner, l.contentHeight))
	case screenRecommendations:
		r := a.selectedRecommendation()
		key := "recs:none"
		if r != nil {
			key = fmt.Sprintf("recs:%d:%s", r.ID, r.Score)
		}
		a.detail.show(key, renderRecommendationDetail(r, a.fmt, a.quoteURL, inner, l.contentHeight))
	}
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  stocktracker")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  q quit")
	}

	if a.screen == screenNotFound {
		return a.withBottomBar(a.renderNotFound(), "1 ratings  2 recommendations  q quit")
	}

	l := a.layout()

	// Header
	headerLeft := headerStyle.Render("stocktracker")
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	// Tabs, replaced by the inputs while filtering
	bar := renderTabs(a.screen, a.activeFilter(), a.width)
	if a.mode == modeFilter {
		bar = a.filterBar.render(a.width)
	}

	// List pane
	innerListW := l.listWidth - 4 // border + padding
	var (
		listContent string
		status      statusInfo
	)
	switch a.screen {
	case screenRatings:
		snap := a.ratings.Snapshot()
		listContent = renderList(len(snap.Filtered), a.cursors[screenRatings], l.contentHeight, innerListW,
			emptyText(snap.State, "No ratings match"),
			func(i int, selected bool) string {
				return renderEventItem(snap.Filtered[i], a.fmt, selected, innerListW)
			})
		status = statusInfo{shown: len(snap.Filtered), total: len(snap.Items), noun: "ratings", errorText: snap.Err}
	case screenRecommendations:
		snap := a.recs.Snapshot()
		listContent = renderList(len(snap.Filtered), a.cursors[screenRecommendations], l.contentHeight, innerListW,
			emptyText(snap.State, "No recommendations match"),
			func(i int, selected bool) string {
				return renderRecommendationItem(snap.Filtered[i], i+1, selected, innerListW)
			})
		status = statusInfo{shown: len(snap.Filtered), total: len(snap.Items), noun: "recommendations", errorText: snap.Err}
	}

	listStyle, previewStyle := listPaneStyle, previewPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	} else {
		previewStyle = previewPaneActiveStyle
	}
	listPane := listStyle.Width(l.listWidth - 2).Height(l.contentHeight).Render(listContent)
	previewPane := previewStyle.Width(l.previewWidth - 2).Height(l.contentHeight).Render(a.detail.View())

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	// Status bar
	if t := a.lastLoaded[a.screen]; !t.IsZero() {
		status.updated = relativeTime(t)
	}
	status.loading = a.pending[a.screen] > 0
	status.spinner = a.spinner.View()
	status.hints = "1/2 screens  / filter  r reload  o open  ? help  q quit"
	if a.mode == modeFilter {
		status.hints = "tab next field  ctrl+u clear  esc cancel  enter done"
	}
	if rec, ok := a.notifier.Current(); ok && rec.Message != status.errorText {
		status.errorText = strings.TrimSpace(status.errorText + " " + rec.Message)
	}
	if a.openErr != nil {
		status.errorText = a.openErr.Error()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, content, renderStatusBar(status, a.width))
}

func emptyText(s store.State, noMatch string) string {
	switch s {
	case store.Idle, store.Loading:
		return "Loading..."
	case store.Error:
		return "Nothing loaded yet. Press r to retry."
	}
	return noMatch
}

func (a *App) renderNotFound() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("Not found")
	body := fmt.Sprintf("There is no %q screen.", a.route) + "\n\n" +
		helpDimStyle.Render("Press 1 for ratings or 2 for recommendations.")
	card := helpCardStyle.Render(title + "\n\n" + body)
	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("stocktracker")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move through the list\n" +
		"  g/G           Jump to top or bottom\n" +
		"  tab           Switch focus between list and details\n" +
		"  1, 2          Ratings or recommendations\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open quote page in browser\n" +
		"  r             Reload from the API\n" +
		"  /, f          Filter by ticker, brokerage, company\n" +
		"  c             Clear filter\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  tab/shift+tab Move between fields\n" +
		"  ctrl+u        Clear all fields\n" +
		"  enter         Keep filter\n" +
		"  esc           Restore previous filter\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
