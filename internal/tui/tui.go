// Package tui implements the interactive terminal front-end. A single
// bubbletea event loop owns all state; data arrives as messages from
// commands so the model is never touched concurrently.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ssarlove/polyterm/internal/client"
	"github.com/ssarlove/polyterm/internal/domain"
)

// Service is the slice of the aggregation client the UI consumes.
type Service interface {
	ListMarkets(ctx context.Context, q client.Query) ([]domain.Market, error)
	GetMarket(ctx context.Context, conditionID string) (domain.Market, error)
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
	GetPrice(ctx context.Context, tokenID string) (domain.PriceQuote, error)
}

type mode int

const (
	modeList mode = iota
	modeDetail
	modeBook
)

const (
	defaultRefreshEvery = 10 * time.Second
	defaultPageSize     = 20
	fetchTimeout        = 15 * time.Second
)

// Options tune the event loop. Zero values fall back to defaults.
type Options struct {
	RefreshEvery time.Duration
	PageSize     int
	ActiveOnly   bool
	Logger       *slog.Logger
}

type marketsMsg struct {
	markets []domain.Market
	err     error
}

type bookMsg struct {
	book domain.OrderBook
	err  error
}

type marketMsg struct {
	market domain.Market
	err    error
}

type quoteMsg struct {
	quote domain.PriceQuote
	err   error
}

type tickMsg time.Time

// Model is the bubbletea model for the browser. svc serves periodic
// refreshes through the cache; fresh bypasses it for manual refresh.
type Model struct {
	svc   Service
	fresh Service

	mode      mode
	markets   []domain.Market
	cursor    int
	selected  domain.Market
	outcome   int
	book      domain.OrderBook
	bookToken string
	quote     domain.PriceQuote

	search    textinput.Model
	searching bool
	filter    string

	refreshing bool
	status     string
	lastUpdate time.Time

	width  int
	height int

	refreshEvery time.Duration
	pageSize     int
	activeOnly   bool
	logger       *slog.Logger
}

// NewModel builds the initial model. fresh must be a cache-bypassing view
// of the same client as svc.
func NewModel(svc, fresh Service, opts Options) Model {
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = defaultRefreshEvery
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	search := textinput.New()
	search.Placeholder = "filter markets"
	search.Prompt = "/"
	search.CharLimit = 80

	return Model{
		svc:          svc,
		fresh:        fresh,
		search:       search,
		refreshEvery: opts.RefreshEvery,
		pageSize:     opts.PageSize,
		activeOnly:   opts.ActiveOnly,
		logger:       logger.With(slog.String("component", "tui")),
	}
}

// Run starts the event loop and blocks until the user quits.
func Run(svc, fresh Service, opts Options) error {
	p := tea.NewProgram(NewModel(svc, fresh, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadMarkets(false), m.tick())
}

func (m Model) query() client.Query {
	return client.Query{
		Filter:     m.filter,
		ActiveOnly: m.activeOnly,
		Limit:      m.pageSize,
	}
}

func (m Model) loadMarkets(bypass bool) tea.Cmd {
	svc := m.svc
	if bypass {
		svc = m.fresh
	}
	q := m.query()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		markets, err := svc.ListMarkets(ctx, q)
		return marketsMsg{markets: markets, err: err}
	}
}

func (m Model) loadBook(tokenID string, bypass bool) tea.Cmd {
	svc := m.svc
	if bypass {
		svc = m.fresh
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		book, err := svc.GetOrderBook(ctx, tokenID)
		return bookMsg{book: book, err: err}
	}
}

func (m Model) loadQuote(tokenID string, bypass bool) tea.Cmd {
	svc := m.svc
	if bypass {
		svc = m.fresh
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		quote, err := svc.GetPrice(ctx, tokenID)
		return quoteMsg{quote: quote, err: err}
	}
}

func (m Model) loadMarket(conditionID string, bypass bool) tea.Cmd {
	svc := m.svc
	if bypass {
		svc = m.fresh
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		market, err := svc.GetMarket(ctx, conditionID)
		return marketMsg{market: market, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// One refresh in flight at a time; a slow fetch skips ticks
		// instead of stacking requests.
		if m.refreshing || m.searching {
			return m, m.tick()
		}
		m.refreshing = true
		cmds := []tea.Cmd{m.loadMarkets(false), m.tick()}
		switch m.mode {
		case modeDetail:
			cmds = append(cmds, m.loadMarket(m.selected.ConditionID, false))
		case modeBook:
			cmds = append(cmds, m.loadBook(m.bookToken, false), m.loadQuote(m.bookToken, false))
		}
		return m, tea.Batch(cmds...)

	case marketsMsg:
		m.refreshing = false
		if msg.err != nil {
			// Keep the last good list visible; the failure goes to
			// the status bar only.
			m.status = "refresh failed: " + msg.err.Error()
			m.logger.Warn("market refresh failed", slog.String("error", msg.err.Error()))
			return m, nil
		}
		m.markets = msg.markets
		m.lastUpdate = time.Now()
		m.status = ""
		if m.cursor >= len(m.markets) {
			m.cursor = max(0, len(m.markets)-1)
		}
		return m, nil

	case bookMsg:
		if msg.err != nil {
			m.status = "order book: " + msg.err.Error()
			return m, nil
		}
		m.book = msg.book
		m.status = ""
		if msg.book.Warning != "" {
			m.status = msg.book.Warning
		}
		return m, nil

	case marketMsg:
		if msg.err != nil {
			m.status = "market: " + msg.err.Error()
			return m, nil
		}
		m.selected = msg.market
		return m, nil

	case quoteMsg:
		// The book view works without a quote; a failed quote fetch is
		// not worth a status-bar message on its own.
		if msg.err == nil {
			m.quote = msg.quote
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.filter = m.search.Value()
		m.search.Blur()
		m.cursor = 0
		m.refreshing = true
		return m, m.loadMarkets(false)
	case "esc":
		m.searching = false
		m.search.SetValue(m.filter)
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.status = "refreshing"
		cmds := []tea.Cmd{m.loadMarkets(true)}
		switch m.mode {
		case modeDetail:
			cmds = append(cmds, m.loadMarket(m.selected.ConditionID, true))
		case modeBook:
			cmds = append(cmds, m.loadBook(m.bookToken, true), m.loadQuote(m.bookToken, true))
		}
		return m, tea.Batch(cmds...)

	case "/":
		if m.mode == modeList {
			m.searching = true
			m.search.SetValue(m.filter)
			m.search.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case "j", "down":
		return m.moveCursor(1), nil
	case "k", "up":
		return m.moveCursor(-1), nil

	case "enter":
		switch m.mode {
		case modeList:
			if m.cursor < len(m.markets) {
				m.selected = m.markets[m.cursor]
				m.outcome = 0
				m.mode = modeDetail
			}
			return m, nil
		case modeDetail:
			if m.outcome < len(m.selected.Outcomes) {
				m.bookToken = m.selected.Outcomes[m.outcome].TokenID
				m.book = domain.OrderBook{}
				m.quote = domain.PriceQuote{}
				m.mode = modeBook
				return m, tea.Batch(m.loadBook(m.bookToken, false), m.loadQuote(m.bookToken, false))
			}
			return m, nil
		}
		return m, nil

	case "esc":
		switch m.mode {
		case modeBook:
			m.mode = modeDetail
			m.status = ""
		case modeDetail:
			m.mode = modeList
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) moveCursor(delta int) Model {
	switch m.mode {
	case modeList:
		m.cursor = clamp(m.cursor+delta, 0, len(m.markets)-1)
	case modeDetail:
		m.outcome = clamp(m.outcome+delta, 0, len(m.selected.Outcomes)-1)
	}
	return m
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
