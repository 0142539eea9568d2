package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	bidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	askStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("polyterm"))
	b.WriteString("\n\n")

	switch m.mode {
	case modeList:
		m.renderList(&b)
	case modeDetail:
		m.renderDetail(&b)
	case modeBook:
		m.renderBook(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderList(b *strings.Builder) {
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	} else if m.filter != "" {
		b.WriteString(dimStyle.Render("filter: " + m.filter))
		b.WriteString("\n\n")
	}

	if len(m.markets) == 0 {
		if m.refreshing {
			b.WriteString(dimStyle.Render("loading markets..."))
		} else {
			b.WriteString(dimStyle.Render("no markets"))
		}
		b.WriteString("\n")
		return
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-60s %12s %8s", "QUESTION", "VOLUME", "STATUS")))
	b.WriteString("\n")
	for i, mk := range m.markets {
		row := fmt.Sprintf("  %-60s %12s %8s",
			truncate(mk.Question, 60), renderVolume(mk), mk.Status)
		if i == m.cursor {
			row = selectedStyle.Render("> " + row[2:])
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
}

func (m Model) renderDetail(b *strings.Builder) {
	mk := m.selected
	b.WriteString(headerStyle.Render(truncate(mk.Question, 76)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  condition  %s\n", mk.ConditionID))
	b.WriteString(fmt.Sprintf("  status     %s\n", mk.Status))
	if mk.Category != "" {
		b.WriteString(fmt.Sprintf("  category   %s\n", mk.Category))
	}
	b.WriteString(fmt.Sprintf("  volume     %s\n", renderVolume(mk)))
	if mk.Liquidity.Valid {
		b.WriteString(fmt.Sprintf("  liquidity  %s\n", mk.Liquidity.Decimal.String()))
	}
	if mk.EndDate != nil {
		b.WriteString(fmt.Sprintf("  ends       %s\n", mk.EndDate.Format("2006-01-02 15:04 MST")))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-20s %10s %10s %10s", "OUTCOME", "PRICE", "BID", "ASK")))
	b.WriteString("\n")
	for i, o := range mk.Outcomes {
		row := fmt.Sprintf("  %-20s %10s %10s %10s",
			truncate(o.Label, 20), renderOpt(o.Price), renderOpt(o.BestBid), renderOpt(o.BestAsk))
		if i == m.outcome {
			row = selectedStyle.Render("> " + row[2:])
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	if sum, ok := mk.ProbabilitySum(); ok && !mk.ProbabilitiesConsistent() {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("  outcome prices sum to %s", sum.StringFixed(3))))
		b.WriteString("\n")
	}
}

func (m Model) renderBook(b *strings.Builder) {
	b.WriteString(headerStyle.Render(truncate(m.selected.Question, 76)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  token " + m.bookToken))
	b.WriteString("\n\n")

	if m.book.TokenID == "" {
		b.WriteString(dimStyle.Render("  loading order book..."))
		b.WriteString("\n")
		return
	}

	if m.quote.TokenID != "" {
		b.WriteString(fmt.Sprintf("  price %s", m.quote.Price.StringFixed(4)))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", m.quote.Source)))
		b.WriteString("\n")
	}
	if mid, ok := m.book.Midpoint(); ok {
		spread, _ := m.book.Spread()
		b.WriteString(fmt.Sprintf("  mid %s  spread %s\n", mid.StringFixed(4), spread.StringFixed(4)))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %10s %12s    %10s %12s", "BID", "SIZE", "ASK", "SIZE")))
	b.WriteString("\n")
	rows := len(m.book.Bids)
	if len(m.book.Asks) > rows {
		rows = len(m.book.Asks)
	}
	if rows == 0 {
		b.WriteString(dimStyle.Render("  book is empty"))
		b.WriteString("\n")
		return
	}
	for i := 0; i < rows; i++ {
		bid, ask := "", ""
		if i < len(m.book.Bids) {
			l := m.book.Bids[i]
			bid = bidStyle.Render(fmt.Sprintf("%10s %12s", l.Price.StringFixed(4), l.Size.StringFixed(2)))
		} else {
			bid = fmt.Sprintf("%10s %12s", "", "")
		}
		if i < len(m.book.Asks) {
			l := m.book.Asks[i]
			ask = askStyle.Render(fmt.Sprintf("%10s %12s", l.Price.StringFixed(4), l.Size.StringFixed(2)))
		}
		b.WriteString("  " + bid + "    " + ask + "\n")
	}
}

func (m Model) renderStatusBar() string {
	left := m.keyHints()
	right := ""
	switch {
	case m.status != "":
		right = warnStyle.Render(m.status)
	case m.refreshing:
		right = "refreshing..."
	case !m.lastUpdate.IsZero():
		right = dimStyle.Render("updated " + m.lastUpdate.Format("15:04:05"))
	}
	if right == "" {
		return statusStyle.Render(left)
	}
	return statusStyle.Render(left + "  " + right)
}

func (m Model) keyHints() string {
	switch m.mode {
	case modeList:
		if m.searching {
			return "enter apply  esc cancel"
		}
		return "j/k move  enter open  / search  r refresh  q quit"
	case modeDetail:
		return "j/k outcome  enter book  esc back  r refresh  q quit"
	default:
		return "esc back  r refresh  q quit"
	}
}

func renderVolume(mk domain.Market) string {
	if !mk.Volume.Valid {
		return "-"
	}
	return mk.Volume.Decimal.StringFixed(0)
}

func renderOpt(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(4)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
