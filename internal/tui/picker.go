package tui

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss"
)

// pickerItem is one row of a picker. ID is what the caller gets back.
type pickerItem struct {
	ID    string
	Label string
	Meta  string
}

// pickerState is a filterable single-select list. When useLabel is set, a
// query that matches no label exactly is offered as its own row.
type pickerState struct {
	title    string
	items    []pickerItem
	filtered []pickerItem
	query    string
	cursor   int
	useLabel string
}

type pickerAction int

const (
	pickerActionNone pickerAction = iota
	pickerActionMoved
	pickerActionSelected
	pickerActionTyped
	pickerActionCancelled
)

type pickerResult struct {
	Action pickerAction
	Item   pickerItem
}

type scoredPickerItem struct {
	item  pickerItem
	score int
}

func newPicker(title string, items []pickerItem, useLabel string) *pickerState {
	p := &pickerState{title: title, useLabel: strings.TrimSpace(useLabel)}
	p.SetItems(items)
	return p
}

func (p *pickerState) SetItems(items []pickerItem) {
	p.items = append([]pickerItem(nil), items...)
	p.rebuildFiltered()
}

func (p *pickerState) SetQuery(q string) {
	p.query = q
	p.rebuildFiltered()
}

// Focus moves the cursor to the row with id, if visible.
func (p *pickerState) Focus(id string) {
	for i, it := range p.filtered {
		if it.ID == id {
			p.cursor = i
			return
		}
	}
}

func (p *pickerState) HandleKey(keyName string) pickerResult {
	switch keyName {
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
			return pickerResult{Action: pickerActionMoved}
		}
		return pickerResult{Action: pickerActionNone}
	case "down", "ctrl+n", "tab":
		if p.cursor < p.maxCursorIndex() {
			p.cursor++
			return pickerResult{Action: pickerActionMoved}
		}
		return pickerResult{Action: pickerActionNone}
	case "enter":
		if p.onTypedRow() {
			return pickerResult{Action: pickerActionTyped, Item: pickerItem{ID: strings.TrimSpace(p.query)}}
		}
		if p.cursor < len(p.filtered) {
			return pickerResult{Action: pickerActionSelected, Item: p.filtered[p.cursor]}
		}
		return pickerResult{Action: pickerActionNone}
	case "esc":
		return pickerResult{Action: pickerActionCancelled}
	case "backspace":
		if q := []rune(p.query); len(q) > 0 {
			p.SetQuery(string(q[:len(q)-1]))
		}
		return pickerResult{Action: pickerActionNone}
	case "space", " ":
		p.SetQuery(p.query + " ")
		return pickerResult{Action: pickerActionNone}
	default:
		if r := []rune(keyName); len(r) == 1 {
			return p.HandleRunes(r)
		}
		return pickerResult{Action: pickerActionNone}
	}
}

// HandleRunes appends typed or pasted text to the query. Control characters
// are dropped.
func (p *pickerState) HandleRunes(runes []rune) pickerResult {
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		p.SetQuery(p.query + b.String())
	}
	return pickerResult{Action: pickerActionNone}
}

func (p *pickerState) View(width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render(p.title))
	query := strings.TrimSpace(p.query)
	filter := hintStyle.Render("(type to filter)")
	if query != "" {
		filter = query
	}
	lines = append(lines, labelStyle.Render("Filter: ")+filter)

	if len(p.filtered) == 0 && !p.showTypedRow() {
		lines = append(lines, hintStyle.Render("  nothing matches"))
	}
	for i, it := range p.filtered {
		row := it.Label
		if strings.TrimSpace(it.Meta) != "" {
			row += hintStyle.Render(" - " + it.Meta)
		}
		lines = append(lines, pickerRow(row, i == p.cursor, width))
	}
	if p.showTypedRow() {
		row := typedStyle.Render(p.useLabel + ` "` + query + `"`)
		lines = append(lines, pickerRow(row, p.onTypedRow(), width))
	}
	lines = append(lines, "", hintStyle.Render("↑/↓ navigate  enter select  esc cancel"))
	return strings.Join(lines, "\n")
}

func pickerRow(content string, isCursor bool, width int) string {
	marker := "  "
	style := lipgloss.NewStyle()
	if isCursor {
		marker = "▶ "
		style = cursorStyle
	}
	row := marker + content
	if width > 0 {
		row = truncate(row, width)
	}
	return style.Render(row)
}

func (p *pickerState) rebuildFiltered() {
	q := strings.TrimSpace(p.query)
	scored := make([]scoredPickerItem, 0, len(p.items))
	for _, it := range p.items {
		matched, score := fuzzyMatchScore(it.Label, q)
		if !matched {
			continue
		}
		scored = append(scored, scoredPickerItem{item: it, score: score})
	}
	if q != "" {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].score > scored[j].score
		})
	}
	p.filtered = p.filtered[:0]
	for _, s := range scored {
		p.filtered = append(p.filtered, s.item)
	}

	if maxIdx := p.maxCursorIndex(); p.cursor > maxIdx {
		p.cursor = maxIdx
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *pickerState) showTypedRow() bool {
	q := strings.TrimSpace(p.query)
	if p.useLabel == "" || q == "" {
		return false
	}
	for _, it := range p.items {
		if strings.EqualFold(strings.TrimSpace(it.Label), q) {
			return false
		}
	}
	return true
}

func (p *pickerState) onTypedRow() bool {
	return p.showTypedRow() && p.cursor == len(p.filtered)
}

func (p *pickerState) maxCursorIndex() int {
	count := len(p.filtered)
	if p.showTypedRow() {
		count++
	}
	return count - 1
}

// fuzzyMatchScore matches query as a subsequence of label. Prefix and
// consecutive hits score higher; edit distance breaks the remaining ties.
func fuzzyMatchScore(label, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	labelRunes := []rune(strings.ToLower(label))
	queryRunes := []rune(strings.ToLower(query))

	matchIdx := make([]int, 0, len(queryRunes))
	searchFrom := 0
	for _, qr := range queryRunes {
		j := searchFrom
		for j < len(labelRunes) && labelRunes[j] != qr {
			j++
		}
		if j == len(labelRunes) {
			return false, 0
		}
		matchIdx = append(matchIdx, j)
		searchFrom = j + 1
	}

	score := len(queryRunes) * 10
	if matchIdx[0] == 0 {
		score += 100
	}
	for i := 1; i < len(matchIdx); i++ {
		if matchIdx[i] == matchIdx[i-1]+1 {
			score += 30
		}
	}
	if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(query)) {
		score += 200
	}
	dist := levenshtein.ComputeDistance(string(labelRunes), string(queryRunes))
	if dist < 10 {
		score += 10 - dist
	}
	return true, score
}
