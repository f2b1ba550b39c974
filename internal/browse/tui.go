package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/leadradar/internal/model"
)

// Lines per item in the list panes (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// companyHistory is one company's records, newest first.
type companyHistory struct {
	Name    string
	Records []model.SignalRecord
}

func (c companyHistory) latest() float64 {
	if len(c.Records) == 0 {
		return 0
	}
	return c.Records[0].Timestamp
}

// groupHistory turns a collection into companies ordered by most recent signal.
func groupHistory(history map[string][]model.SignalRecord) []companyHistory {
	out := make([]companyHistory, 0, len(history))
	for name, recs := range history {
		sorted := slices.Clone(recs)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })
		out = append(out, companyHistory{Name: name, Records: sorted})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].latest() != out[j].latest() {
			return out[i].latest() > out[j].latest()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type historyModel struct {
	role          string
	companies     []companyHistory
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=companies, 1=records
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detailViewport viewport.Model

	wantQuit bool
}

func (m historyModel) Init() tea.Cmd {
	return nil
}

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m historyModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m historyModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if rec, ok := m.selectedRecord(); ok && rec.SourceURL != "" {
			openURL(rec.SourceURL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *historyModel) moveCursor(delta int) {
	if m.activePane == 0 {
		prev := m.leftCursor
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.companies)-1, 0))
		if m.leftCursor != prev {
			m.rightCursor = 0
			m.rightViewport.SetYOffset(0)
		}
		return
	}
	m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.selectedRecords())-1, 0))
}

func (m *historyModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * itemHeight
	cursorBottom := cursorTop + itemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m historyModel) selectedRecords() []model.SignalRecord {
	if len(m.companies) == 0 {
		return nil
	}
	return m.companies[m.leftCursor].Records
}

func (m historyModel) selectedRecord() (model.SignalRecord, bool) {
	recs := m.selectedRecords()
	if len(recs) == 0 {
		return model.SignalRecord{}, false
	}
	return recs[m.rightCursor], true
}

func (m historyModel) openDetailView() (tea.Model, tea.Cmd) {
	if _, ok := m.selectedRecord(); !ok {
		return m, nil
	}
	m.view = viewDetail
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *historyModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *historyModel) recalcContent() {
	m.leftViewport.SetContent(renderCompanies(m.companies, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderRecords(m.selectedRecords(), m.rightCursor, m.activePane == 1, m.rightViewport.Width))
}

func (m historyModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m historyModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Companies (%d)", len(m.companies))
	rightHeader := " Signals"
	if len(m.companies) > 0 {
		c := m.companies[m.leftCursor]
		rightHeader = fmt.Sprintf(" %s (%d)", c.Name, len(c.Records))
	}

	leftHeaderSt, rightHeaderSt := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderSt, rightHeaderSt = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderSt.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderSt.Render(rightHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	total := 0
	for _, c := range m.companies {
		total += len(c.Records)
	}
	statusText := fmt.Sprintf(" %s | %d companies | %d signals    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		m.role, len(m.companies), total)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m historyModel) viewDetail() string {
	title := detailTitleStyle.Render("Signal Details")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" o open post  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m historyModel) renderDetail() string {
	rec, ok := m.selectedRecord()
	if !ok {
		return ""
	}
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Company", m.companies[m.leftCursor].Name)
	addField("Role", m.role)
	addField("Status", rec.Status)
	addField("Seen", formatTimestamp(rec.Timestamp, "2006-01-02 15:04 MST"))
	addField("Source", rec.SourceURL)
	addField("Hash", rec.Hash)

	wrapWidth := max(m.width-8, 20)
	b.WriteByte('\n')
	b.WriteString(dividerStyle.Render("── Context "+strings.Repeat("─", max(wrapWidth-11, 3))) + "\n\n")
	b.WriteString(bodyStyle.Render(wordWrap(rec.Context, wrapWidth)) + "\n")

	return b.String()
}

func renderCompanies(companies []companyHistory, cursor int, isActive bool) string {
	if len(companies) == 0 {
		return "  (no leads yet)"
	}

	var b strings.Builder
	for i, c := range companies {
		titleSt, subtitleSt, prefix := itemStyles(isActive && i == cursor)

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(c.Name))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%d signals · last %s", len(c.Records), formatTimestamp(c.latest(), "2006-01-02"))))
		b.WriteByte('\n')

		if i < len(companies)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderRecords(records []model.SignalRecord, cursor int, isActive bool, width int) string {
	if len(records) == 0 {
		return "  (no signals)"
	}

	var b strings.Builder
	for i, r := range records {
		titleSt, subtitleSt, prefix := itemStyles(isActive && i == cursor)

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(truncate(r.Context, max(width-4, 10))))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", r.Status, formatTimestamp(r.Timestamp, "2006-01-02"))))
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func itemStyles(selected bool) (lipgloss.Style, lipgloss.Style, string) {
	if selected {
		return selectedTitleStyle, selectedSubtitleStyle, "> "
	}
	return itemTitleStyle, itemSubtitleStyle, "  "
}

func formatTimestamp(ts float64, layout string) string {
	if ts <= 0 {
		return "n/a"
	}
	return time.Unix(int64(ts), 0).UTC().Format(layout)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunHistoryTUI launches the split-pane history browser for one role.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the role picker.
func RunHistoryTUI(role string, history map[string][]model.SignalRecord) (bool, error) {
	m := historyModel{
		role:      role,
		companies: groupHistory(history),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(historyModel)
	return final.wantQuit, nil
}
