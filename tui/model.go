package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	rw "github.com/mattn/go-runewidth"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/store"
)

var _ tea.Model = Model{}

// healthInterval is how often the remote service is re-probed.
const healthInterval = 30 * time.Second

// transcript holds the rendered view of one conversation.
type transcript struct {
	blocks  []MessageBlock
	pending *AssistantBlock
}

// Model is the Bubble Tea model for the ragchat TUI. It renders one tab per
// conversation and drives turns through the StartTurn function; all message
// state lives in the store and reaches the model as notifications.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	store  *store.Store
	gate   *ragchat.DocumentGate
	start  StartTurn
	health HealthCheck
	theme  ragchat.Theme
	styles Styles

	tabs        []string
	active      int
	transcripts map[string]*transcript
	turns       map[string]Turn
	errs        map[string]error

	spin      spinner.Model
	notifCh   chan ragchat.Notification
	healthErr error
	ready     bool
}

// New creates the TUI model. It subscribes to the store, so it must be
// created before any turns run.
func New(st *store.Store, gate *ragchat.DocumentGate, start StartTurn, health HealthCheck, theme ragchat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		Input:       ti,
		store:       st,
		gate:        gate,
		start:       start,
		health:      health,
		theme:       theme,
		styles:      NewStyles(theme),
		tabs:        st.IDs(),
		transcripts: make(map[string]*transcript),
		turns:       make(map[string]Turn),
		errs:        make(map[string]error),
		spin:        sp,
		// The buffer absorbs bursts of pending updates. If it ever fills,
		// a dropped notification only delays rendering: the transcript is
		// rebuilt from the store when the turn settles.
		notifCh: make(chan ragchat.Notification, 1024),
	}

	for _, id := range m.tabs {
		m.transcripts[id] = m.rebuildTranscript(id)
	}

	st.Subscribe(func(n ragchat.Notification) {
		select {
		case m.notifCh <- n:
		default:
		}
	})

	return m
}

// Running returns whether the active conversation has a turn in flight.
func (m Model) Running() bool {
	_, ok := m.turns[m.currentID()]
	return ok
}

// Err returns the last turn error for the active conversation, if any.
func (m Model) Err() error { return m.errs[m.currentID()] }

// ActiveConversation returns the ID of the conversation currently shown.
func (m Model) ActiveConversation() string { return m.currentID() }

func (m Model) currentID() string {
	if len(m.tabs) == 0 {
		return ""
	}
	return m.tabs[m.active]
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick, listenNotifications(m.notifCh)}
	if m.health != nil {
		cmds = append(cmds, checkHealth(m.health))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case NotificationMsg:
		m = m.applyNotification(msg.Notification)
		return m, listenNotifications(m.notifCh)

	case TurnStartedMsg:
		if msg.Err != nil {
			m.errs[msg.ConversationID] = msg.Err
			if msg.ConversationID == m.currentID() {
				cmds = append(cmds, m.Input.Focus())
			}
			return m, tea.Batch(cmds...)
		}
		m.turns[msg.ConversationID] = msg.Turn
		return m, waitTurn(msg.ConversationID, msg.Turn)

	case TurnDoneMsg:
		delete(m.turns, msg.ConversationID)
		if msg.Err != nil && !cancelled(msg.Err) {
			m.errs[msg.ConversationID] = msg.Err
		}
		// Notifications can be dropped under load; resync from the store
		// now that the turn is settled.
		m.transcripts[msg.ConversationID] = m.rebuildTranscript(msg.ConversationID)
		if msg.ConversationID == m.currentID() {
			m.syncViewport()
			cmds = append(cmds, m.Input.Focus())
		}
		return m, tea.Batch(cmds...)

	case HealthMsg:
		m.healthErr = msg.Err
		if m.health != nil {
			cmds = append(cmds, tea.Tick(healthInterval, func(time.Time) tea.Msg {
				return checkHealth(m.health)()
			}))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.Running() {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const (
		tabsHeight   = 1
		statusHeight = 1
		inputHeight  = 1
	)
	vpHeight := msg.Height - tabsHeight - statusHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.syncViewport()
	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if t, ok := m.turns[m.currentID()]; ok {
			t.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if t, ok := m.turns[m.currentID()]; ok {
			t.Cancel()
		}
		return m, nil

	case tea.KeyEnter:
		if m.Running() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyTab:
		return m.switchTab(1), nil

	case tea.KeyShiftTab:
		return m.switchTab(-1), nil
	}

	// When idle, pass keys to both the input (for typing) and the viewport
	// (for scrolling). Only non-character keys go to the viewport so typed
	// letters don't double as scroll keys.
	if !m.Running() {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) switchTab(delta int) Model {
	if len(m.tabs) < 2 {
		return m
	}
	m.active = (m.active + delta + len(m.tabs)) % len(m.tabs)
	m.syncViewport()
	if m.Running() {
		m.Input.Blur()
	} else {
		m.Input.Focus()
	}
	return m
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	id := m.currentID()
	m.Input.SetValue("")
	delete(m.errs, id)
	m.Input.Blur()

	start := m.start
	return m, func() tea.Msg {
		t, err := start(context.Background(), id, text)
		return TurnStartedMsg{ConversationID: id, Turn: t, Err: err}
	}
}

// applyNotification routes a store notification to the owning transcript.
func (m Model) applyNotification(n ragchat.Notification) Model {
	var id string

	switch n := n.(type) {
	case ragchat.ConversationCreated:
		id = n.ConversationID
		if _, ok := m.transcripts[id]; !ok {
			m.tabs = append(m.tabs, id)
			m.transcripts[id] = &transcript{}
		}

	case ragchat.MessageAppended:
		id = n.ConversationID
		if t := m.transcripts[id]; t != nil && n.Message.Role() == ragchat.RoleUser {
			t.blocks = append(t.blocks, NewUserBlock(n.Message.Text(), m.styles))
		}

	case ragchat.PendingStarted:
		id = n.ConversationID
		if t := m.transcripts[id]; t != nil {
			t.pending = NewAssistantBlock(m.theme)
			t.blocks = append(t.blocks, t.pending)
		}

	case ragchat.PendingUpdated:
		id = n.ConversationID
		if t := m.transcripts[id]; t != nil && t.pending != nil {
			t.pending.SetContent(n.Content)
		}

	case ragchat.PendingFinalized:
		id = n.ConversationID
		if t := m.transcripts[id]; t != nil && t.pending != nil {
			t.pending.SetContent(n.Message.Text())
			t.pending = nil
		}

	case ragchat.PendingDiscarded:
		id = n.ConversationID
		if t := m.transcripts[id]; t != nil && t.pending != nil {
			t.blocks = t.blocks[:len(t.blocks)-1]
			t.pending = nil
		}
	}

	if id == m.currentID() {
		m.syncViewport()
	}
	return m
}

// rebuildTranscript reconstructs a conversation's blocks from the store.
func (m Model) rebuildTranscript(id string) *transcript {
	t := &transcript{}
	history, err := m.store.History(id, false)
	if err != nil {
		return t
	}
	for _, msg := range history {
		switch msg.Role() {
		case ragchat.RoleUser:
			t.blocks = append(t.blocks, NewUserBlock(msg.Text(), m.styles))
		case ragchat.RoleAssistant, ragchat.RolePendingAssistant:
			b := NewAssistantBlock(m.theme)
			b.SetContent(msg.Text())
			t.blocks = append(t.blocks, b)
			if msg.Role() == ragchat.RolePendingAssistant {
				t.pending = b
			}
		}
	}
	return t
}

func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	t := m.transcripts[m.currentID()]
	if t == nil || len(t.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range t.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) tabBar() string {
	var b strings.Builder
	for i, id := range m.tabs {
		label := id
		if gated, err := m.store.Gated(id); err == nil && gated {
			label += " (doc)"
		}
		if i == m.active {
			b.WriteString(m.styles.ActiveTab.Render("[" + label + "]"))
		} else {
			b.WriteString(m.styles.Tab.Render(label))
		}
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.Running() {
		return m.spin.View() + m.styles.Muted.Render("Generating... (Esc to cancel)")
	}
	// Truncate before styling so escape sequences don't count toward the
	// display width.
	text, style := m.statusText()
	if w := m.Viewport.Width; w > 0 {
		text = rw.Truncate(text, w, "…")
	}
	return style.Render(text)
}

func (m Model) statusText() (string, lipgloss.Style) {
	id := m.currentID()

	if err := m.errs[id]; err != nil {
		return fmt.Sprintf("Error: %v", err), m.styles.Error
	}
	if gated, err := m.store.Gated(id); err == nil && gated {
		status := m.gate.Status()
		if !status.Ready {
			msg := status.Message
			if msg == "" {
				msg = "No document indexed yet."
			}
			return msg, m.styles.Muted
		}
		summary := fmt.Sprintf("Document ready: %d chunks, %d characters", status.Chunks, status.TotalCharacters)
		return summary, m.styles.Success
	}
	if m.healthErr != nil {
		return "Server unreachable: " + m.healthErr.Error(), m.styles.Error
	}
	return "Enter to send, Tab to switch, Ctrl+C to quit", m.styles.Muted
}

// cancelled reports whether a turn error is a user cancellation, which is
// not surfaced as an error in the status line.
func cancelled(err error) bool {
	var te *ragchat.TurnError
	if errors.As(err, &te) {
		return te.Reason == ragchat.ReasonCancelled
	}
	return false
}

// listenNotifications waits for the next store notification.
func listenNotifications(ch <-chan ragchat.Notification) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg{Notification: <-ch}
	}
}

// waitTurn blocks until the turn settles and reports the outcome.
func waitTurn(conversationID string, t Turn) tea.Cmd {
	return func() tea.Msg {
		<-t.Done()
		return TurnDoneMsg{ConversationID: conversationID, Err: t.Err()}
	}
}

// checkHealth probes the service with a bounded timeout.
func checkHealth(health HealthCheck) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return HealthMsg{Err: health(ctx)}
	}
}
