// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/ui/styles"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// statusTTL is how long a status message stays in the status bar.
const statusTTL = 4 * time.Second

// profileURLPrefix builds a profile URL when none has been fetched.
const profileURLPrefix = "https://steamcommunity.com/profiles/"

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps is everything the dashboard reads or writes outside itself.
type Deps struct {
	Store *account.Store

	// Resolver opens the profile cache. It is called on the UI goroutine.
	Resolver func() (*profile.Resolver, error)
	Backups  func() *backup.Manager

	Clipboard func(string) error
	OpenURL   func(string) error
	Now       func() time.Time
	Logger    *logrus.Logger

	// Changes delivers watcher events; nil disables live reload.
	Changes <-chan account.ChangeEvent

	Refresh        time.Duration
	ProfileTimeout time.Duration
	ShowSecrets    bool
	Offline        bool
}

// =============================================================================
// MODEL
// =============================================================================

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

type statusLine struct {
	text  string
	kind  statusKind
	until time.Time
}

// Model is the account table with its detail pane.
type Model struct {
	deps  Deps
	theme *styles.Theme
	log   *logrus.Entry
	gen   *steamguard.Generator

	keys     KeyMap
	help     help.Model
	table    table.Model
	filter   textinput.Model
	spinner  spinner.Model
	progress progress.Model

	accounts []*account.Account
	visible  []*account.Account

	profiles map[string]*profile.Profile
	looked   map[string]bool // SteamIDs already checked in the cache
	loading  map[string]bool
	busy     string

	filtering bool
	status    statusLine
	now       time.Time
	loadErr   error

	width, height int
	ready         bool
}

// New creates the dashboard model.
func New(theme *styles.Theme, deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Refresh <= 0 {
		deps.Refresh = time.Second
	}
	if deps.ProfileTimeout <= 0 {
		deps.ProfileTimeout = 30 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	tbl := table.New(
		table.WithColumns(columns(styles.LayoutWide)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = theme.TableHeader
	ts.Cell = theme.TableCell
	ts.Selected = theme.TableSelected
	tbl.SetStyles(ts)
	// "b" is the backup key here.
	tbl.KeyMap.PageUp.SetKeys("pgup")

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "account name or SteamID"
	fi.CharLimit = 64

	sp := spinner.New(
		spinner.WithSpinner(styles.LineSpinner.Bubbles()),
		spinner.WithStyle(theme.Spinner),
	)

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
		progress.WithWidth(steamguard.Period),
	)

	m := Model{
		deps:     deps,
		theme:    theme,
		log:      logging.Component(deps.Logger, "tui"),
		gen:      steamguard.NewGenerator(steamguard.ClockFunc(deps.Now)),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		table:    tbl,
		filter:   fi,
		spinner:  sp,
		progress: bar,
		profiles: make(map[string]*profile.Profile),
		looked:   make(map[string]bool),
		loading:  make(map[string]bool),
	}
	m.now = m.gen.Now()
	if deps.Store != nil {
		m.setAccounts(deps.Store.Accounts())
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the accounts and starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		reloadCmd(m.deps.Store),
		tickCmd(m.deps.Refresh),
		waitForChange(m.deps.Changes),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case TickMsg:
		m.now = m.gen.Now()
		if !m.status.until.IsZero() && m.now.After(m.status.until) {
			m.status = statusLine{}
		}
		m.refreshRows()
		return m, tickCmd(m.deps.Refresh)

	case AccountsLoadedMsg:
		if msg.Err != nil {
			m.loadErr = msg.Err
			m.setStatus(statusError, "reload failed: "+msg.Err.Error())
			return m, nil
		}
		m.loadErr = nil
		m.setAccounts(msg.Accounts)
		return m, m.lookupSelected()

	case AccountsChangedMsg:
		m.log.WithField("files", len(msg.Paths)).Debug("accounts directory changed")
		m.setStatus(statusInfo, "accounts changed on disk, reloading")
		return m, tea.Batch(reloadCmd(m.deps.Store), waitForChange(m.deps.Changes))

	case ProfileMsg:
		return m.handleProfile(msg)

	case CopiedMsg:
		if msg.Err != nil {
			m.setStatus(statusError, "clipboard unavailable: "+msg.Err.Error())
		} else {
			m.setStatus(statusSuccess, "copied code for "+msg.Account)
		}
		return m, nil

	case BackupMsg:
		m.busy = ""
		if msg.Err != nil {
			m.setStatus(statusError, "backup failed: "+msg.Err.Error())
		} else {
			m.setStatus(statusSuccess, fmt.Sprintf("backup %s created (%d accounts)", msg.Manifest.ID, msg.Manifest.Accounts))
		}
		return m, nil

	case OpenedMsg:
		if msg.Err != nil {
			m.setStatus(statusError, "could not open browser: "+msg.Err.Error())
		} else {
			m.setStatus(statusInfo, "opened "+msg.URL)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.spinning() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.table.Blur()
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Clear):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
			return m, m.lookupSelected()
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()

	case key.Matches(msg, m.keys.Reload):
		m.setStatus(statusInfo, "reloading accounts")
		return m, reloadCmd(m.deps.Store)

	case key.Matches(msg, m.keys.Profile):
		return m.fetchSelected()

	case key.Matches(msg, m.keys.Backup):
		return m.startBackup()

	case key.Matches(msg, m.keys.Open):
		return m.openSelected()
	}

	before := m.selectedSteamID()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.selectedSteamID() != before {
		return m, tea.Batch(cmd, m.lookupSelected())
	}
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.filtering = false
		m.filter.Blur()
		m.table.Focus()
		return m, m.lookupSelected()
	case key.Matches(msg, m.keys.Clear):
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.table.Focus()
		m.applyFilter()
		return m, m.lookupSelected()
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) copySelected() (tea.Model, tea.Cmd) {
	acc := m.Selected()
	if acc == nil {
		return m, nil
	}
	res := m.gen.Code(acc.SharedSecret)
	if !res.OK() {
		m.setStatus(statusError, acc.Name()+": "+res.Display())
		return m, nil
	}
	if m.deps.Clipboard == nil {
		m.setStatus(statusError, "clipboard unavailable")
		return m, nil
	}
	return m, copyCmd(m.deps.Clipboard, acc.Name(), res.Code)
}

func (m Model) fetchSelected() (tea.Model, tea.Cmd) {
	acc := m.Selected()
	if acc == nil {
		return m, nil
	}
	sid := acc.SteamID
	if sid == "" {
		m.setStatus(statusWarning, acc.Name()+": maFile has no SteamID")
		return m, nil
	}
	if m.loading[sid] || m.deps.Resolver == nil {
		return m, nil
	}
	r, err := m.deps.Resolver()
	if err != nil {
		m.setStatus(statusError, "profile cache: "+err.Error())
		return m, nil
	}

	wasSpinning := m.spinning()
	m.loading[sid] = true
	force := m.profiles[sid] != nil
	cmds := []tea.Cmd{fetchProfileCmd(r, sid, force, m.deps.ProfileTimeout)}
	if !wasSpinning {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleProfile(msg ProfileMsg) (tea.Model, tea.Cmd) {
	if !msg.Cached {
		delete(m.loading, msg.SteamID)
	}

	// Results for an account that is no longer selected are dropped. A
	// fetch may have filled the cache, so the next selection looks again.
	if msg.SteamID != m.selectedSteamID() {
		if !msg.Cached {
			delete(m.looked, msg.SteamID)
		}
		m.log.WithField("steamid", msg.SteamID).Debug("discarding profile for deselected account")
		return m, nil
	}

	if msg.Profile != nil {
		m.profiles[msg.SteamID] = msg.Profile
	}
	if msg.Cached {
		return m, nil
	}

	switch {
	case msg.Err == nil:
		m.setStatus(statusSuccess, "profile updated: "+msg.Profile.PersonaName)
	case msg.Profile != nil:
		m.setStatus(statusWarning, "showing cached profile: "+profileErrText(msg.Err))
	default:
		m.setStatus(statusError, "profile: "+profileErrText(msg.Err))
	}
	return m, nil
}

func profileErrText(err error) string {
	switch {
	case errors.Is(err, steamapi.ErrNoAPIKey):
		return "no Steam Web API key (sam apikey set)"
	case errors.Is(err, steamapi.ErrAuthFailed):
		return "API key rejected"
	default:
		return err.Error()
	}
}

func (m Model) startBackup() (tea.Model, tea.Cmd) {
	if m.busy != "" || m.deps.Backups == nil {
		return m, nil
	}
	wasSpinning := m.spinning()
	m.busy = "creating backup"
	cmds := []tea.Cmd{backupCmd(m.deps.Backups())}
	if !wasSpinning {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	url := m.profileURL()
	if url == "" {
		m.setStatus(statusWarning, "no SteamID for this account")
		return m, nil
	}
	if m.deps.OpenURL == nil {
		m.setStatus(statusError, "no browser available")
		return m, nil
	}
	return m, openCmd(m.deps.OpenURL, url)
}

// lookupSelected loads the cached profile of a newly selected account. It
// never touches the network.
func (m Model) lookupSelected() tea.Cmd {
	sid := m.selectedSteamID()
	if sid == "" || m.looked[sid] || m.deps.Resolver == nil {
		return nil
	}
	r, err := m.deps.Resolver()
	if err != nil {
		return nil
	}
	m.looked[sid] = true
	return cachedProfileCmd(r, sid)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// Selected returns the account under the cursor, or nil.
func (m Model) Selected() *account.Account {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return nil
	}
	return m.visible[i]
}

func (m Model) selectedSteamID() string {
	if acc := m.Selected(); acc != nil {
		return acc.SteamID
	}
	return ""
}

func (m Model) profileURL() string {
	sid := m.selectedSteamID()
	if sid == "" {
		return ""
	}
	if p := m.profiles[sid]; p != nil && p.ProfileURL != "" {
		return p.ProfileURL
	}
	return profileURLPrefix + sid
}

func (m Model) spinning() bool {
	return len(m.loading) > 0 || m.busy != ""
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.status = statusLine{text: text, kind: kind, until: m.now.Add(statusTTL)}
}

// setAccounts replaces the account list, keeping the cursor on the same
// account when it still exists.
func (m *Model) setAccounts(accounts []*account.Account) {
	var keep string
	if acc := m.Selected(); acc != nil {
		keep = acc.ID
	}
	m.accounts = accounts
	m.applyFilter()

	if keep == "" {
		return
	}
	if _, i, ok := lo.FindIndexOf(m.visible, func(a *account.Account) bool { return a.ID == keep }); ok {
		m.table.SetCursor(i)
	}
}

func (m *Model) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = lo.Filter(m.accounts, func(a *account.Account, _ int) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(a.Name()), q) ||
			strings.Contains(a.SteamID, q)
	})
	m.refreshRows()
	switch n, c := len(m.visible), m.table.Cursor(); {
	case c < 0 && n > 0:
		m.table.SetCursor(0)
	case c >= n:
		m.table.SetCursor(max(n-1, 0))
	}
}

// refreshRows recomputes every code from the current clock.
func (m *Model) refreshRows() {
	layout := m.layout()
	rows := lo.Map(m.visible, func(a *account.Account, _ int) table.Row {
		return m.row(a, layout)
	})
	m.table.SetRows(rows)
}

func (m Model) row(a *account.Account, layout styles.LayoutMode) table.Row {
	res := m.gen.Code(a.SharedSecret)
	code := res.Display()
	if res.OK() {
		code = fmt.Sprintf("%s  %s", res.Code, util.FormatCountdown(res.Remaining))
	}
	status := a.Status().String()
	status = styles.StatusIndicator(status) + " " + status

	if layout == styles.LayoutNarrow {
		return table.Row{a.Name(), code, status}
	}
	steamID := a.SteamID
	if steamID == "" {
		steamID = "-"
	}
	return table.Row{a.Name(), steamID, code, status}
}

func (m Model) layout() styles.LayoutMode {
	if !m.ready {
		return styles.LayoutWide
	}
	return m.theme.GetLayoutMode()
}

func columns(layout styles.LayoutMode) []table.Column {
	if layout == styles.LayoutNarrow {
		return []table.Column{
			{Title: "Account", Width: 18},
			{Title: "Code", Width: 12},
			{Title: "Status", Width: 16},
		}
	}
	return []table.Column{
		{Title: "Account", Width: 24},
		{Title: "SteamID", Width: 17},
		{Title: "Code", Width: 14},
		{Title: "Status", Width: 16},
	}
}

// tableWidth is the rendered width of the table for a layout.
func tableWidth(layout styles.LayoutMode) int {
	return lo.SumBy(columns(layout), func(c table.Column) int { return c.Width + 2 })
}

// resize lays the table out for the current window.
func (m *Model) resize() {
	m.theme.SetSize(m.width, m.height)
	m.help.Width = m.width
	layout := m.theme.GetLayoutMode()

	// Rows must be rebuilt before the column count changes.
	m.table.SetRows(nil)
	m.table.SetColumns(columns(layout))
	m.refreshRows()

	// header, filter line, status bar, table header
	reserved := 4
	if m.help.ShowAll {
		reserved += 4
	}
	if layout == styles.LayoutMedium {
		reserved += detailHeight
	}
	m.table.SetHeight(max(m.height-reserved, 3))
	m.table.SetWidth(tableWidth(layout))
}
