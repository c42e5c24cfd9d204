// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/ui/styles"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// detailHeight is the height of the detail pane including its border.
const detailHeight = 12

// detailWidth is the outer width of the detail pane in the wide layout.
const detailWidth = 44

// View renders the dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Loading accounts..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	layout := m.theme.GetLayoutMode()
	body := m.renderTable()
	switch layout {
	case styles.LayoutWide:
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.renderDetail(detailWidth))
	case styles.LayoutMedium:
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.renderDetail(min(m.width, tableWidth(layout)+2)))
	}
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(m.renderFilter())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	title := t.HeaderTitle.Render("sam")

	count := fmt.Sprintf("%d accounts", len(m.accounts))
	if len(m.visible) != len(m.accounts) {
		count = fmt.Sprintf("%d of %d accounts", len(m.visible), len(m.accounts))
	}
	info := []string{count}
	if m.deps.Offline {
		info = append(info, t.WarningStyle.Render("OFFLINE"))
	}
	info = append(info, fmt.Sprintf("next code in %s", util.FormatCountdown(steamguard.Remaining(m.now))))

	line := title + "  " + t.HeaderInfo.Render(strings.Join(info, "  |  "))
	return t.Header.Width(max(m.width, 1)).Render(line)
}

// =============================================================================
// TABLE
// =============================================================================

func (m Model) renderTable() string {
	if m.loadErr != nil && len(m.accounts) == 0 {
		return m.theme.ErrorStyle.Render("Could not load accounts: " + m.loadErr.Error())
	}
	if len(m.accounts) == 0 {
		dir := ""
		if m.deps.Store != nil {
			dir = m.deps.Store.Dir()
		}
		return m.theme.MutedStyle.Render(fmt.Sprintf(
			"No maFiles in %s\nImport one with: sam import <file.maFile>", dir))
	}
	if len(m.visible) == 0 {
		return m.theme.MutedStyle.Render("No accounts match the filter.")
	}
	return m.theme.TableBorder.Render(m.table.View())
}

// =============================================================================
// DETAIL PANE
// =============================================================================

func (m Model) renderDetail(width int) string {
	t := m.theme
	box := t.DetailBox.Width(max(width-2, 10))

	acc := m.Selected()
	if acc == nil {
		return box.Render(t.MutedStyle.Render("No account selected"))
	}

	lines := []string{t.DetailTitle.Render(acc.Name())}
	lines = append(lines, m.field("SteamID", orDash(acc.SteamID)))
	lines = append(lines, m.profileFields(acc)...)

	status := acc.Status().String()
	lines = append(lines, m.field("Status", t.StatusStyle(status).Render(styles.StatusIndicator(status)+" "+status)))
	if acc.RevocationCode != "" {
		rc := acc.MaskedRevocationCode()
		if m.deps.ShowSecrets {
			rc = acc.RevocationCode
		}
		lines = append(lines, m.field("Revocation", rc))
	}

	lines = append(lines, "")
	lines = append(lines, m.renderCode(acc)...)
	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) profileFields(acc *account.Account) []string {
	t := m.theme
	if acc.SteamID == "" {
		return []string{m.field("Nickname", t.MutedStyle.Render("no SteamID"))}
	}
	if m.loading[acc.SteamID] {
		return []string{m.field("Nickname", m.spinner.View()+" fetching profile")}
	}
	p := m.profiles[acc.SteamID]
	if p == nil {
		return []string{m.field("Nickname", t.MutedStyle.Render("press p to fetch"))}
	}

	lastLogoff := "hidden"
	if ts := p.LastLogoffTime(); !ts.IsZero() {
		lastLogoff = util.FormatAge(ts, m.now)
	}
	fetched := util.FormatAge(p.FetchedAt, m.now)
	if p.Stale {
		fetched = t.WarningStyle.Render(fetched + " (stale)")
	}
	return []string{
		m.field("Nickname", orDash(p.PersonaName)),
		m.field("Visibility", p.Visibility().String()),
		m.field("Last logoff", lastLogoff),
		m.field("Fetched", fetched),
	}
}

func (m Model) renderCode(acc *account.Account) []string {
	t := m.theme
	res := m.gen.Code(acc.SharedSecret)
	if !res.OK() {
		return []string{m.field("Code", t.CodeMissing.Render(res.Display()))}
	}
	code := t.CodeStyle(res.Remaining).Render(res.Code)
	percent := res.Remaining.Seconds() / float64(steamguard.Period)
	return []string{
		m.field("Code", code),
		m.field("", m.progress.ViewAs(percent)+" "+util.FormatCountdown(res.Remaining)),
	}
}

func (m Model) field(label, value string) string {
	return m.theme.Label.Render(label) + m.theme.Value.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// =============================================================================
// FILTER AND STATUS BAR
// =============================================================================

func (m Model) renderFilter() string {
	if m.filtering || m.filter.Value() != "" {
		return m.filter.View()
	}
	return ""
}

func (m Model) renderStatusBar() string {
	t := m.theme
	var left string
	switch {
	case m.busy != "":
		left = m.spinner.View() + " " + m.busy
	case m.status.text != "":
		left = m.renderStatus()
	default:
		left = m.help.View(m.keys)
	}
	if m.help.ShowAll && m.status.text != "" {
		left = m.renderStatus() + "\n" + m.help.View(m.keys)
	}
	return t.StatusBar.Width(max(m.width, 1)).Render(left)
}

func (m Model) renderStatus() string {
	t := m.theme
	switch m.status.kind {
	case statusSuccess:
		return t.SuccessStyle.Render(styles.StatusIndicators.Success + " " + m.status.text)
	case statusWarning:
		return t.WarningStyle.Render(styles.StatusIndicators.Warning + " " + m.status.text)
	case statusError:
		return t.ErrorStyle.Render(styles.StatusIndicators.Error + " " + m.status.text)
	default:
		return t.MutedStyle.Render(styles.StatusIndicators.Info + " " + m.status.text)
	}
}
