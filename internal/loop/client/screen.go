package client

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomz197/asteroid-idle/internal/draw"
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/loop/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// drawFrame renders the current frame and writes the lines that changed.
func (c *Client) drawFrame(snap *server.SessionSnapshot) error {
	// On screen or inactivity transitions, do a full terminal clear so text
	// from the previous screen doesn't persist.
	stateChanged := c.state.GameState != c.state.prevGameState
	inactiveChanged := c.state.isInactive != c.state.wasInactive
	if stateChanged || inactiveChanged {
		c.chunkWriter.WriteString("\033[H\033[2J")
		c.forceFullRedraw = true
		c.state.prevGameState = c.state.GameState
		c.state.wasInactive = c.state.isInactive
	}

	v := view{
		state:    c.state,
		snap:     snap,
		width:    c.width,
		height:   c.height,
		idleLeft: config.InactivityDisconnectUser - time.Since(c.lastInput),
		now:      time.Now(),
	}
	lines := v.render()

	for i, line := range lines {
		if !c.forceFullRedraw && i < len(c.prevLines) && c.prevLines[i] == line {
			continue
		}
		c.chunkWriter.WriteAt(1, i+1, line)
	}
	c.prevLines = lines
	c.forceFullRedraw = false

	return c.chunkWriter.Flush()
}

// view is everything one frame depends on.
type view struct {
	state    *ClientState
	snap     *server.SessionSnapshot
	width    int
	height   int
	idleLeft time.Duration
	now      time.Time
}

// render returns exactly height lines, each width cells wide once ANSI
// styles are stripped.
func (v view) render() []string {
	if v.width < config.MinTermWidth || v.height < config.MinTermHeight {
		return v.centered([]string{
			"Terminal too small",
			fmt.Sprintf("Need at least %dx%d, have %dx%d", config.MinTermWidth, config.MinTermHeight, v.width, v.height),
		})
	}

	switch {
	case v.state.GameState == GameStateShutdown:
		return v.shutdownScreen()
	case v.state.isInactive:
		return v.inactivityScreen()
	case v.state.GameState == GameStateStart:
		return v.startScreen()
	case v.snap == nil:
		return v.centered([]string{"Connecting to your session..."})
	case v.state.GameState == GameStateConfirmReset:
		return v.centered([]string{
			"RESET ALL PROGRESS?",
			"",
			"Balances, upgrades and colonies go back to the start",
			"and your save slot is deleted.",
			"",
			"Press Y to reset, N to keep playing",
		})
	}
	return v.dashboard()
}

// centered places lines in the middle of an otherwise blank frame.
func (v view) centered(lines []string) []string {
	out := make([]string, v.height)
	top := (v.height - len(lines)) / 2
	if top < 0 {
		top = 0
	}
	for i := range out {
		j := i - top
		if j < 0 || j >= len(lines) {
			out[i] = strings.Repeat(" ", v.width)
			continue
		}
		out[i] = centerLine(lines[j], v.width)
	}
	return out
}

func centerLine(s string, width int) string {
	pad := draw.Center(s, width) - 1
	return draw.Fit(strings.Repeat(" ", pad)+s, width)
}

func (v view) startScreen() []string {
	// ASCII art title (figlet "small" font)
	lines := []string{
		`   _   ___ _____ ___ ___  ___ ___ ___    ___ ___  _    ___ `,
		`  /_\ / __|_   _| __| _ \/ _ \_ _|   \  |_ _|   \| |  | __|`,
		` / _ \\__ \ | | | _||   / (_) | || |) |  | || |) | |__| _| `,
		`/_/ \_\___/ |_| |___|_|_\\___/___|___/  |___|___/|____|___|`,
		"",
		"~ Mine the belt, grow the tree, settle the system ~",
		"",
		"Controls",
		"Up / Down  . . . .  Select",
		"Left / Right  . . .  Panel",
		"ENTER  . . . Buy / Colonize",
		"P  . . . . . . .  Autopilot",
		"R  . . . . . . . . .  Reset",
		"Q  . . . . . . . . . . Quit",
		"",
	}
	if v.now.UnixMilli()/600%2 == 0 {
		lines = append(lines, ">>  Press SPACE to Start  <<")
	} else {
		lines = append(lines, "")
	}
	return v.centered(lines)
}

func (v view) shutdownScreen() []string {
	remaining := int(v.state.shutdownTimer) + 1
	return v.centered([]string{
		"SERVER SHUTTING DOWN",
		"",
		"Your progress has been saved.",
		"Please reconnect in a moment.",
		"",
		fmt.Sprintf("Disconnecting in %d seconds...", remaining),
		"",
		"Press Q to disconnect now",
	})
}

func (v view) inactivityScreen() []string {
	left := int(v.idleLeft.Seconds())
	if left < 0 {
		left = 0
	}
	return v.centered([]string{
		"INACTIVITY WARNING",
		"",
		fmt.Sprintf("You have been inactive for too long. You will be disconnected in %d seconds.", left),
		"Your colonies keep producing while you are away.",
		"",
		"Press any key to continue",
	})
}

// dashboard lays out the header, the two panels and the status lines.
func (v view) dashboard() []string {
	snap := v.snap
	out := make([]string, 0, v.height)

	const title = " ASTEROID IDLE"
	who := fmt.Sprintf("pilot %s  clients %d ", snap.Player, snap.Clients)
	gap := v.width - utf8.RuneCountInString(title) - utf8.RuneCountInString(who)
	out = append(out, draw.Style(title, draw.Bold, draw.ColorBrightCyan)+draw.Fit("", gap)+who)
	out = append(out, draw.Fit(" "+resourceLine(snap), v.width))
	out = append(out, strings.Repeat("─", v.width))

	bodyRows := v.height - 6
	leftWidth := v.width * 11 / 20
	rightWidth := v.width - leftWidth - 1
	left := v.upgradePanel(bodyRows, leftWidth)
	side := v.sidePanel(bodyRows, rightWidth)
	for i := 0; i < bodyRows; i++ {
		out = append(out, left[i]+draw.Style("│", draw.Dim)+side[i])
	}

	out = append(out, strings.Repeat("─", v.width))
	out = append(out, draw.Fit(" "+v.detail(), v.width))
	out = append(out, v.statusLine())
	return out
}

// cell is one styled row segment.
type cell struct {
	text   string
	styles []string
}

func (c cell) render(width int) string {
	return draw.Style(draw.Fit(c.text, width), c.styles...)
}

// fill renders cells into exactly rows lines of width.
func fill(cells []cell, rows, width int) []string {
	out := make([]string, rows)
	for i := range out {
		if i < len(cells) {
			out[i] = cells[i].render(width)
		} else {
			out[i] = strings.Repeat(" ", width)
		}
	}
	return out
}

func (v view) panelTitle(name string, p Panel) cell {
	if v.state.Panel == p {
		return cell{text: " ▸ " + name, styles: []string{draw.Bold, draw.ColorCyan}}
	}
	return cell{text: "   " + name, styles: []string{draw.Dim}}
}

func (v view) upgradePanel(rows, width int) []string {
	cells := []cell{v.panelTitle("UPGRADES", PanelUpgrades)}
	nodes := v.snap.Upgrades
	visible := rows - 1
	start := window(len(nodes), v.state.Cursor[PanelUpgrades], visible)

	for i := start; i < len(nodes) && i < start+visible; i++ {
		n := nodes[i]
		marker, styles := "[ ]", []string(nil)
		switch {
		case n.State == upgrade.Purchased:
			marker, styles = "[x]", []string{draw.ColorGreen}
		case n.State == upgrade.Locked:
			marker, styles = "[-]", []string{draw.Dim}
		case n.Affordable:
			marker, styles = "[+]", []string{draw.ColorYellow, draw.Bold}
		}
		price := formatCost(n.Cost)
		if n.State == upgrade.Purchased {
			price = "owned"
		}
		text := joinLR(" "+marker+" "+displayName(n.Name, string(n.ID)), price+" ", width)
		if v.state.Panel == PanelUpgrades && i == v.state.Cursor[PanelUpgrades] {
			styles = append(styles, draw.Reverse)
		}
		cells = append(cells, cell{text: text, styles: styles})
	}
	return fill(cells, rows, width)
}

func (v view) sidePanel(rows, width int) []string {
	cells := []cell{v.panelTitle("PLANETS", PanelPlanets)}
	for i, p := range v.snap.Planets {
		marker, styles := "[ ]", []string(nil)
		right := formatCost(p.Cost)
		if p.Colonized {
			marker, styles = "[x]", []string{draw.ColorGreen}
			right = formatRates(p.Yield)
		} else if v.snap.Resources.Amounts.Covers(p.Cost) {
			marker, styles = "[+]", []string{draw.ColorYellow, draw.Bold}
		}
		if v.state.Panel == PanelPlanets && i == v.state.Cursor[PanelPlanets] {
			styles = append(styles, draw.Reverse)
		}
		cells = append(cells, cell{text: joinLR(" "+marker+" "+displayName(p.Name, string(p.ID)), right+" ", width), styles: styles})
	}

	stats := v.snap.Stats
	cells = append(cells, cell{}, cell{text: "   SHIP", styles: []string{draw.Dim}})
	for _, s := range economy.AllStats() {
		val := formatStat(s, stats[s])
		if s == economy.Autopilot {
			val = autopilotLabel(v.snap.Autopilot)
		}
		cells = append(cells, cell{text: joinLR("   "+string(s), val+" ", width)})
	}

	m := v.snap.Mining
	cells = append(cells, cell{}, cell{text: "   MINING", styles: []string{draw.Dim}})
	cells = append(cells,
		cell{text: joinLR("   rocks in range", fmt.Sprintf("%d/%d ", m.InRange, m.Asteroids), width)},
		cell{text: joinLR("   destroyed", fmt.Sprintf("%d ", m.Destroyed), width)},
		cell{text: joinLR("   loot floating", fmt.Sprintf("%d ", m.Drops), width)},
		cell{text: joinLR("   mined", formatCost(m.Mined)+" ", width)},
	)
	return fill(cells, rows, width)
}

// detail describes the highlighted row.
func (v view) detail() string {
	i := v.state.Cursor[v.state.Panel]
	switch v.state.Panel {
	case PanelUpgrades:
		if i >= len(v.snap.Upgrades) {
			return ""
		}
		n := v.snap.Upgrades[i]
		s := fmt.Sprintf("%s: %s", displayName(n.Name, string(n.ID)), n.Effect.Describe())
		if n.Description != "" {
			s += " - " + n.Description
		}
		if n.State == upgrade.Locked && len(n.Requires) > 0 {
			req := make([]string, len(n.Requires))
			for j, id := range n.Requires {
				req[j] = string(id)
			}
			s += " (requires " + strings.Join(req, ", ") + ")"
		}
		return s
	case PanelPlanets:
		if i >= len(v.snap.Planets) {
			return ""
		}
		p := v.snap.Planets[i]
		s := fmt.Sprintf("%s: yields %s", displayName(p.Name, string(p.ID)), formatRates(p.Yield))
		if p.Description != "" {
			s += " - " + p.Description
		}
		return s
	}
	return ""
}

func (v view) statusLine() string {
	if v.state.Message != "" {
		style := draw.ColorGreen
		if v.state.MessageErr {
			style = draw.ColorRed
		}
		return draw.Style(draw.Fit(" "+v.state.Message, v.width), style, draw.Bold)
	}
	help := " ↑↓ select  ←→ panel  enter buy  p autopilot  r reset  q quit"
	return draw.Style(draw.Fit(help, v.width), draw.Dim)
}

// resourceLine shows balances, rates and colony yield for every resource.
func resourceLine(snap *server.SessionSnapshot) string {
	parts := make([]string, 0, len(economy.Resources))
	for _, r := range economy.Resources {
		s := fmt.Sprintf("%s %s (+%s/s)", r, formatAmount(snap.Resources.Amounts[r]), formatAmount(snap.Resources.Rates[r]))
		if y := snap.Yield[r]; y > 0 {
			s += fmt.Sprintf(" colonies +%s/s", formatAmount(y))
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "   ")
}

// window returns the first visible index so cursor stays inside rows.
func window(n, cursor, rows int) int {
	if rows <= 0 || n <= rows {
		return 0
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start > n-rows {
		start = n - rows
	}
	return start
}

// joinLR puts left and right on one line of width, truncating left first.
func joinLR(left, right string, width int) string {
	rw := utf8.RuneCountInString(right)
	if rw >= width {
		return draw.Fit(right, width)
	}
	return draw.Fit(left, width-rw) + right
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// formatAmount shortens large values: 950, 12.3k, 4.56M.
func formatAmount(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs < 10:
		return trimFloat(v, 2)
	case abs < 1000:
		return trimFloat(v, 1)
	}
	suffixes := []string{"k", "M", "B", "T"}
	for _, s := range suffixes {
		v /= 1000
		if math.Abs(v) < 1000 || s == "T" {
			return trimFloat(v, 2) + s
		}
	}
	return trimFloat(v, 2)
}

func trimFloat(v float64, prec int) string {
	s := fmt.Sprintf("%.*f", prec, v)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// formatCost renders amounts in resource order, e.g. "10 metal 5 crystal".
func formatCost(a economy.Amounts) string {
	var parts []string
	for _, r := range economy.Resources {
		if v := a[r]; v != 0 {
			parts = append(parts, formatAmount(v)+" "+string(r))
		}
	}
	if len(parts) == 0 {
		return "free"
	}
	return strings.Join(parts, " ")
}

func formatRates(a economy.Amounts) string {
	var parts []string
	for _, r := range economy.Resources {
		if v := a[r]; v != 0 {
			parts = append(parts, "+"+formatAmount(v)+" "+string(r)+"/s")
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, " ")
}

func formatStat(s economy.Stat, v float64) string {
	if s == economy.AutoCollect {
		return fmt.Sprintf("%.0f%%", v*100)
	}
	return trimFloat(v, 2)
}

func autopilotLabel(a server.AutopilotView) string {
	switch {
	case !a.Unlocked:
		return "locked"
	case a.Engaged:
		return "engaged"
	}
	return "off"
}
