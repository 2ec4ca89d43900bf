// Package color picks terminal colors for board statuses and agents.
// NO_COLOR and non-terminal output are honored by fatih/color.
package color

import (
	"hash/fnv"

	fcolor "github.com/fatih/color"
)

var agentPalette = []fcolor.Attribute{
	fcolor.FgHiRed,
	fcolor.FgHiGreen,
	fcolor.FgHiYellow,
	fcolor.FgHiBlue,
	fcolor.FgHiMagenta,
	fcolor.FgHiCyan,
	fcolor.FgRed,
	fcolor.FgGreen,
	fcolor.FgYellow,
	fcolor.FgBlue,
	fcolor.FgMagenta,
	fcolor.FgCyan,
}

var statusColors = map[string]*fcolor.Color{
	"backlog":          fcolor.New(fcolor.FgHiBlack),
	"refinement":       fcolor.New(fcolor.FgCyan),
	"pending_approval": fcolor.New(fcolor.FgYellow, fcolor.Bold),
	"todo":             fcolor.New(fcolor.FgBlue),
	"in_progress":      fcolor.New(fcolor.FgMagenta),
	"review":           fcolor.New(fcolor.FgYellow),
	"done":             fcolor.New(fcolor.FgGreen),

	"idle":     fcolor.New(fcolor.FgHiBlack),
	"pending":  fcolor.New(fcolor.FgHiBlack),
	"spawning": fcolor.New(fcolor.FgCyan),
	"running":  fcolor.New(fcolor.FgCyan, fcolor.Bold),
	"error":    fcolor.New(fcolor.FgRed, fcolor.Bold),
}

// Disable turns colors off for the whole process.
func Disable() { fcolor.NoColor = true }

// Status colors a task or job status. Unknown statuses are returned as is.
func Status(status string) string {
	c, ok := statusColors[status]
	if !ok {
		return status
	}
	return c.Sprint(status)
}

// AgentAttribute returns a stable palette entry for agentID.
func AgentAttribute(agentID string) fcolor.Attribute {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	return agentPalette[h.Sum32()%uint32(len(agentPalette))]
}

// Agent colors agentID with its stable palette entry.
func Agent(agentID string) string {
	if agentID == "" {
		return ""
	}
	return fcolor.New(AgentAttribute(agentID)).Sprint(agentID)
}

// Error renders s in bold red.
func Error(s string) string {
	return fcolor.New(fcolor.FgRed, fcolor.Bold).Sprint(s)
}
