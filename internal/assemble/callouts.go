package assemble

import (
	"strings"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
)

const (
	iconCritical = "🔴"
	iconHigh     = "🟠"
	iconConflict = "⚠️"
	iconInfo     = "ℹ️"
)

// urgentTemporal is the temporal signal that alone earns a callout: the brief
// is due within two days or says it is urgent.
const urgentTemporal = 9

// Callouts builds the blocks prepended to the document: urgency first, then
// one per conflict, then the completeness note.
func Callouts(u model.Urgency, hasUrgency bool, conflicts []model.Conflict, flags []model.Flag) []block.Block {
	var out []block.Block

	if hasUrgency && (u.Detected || u.Signals.Temporal >= urgentTemporal) {
		icon, color := iconHigh, "orange"
		if u.Level == model.UrgencyCritical || u.Score >= 9 || u.Signals.Temporal >= 10 {
			icon, color = iconCritical, "red"
		}
		out = append(out, block.Callout(icon, color, block.Label("Urgent", block.Text(u.Summary))...))
	}

	for _, c := range conflicts {
		icon := c.Emoji
		if icon == "" {
			icon = iconConflict
		}
		out = append(out, block.Callout(icon, "yellow", block.Label(c.Title, block.Text(c.Message))...))
	}

	if len(flags) > 0 {
		parts := make([]string, len(flags))
		for i, f := range flags {
			parts[i] = f.Label + " (" + f.Reason + ")"
		}
		out = append(out, block.Callout(iconInfo, "gray", block.Label("Not in brief", block.Text(strings.Join(parts, ", ")))...))
	}
	return out
}
