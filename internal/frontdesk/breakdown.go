package frontdesk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"roster-desk/internal/dto/response"
	"roster-desk/pkg/utils"
)

const maxBreakdownRunes = 500

// ComposeFeeBreakdown renders the outstanding fees of a roster as one line
// of audit metadata for a terminal payment.
func ComposeFeeBreakdown(r *response.RosterResponse) string {
	if r == nil {
		return ""
	}

	var parts []string
	var total int64
	for _, p := range r.Participants() {
		if p.Settled() {
			continue
		}
		name := p.DisplayName
		if name == "" {
			name = fmt.Sprintf("Slot %d", p.SlotNumber)
		}
		line := fmt.Sprintf("%s: %s", name, utils.FormatCents(p.FeeCents))
		if p.FeeNote != "" {
			line += " (" + p.FeeNote + ")"
		}
		parts = append(parts, line)
		total += p.FeeCents
	}
	parts = append(parts, "Total: "+utils.FormatCents(total))

	return truncateRunes(strings.Join(parts, "; "), maxBreakdownRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
