package cmd

import (
	"errors"
	"fmt"
	"io"

	"roster-desk/internal/dto/response"
	"roster-desk/internal/frontdesk"
	"roster-desk/pkg/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/manifoldco/promptui"
)

func renderRoster(w io.Writer, r *response.RosterResponse) {
	if r == nil {
		return
	}

	b := r.Booking
	fmt.Fprintf(w, "%s  %s  %d min  %s  [%s]\n",
		b.ResourceName, b.StartsAt.Local().Format("Mon 02 Jan 15:04"), b.DurationMinutes, b.OwnerName, b.Status)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Slot", "ID", "Player", "Type", "Fee", "Payment"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 28},
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	for _, p := range r.Participants() {
		name := p.DisplayName
		if !p.IsFilled() {
			name = "(empty)"
		}
		if p.IsPrimary {
			name += " *"
		}

		fee := "-"
		if p.FeeCents > 0 {
			fee = utils.FormatCents(p.FeeCents)
		}

		status := p.PaymentStatus
		if p.UsedGuestPass {
			status += " (pass)"
		}
		if p.WaiverReason != nil {
			status += ": " + *p.WaiverReason
		}

		t.AppendRow(table.Row{p.SlotNumber, p.ID, name, p.Type, fee, status})
	}

	fs := r.FinancialSummary
	t.AppendFooter(table.Row{"", "", "", "Outstanding", utils.FormatCents(fs.OutstandingCents), "of " + utils.FormatCents(fs.GrandTotalCents)})
	t.Render()

	v := r.Validation
	fmt.Fprintf(w, "Players %d/%d", v.ActualPlayerCount, v.ExpectedPlayerCount)
	if r.OwnerGuestPassesTotal > 0 {
		fmt.Fprintf(w, "  Guest passes %d/%d", r.OwnerGuestPassesRemaining, r.OwnerGuestPassesTotal)
	}
	fmt.Fprintln(w)

	if v.Incomplete() {
		fmt.Fprintf(w, "Roster incomplete: %d empty slot(s)\n", v.EmptySlots)
	}
	if fs.PaymentRequired() {
		fmt.Fprintln(w, "Fees outstanding; check-in is locked.")
	}
}

func describeEvent(ev frontdesk.Event) string {
	switch ev.Kind {
	case frontdesk.EventRosterChanged:
		return "roster updated"
	case frontdesk.EventPaymentState:
		return fmt.Sprintf("payment: %s", ev.State)
	case frontdesk.EventReconciled:
		return fmt.Sprintf("payment recorded (%s)", ev.Source)
	case frontdesk.EventUnconfirmed:
		return ev.Message
	case frontdesk.EventCheckinUnlocked:
		return "check-in unlocked"
	case frontdesk.EventMemberMatch:
		if ev.Match != nil {
			return "member match: " + ev.Match.Error()
		}
	}
	return ""
}

func promptConfirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

// promptMatchChoice asks staff how to treat a guest email that belongs to a
// member. ok is false when staff cancels.
func promptMatchChoice(w *frontdesk.MemberMatchWarning) (choice frontdesk.MatchChoice, ok bool, err error) {
	sel := promptui.Select{
		Label: fmt.Sprintf("%s belongs to member %s", w.Member.Email, w.Member.Name),
		Items: []string{"Link as member", "Add as guest anyway", "Cancel"},
		Size:  3,
	}

	idx, _, err := sel.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	switch idx {
	case 0:
		return frontdesk.MatchLinkAsMember, true, nil
	case 1:
		return frontdesk.MatchAddAsGuest, true, nil
	}
	return 0, false, nil
}
