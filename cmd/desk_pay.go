package cmd

import (
	"context"
	"errors"
	"fmt"

	"roster-desk/internal/frontdesk"
	"roster-desk/pkg/utils"

	"github.com/spf13/cobra"
)

func newPayCmd() *cobra.Command {
	var reason, reader, participant string

	cmd := &cobra.Command{
		Use:   "pay <booking-id> <card|terminal|cash|waive|confirm|guest-pass>",
		Short: "Collect or settle a booking's fees",
		Long: `Collect or settle a booking's fees.

  card        charge the owner's card on file
  terminal    send the outstanding amount to a card reader (--reader)
  cash        record every outstanding fee as collected at the desk
  waive       waive every fee, or one with --participant (--reason required)
  confirm     record one participant as paid (--participant)
  guest-pass  cover one guest with an owner guest pass (--participant)`,
		Args: cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			pay := s.Payment
			method := args[0]

			var err error
			switch method {
			case "card":
				err = payByCard(ctx, rt, s)
			case "terminal":
				err = payByTerminal(ctx, rt, s, reader)
			case "cash":
				err = pay.MarkPaid(ctx)
			case "waive":
				if participant != "" {
					err = pay.WaiveParticipant(ctx, participant, reason)
				} else {
					err = pay.WaiveAll(ctx, reason)
				}
			case "confirm":
				if participant == "" {
					return errors.New("--participant is required")
				}
				err = pay.ConfirmParticipant(ctx, participant)
			case "guest-pass":
				if participant == "" {
					return errors.New("--participant is required")
				}
				err = pay.UseGuestPass(ctx, participant)
			default:
				return fmt.Errorf("unknown payment method %q", method)
			}
			if err != nil {
				return err
			}

			renderRoster(rt.out, s.Roster.Current())
			if pay.State() == frontdesk.StateReconciled {
				fmt.Fprintln(rt.out, "Payment recorded. Check-in is unlocked.")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&reason, "reason", "", "waiver reason")
	cmd.Flags().StringVar(&reader, "reader", "", "card reader id")
	cmd.Flags().StringVar(&participant, "participant", "", "participant id")
	return cmd
}

func payByCard(ctx context.Context, rt *deskRuntime, s *frontdesk.Session) error {
	pay := s.Payment
	if err := pay.Open(); err != nil {
		return err
	}
	defer pay.Back()

	card, err := pay.SavedCard(ctx)
	if err != nil {
		return err
	}
	if !card.HasSavedCard {
		return errors.New("no card on file; use the terminal")
	}

	outstanding := s.Roster.Current().FinancialSummary.OutstandingCents
	if !promptConfirm(fmt.Sprintf("Charge %s ending %s for %s", card.Brand, card.Last4, utils.FormatCents(outstanding))) {
		return nil
	}

	rt.drain()
	if err := pay.ChargeCardOnFile(ctx); err != nil {
		return err
	}
	return awaitReconcile(ctx, rt)
}

func payByTerminal(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, reader string) error {
	pay := s.Payment
	if err := pay.Open(); err != nil {
		return err
	}

	res, err := pay.StartTerminal(ctx, reader)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "Sent %s to reader %s.\n", utils.FormatCents(res.AmountCents), res.ReaderID)

	if !promptConfirm("Reader approved the payment") {
		return pay.Back()
	}

	rt.drain()
	if err := pay.TerminalSucceeded(ctx); err != nil {
		return err
	}
	if pay.State() == frontdesk.StateReconciled {
		return nil
	}
	return awaitReconcile(ctx, rt)
}

// awaitReconcile blocks until the payment is recorded or polling gives up.
func awaitReconcile(ctx context.Context, rt *deskRuntime) error {
	fmt.Fprintln(rt.out, "Waiting for the payment to be recorded...")
	ev, err := rt.waitFor(ctx, frontdesk.EventReconciled, frontdesk.EventUnconfirmed)
	if err != nil {
		return err
	}
	if ev.Kind == frontdesk.EventUnconfirmed {
		return errors.New(ev.Message)
	}
	return nil
}
