package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/frontdesk"
	"roster-desk/internal/frontdesk/deskapi"
	"roster-desk/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// deskRuntime is what every desk subcommand shares: one engine bound to the
// API, and the events it emits.
type deskRuntime struct {
	api    *deskapi.Client
	desk   *frontdesk.Desk
	events chan frontdesk.Event
	out    io.Writer
	errOut io.Writer
	log    *zap.Logger
}

func newDeskRuntime(cmd *cobra.Command) (*deskRuntime, error) {
	config, err := utils.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitFileLogger(config.App.LogPath, "deskctl.log", config.App.Debug)
	if err != nil {
		logger = zap.NewNop()
	}

	rt := &deskRuntime{
		api:    deskapi.NewClient(config.Desk, logger),
		events: make(chan frontdesk.Event, 64),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		log:    logger,
	}
	rt.desk = frontdesk.NewDesk(rt.api, frontdesk.ConfigFromDesk(config.Desk), frontdesk.ListenerFunc(rt.onEvent), logger)
	return rt, nil
}

func (rt *deskRuntime) onEvent(ev frontdesk.Event) {
	if ev.Kind == frontdesk.EventToast {
		fmt.Fprintln(rt.errOut, "!", ev.Message)
	}
	select {
	case rt.events <- ev:
	default:
	}
}

func (rt *deskRuntime) close() {
	rt.desk.Close()
	_ = rt.log.Sync()
}

// drain discards queued events so waitFor only sees what follows.
func (rt *deskRuntime) drain() {
	for {
		select {
		case <-rt.events:
		default:
			return
		}
	}
}

func (rt *deskRuntime) waitFor(ctx context.Context, kinds ...frontdesk.EventKind) (frontdesk.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return frontdesk.Event{}, ctx.Err()
		case ev := <-rt.events:
			for _, k := range kinds {
				if ev.Kind == k {
					return ev, nil
				}
			}
		}
	}
}

type sessionFunc func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error

// withSession opens the booking named by the first argument for the
// duration of the command.
func withSession(fn sessionFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newDeskRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := cmd.Context()
		s, err := rt.desk.Open(ctx, args[0])
		if err != nil {
			return err
		}
		return fn(ctx, rt, s, args[1:])
	}
}

func newDeskCmd() *cobra.Command {
	deskCmd := &cobra.Command{
		Use:   "desk",
		Short: "Front-desk console for rosters, payments and check-in",
	}

	deskCmd.PersistentFlags().String("api-url", "", "roster-desk API base URL")
	deskCmd.PersistentFlags().String("token", "", "staff session token")
	_ = viper.BindPFlag("DESK_API_URL", deskCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("DESK_STAFF_TOKEN", deskCmd.PersistentFlags().Lookup("token"))

	deskCmd.AddCommand(
		newRosterCmd(),
		newLinkCmd(),
		newUnlinkCmd(),
		newAddGuestCmd(),
		newRemoveGuestCmd(),
		newPlayersCmd(),
		newAssignCmd(),
		newPayCmd(),
		newCheckinCmd(),
		newVoidCmd(),
		newWatchCmd(),
	)
	return deskCmd
}

func newRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster <booking-id>",
		Short: "Show a booking's roster and fees",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}
}

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <booking-id> <slot-id> <email>",
		Short: "Link a member to an empty slot",
		Args:  cobra.ExactArgs(3),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			if err := s.Roster.LinkMember(ctx, args[0], args[1]); err != nil {
				return err
			}
			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <booking-id> <slot-id>",
		Short: "Clear a member slot",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			if err := s.Roster.UnlinkMember(ctx, args[0]); err != nil {
				return err
			}
			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}
}

func newAddGuestCmd() *cobra.Command {
	var name, email, phone, slot string

	cmd := &cobra.Command{
		Use:   "add-guest <booking-id>",
		Short: "Add a guest, resolving member matches interactively",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			req := request.AddGuestRequest{Name: name}
			if email != "" {
				req.Email = &email
			}
			if phone != "" {
				req.Phone = &phone
			}
			if slot != "" {
				req.SlotID = &slot
			}

			err := s.Roster.AddGuest(ctx, req)
			var match *frontdesk.MemberMatchWarning
			if errors.As(err, &match) {
				choice, ok, perr := promptMatchChoice(match)
				if perr != nil {
					return perr
				}
				if !ok {
					fmt.Fprintln(rt.out, "Guest not added.")
					return nil
				}
				err = s.Roster.ResolveMemberMatch(ctx, match, choice)
			}
			if err != nil {
				return err
			}

			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "guest name")
	cmd.Flags().StringVar(&email, "email", "", "guest email")
	cmd.Flags().StringVar(&phone, "phone", "", "guest phone")
	cmd.Flags().StringVar(&slot, "slot", "", "slot id to fill")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRemoveGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-guest <booking-id> <guest-id>",
		Short: "Remove a guest from the roster",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			if err := s.Roster.RemoveGuest(ctx, args[0]); err != nil {
				return err
			}
			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}
}

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players <booking-id> <count>",
		Short: "Change the declared player count",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("count must be a number: %w", err)
			}
			if err := s.Roster.UpdatePlayerCount(ctx, n); err != nil {
				return err
			}
			renderRoster(rt.out, s.Roster.Current())
			return nil
		}),
	}
}

func newAssignCmd() *cobra.Command {
	var target frontdesk.Target
	var players []string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Commit the first roster of a booking",
		Long: `Commit the first roster of a booking.

Players are given in slot order as kind:value pairs:
  member:<email>            looked up in the directory
  visitor:<email>:<name>
  guest:<name>
The first player is the owner.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newDeskRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			ctx := cmd.Context()

			a, err := rt.desk.Assign(target)
			if err != nil {
				return err
			}

			if len(players) > frontdesk.SlotCount {
				return fmt.Errorf("at most %d players", frontdesk.SlotCount)
			}
			for i, player := range players {
				slot, err := parsePlayer(ctx, rt, player)
				if err != nil {
					return fmt.Errorf("player %d: %w", i+1, err)
				}
				if g, ok := slot.(frontdesk.GuestPlaceholder); ok {
					err = a.Slots.AddGuestPlaceholder(i, g.DisplayName)
				} else {
					err = a.Slots.UpdateSlot(i, slot)
				}
				if err != nil {
					return fmt.Errorf("player %d: %w", i+1, err)
				}
			}

			rt.drain()
			res, err := a.Slots.Finalize(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Roster committed for booking %s.\n", res.BookingID)
			if !res.FeesRecalculated {
				return nil
			}

			ev, err := rt.waitFor(ctx, frontdesk.EventOpenPayment)
			if err != nil {
				return err
			}
			s, err := rt.desk.Open(ctx, ev.BookingID)
			if err != nil {
				return err
			}
			renderRoster(rt.out, s.Roster.Current())
			fmt.Fprintf(rt.out, "Fees are due; collect with: desk pay %s <method>\n", ev.BookingID)
			return nil
		},
	}

	cmd.Flags().StringVar(&target.LegacyReviewID, "review", "", "legacy review id")
	cmd.Flags().StringVar(&target.MatchedBookingID, "booking", "", "pending booking id")
	cmd.Flags().StringVar(&target.ExternalID, "external", "", "external calendar booking id")
	cmd.Flags().StringVar(&target.Category, "category", "regular", "booking category")
	cmd.Flags().IntVar(&target.DurationMinutes, "duration", 60, "session length in minutes")
	cmd.Flags().StringVar(&target.Date, "date", "", "session date, YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&players, "player", nil, "player in slot order (repeatable)")
	return cmd
}

func parsePlayer(ctx context.Context, rt *deskRuntime, player string) (frontdesk.Slot, error) {
	kind, rest, _ := strings.Cut(player, ":")
	switch kind {
	case "member":
		email := utils.NormalizeEmail(rest)
		found, err := rt.api.SearchMembers(ctx, email, 5)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			if utils.NormalizeEmail(m.Email) == email && m.Kind != "visitor" {
				return frontdesk.MemberSlot{MemberID: m.ID, Email: m.Email, Name: m.Name, Tier: m.Tier}, nil
			}
		}
		return nil, fmt.Errorf("no member with email %s", email)
	case "visitor":
		email, name, ok := strings.Cut(rest, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("visitor needs email and name")
		}
		return frontdesk.VisitorSlot{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}, nil
	case "guest":
		return frontdesk.GuestPlaceholder{DisplayName: strings.TrimSpace(rest)}, nil
	}
	return nil, fmt.Errorf("unknown player kind %q", kind)
}

func newCheckinCmd() *cobra.Command {
	var confirmPayment bool

	cmd := &cobra.Command{
		Use:   "checkin <booking-id> <attended|no_show|cancelled>",
		Short: "Change a booking's attendance status",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			status := args[0]
			err := s.Checkin.SetStatus(ctx, status, confirmPayment)

			var gate *frontdesk.PaymentRequiredError
			if errors.As(err, &gate) && !confirmPayment && !s.Roster.Current().Validation.Incomplete() {
				outstanding := s.Roster.Current().FinancialSummary.OutstandingCents
				if !promptConfirm(fmt.Sprintf("%s outstanding was collected at the desk", utils.FormatCents(outstanding))) {
					return err
				}
				err = s.Checkin.SetStatus(ctx, status, true)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(rt.out, "Booking %s is now %s.\n", s.BookingID, s.Roster.Current().Booking.Status)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&confirmPayment, "confirm-payment", false, "record outstanding fees as collected")
	return cmd
}

func newVoidCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "void <booking-id>",
		Short: "Refund or cancel every payment on a booking",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			if !yes && !promptConfirm(fmt.Sprintf("Void all payments on booking %s", s.BookingID)) {
				fmt.Fprintln(rt.out, "Nothing voided.")
				return nil
			}

			res, err := s.Payment.VoidAll(ctx, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Refunded %d, cancelled %d, reset %d participant(s).\n", res.Refunded, res.Cancelled, res.Reset)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <booking-id>",
		Short: "Follow a booking's live events",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, rt *deskRuntime, s *frontdesk.Session, args []string) error {
			renderRoster(rt.out, s.Roster.Current())
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-s.Done():
					return nil
				case ev := <-rt.events:
					if line := describeEvent(ev); line != "" {
						fmt.Fprintln(rt.out, line)
					}
				}
			}
		}),
	}
}
