package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"roster-desk/pkg/utils"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Receipt describes a settled payment for the booking owner.
type Receipt struct {
	To          string
	OwnerName   string
	BookingID   string
	AmountCents int64
	Method      string
	Reason      string // waivers only
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<p>Hi {{.OwnerName}},</p>
{{if .Reason}}<p>The fees for booking {{.BookingID}} were waived ({{.Reason}}).</p>
{{else}}<p>We received {{.Amount}} for booking {{.BookingID}} via {{.Method}}.</p>
{{end}}<p>See you on court.</p>`))

type ResendNotifier struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

// NewResendNotifier returns nil when no API key is configured; callers treat a
// nil notifier as disabled.
func NewResendNotifier(config utils.ResendConfig, log *zap.Logger) *ResendNotifier {
	if config.APIKey == "" {
		return nil
	}

	return &ResendNotifier{
		client: resend.NewClient(config.APIKey),
		from:   config.From,
		log:    log.With(zap.String("notifier", "resend")),
	}
}

func (n *ResendNotifier) SendReceipt(ctx context.Context, r Receipt) error {
	html, err := RenderReceipt(r)
	if err != nil {
		return err
	}

	subject := "Payment received"
	if r.Reason != "" {
		subject = "Booking fees waived"
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{r.To},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		n.log.Error("Failed to send receipt",
			zap.Error(err),
			zap.String("booking_id", r.BookingID),
		)
		return fmt.Errorf("send receipt for booking %s: %w", r.BookingID, err)
	}

	n.log.Info("Receipt sent",
		zap.String("message_id", sent.Id),
		zap.String("booking_id", r.BookingID),
	)
	return nil
}

func RenderReceipt(r Receipt) (string, error) {
	var sb strings.Builder
	err := receiptTmpl.Execute(&sb, struct {
		Receipt
		Amount string
	}{r, utils.FormatCents(r.AmountCents)})
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return sb.String(), nil
}
