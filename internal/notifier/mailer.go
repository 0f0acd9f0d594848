// Package notifier delivers kept evaluations by email. It is the only
// component with explicit failure containment: a failed send is logged and
// reported as false, never propagated.
package notifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"dealscout/internal/listing"
	"dealscout/logger"
)

// Mailer sends evaluation summaries through an authenticated SMTP relay
// over STARTTLS.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *logger.Logger
}

// NewMailer creates a mailer.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		log:      logger.ForNotifier(),
	}
}

// Notify formats and sends the evaluation to the recipient. Returns true
// only when the relay accepted the message.
func (m *Mailer) Notify(ev listing.Evaluation, recipient string) bool {
	body, err := FormatBody(ev)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to format notification")
		return false
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		m.log.Error().Err(err).Str("from", m.from).Msg("Invalid sender address")
		return false
	}
	if err := msg.To(recipient); err != nil {
		m.log.Error().Err(err).Str("to", recipient).Msg("Invalid recipient address")
		return false
	}
	msg.Subject(Subject(ev))
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to create mail client")
		return false
	}

	if err := client.DialAndSend(msg); err != nil {
		m.log.Error().Err(err).Str("to", recipient).Msg("Failed to send notification")
		return false
	}

	m.log.Info().
		Str("to", recipient).
		Str("title", ev.Listing.Title).
		Float64("score", ev.PercentileScore).
		Msg("Sent deal notification")
	return true
}

// Subject builds the notification subject line.
func Subject(ev listing.Evaluation) string {
	return fmt.Sprintf("Deal found: %s (%.1f%% of market)", ev.Listing.Title, ev.PercentileScore)
}

// FormatBody renders the human-readable summary followed by the full
// pretty-printed evaluation.
func FormatBody(ev listing.Evaluation) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Title:     %s\n", ev.Listing.Title)
	if ev.Listing.Price.Known {
		fmt.Fprintf(&b, "Ad price:  $%.2f\n", ev.Listing.Price.Amount)
	} else {
		fmt.Fprintf(&b, "Ad price:  unknown\n")
	}
	if ev.Priced {
		fmt.Fprintf(&b, "Score:     %.1f%% of the average reference price ($%.2f)\n",
			ev.PercentileScore, ev.AverageReferencePrice)
	} else {
		fmt.Fprintf(&b, "Score:     no market price could be established\n")
	}
	fmt.Fprintf(&b, "Location:  %s\n", ev.Listing.Location)
	fmt.Fprintf(&b, "URL:       %s\n", ev.Listing.URL)

	pretty, err := json.MarshalIndent(ev, "", "    ")
	if err != nil {
		return "", err
	}
	b.WriteString("\nFull evaluation:\n")
	b.Write(pretty)
	b.WriteString("\n")

	return b.String(), nil
}
