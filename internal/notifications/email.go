package notifications

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wneessen/go-mail"
)

// Email delivers notifications over SMTP.
type Email struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string
}

func (e *Email) Notify(event Event, outcome Outcome, details map[string]string) error {
	msg := mail.NewMsg()
	if err := msg.From(e.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(e.To...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(fmt.Sprintf("restoresentry: checkpoint %s %s", event, outcome))
	msg.SetBodyString(mail.TypeTextPlain, renderBody(event, outcome, details))

	opts := []mail.Option{mail.WithPort(e.Port)}
	if e.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.Username),
			mail.WithPassword(e.Password),
		)
	}

	client, err := mail.NewClient(e.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client setup failed: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send notification via smtp: %w", err)
	}
	return nil
}

func renderBody(event Event, outcome Outcome, details map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operation: %s\nOutcome:   %s\n", event, outcome)

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, details[k])
	}
	return b.String()
}
