package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"strconv"
	"strings"

	"github.com/peoplehub/peoplehub-backend/pkg/i18n"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
)

// QueueName is the queue the notifier consumes from
const QueueName = "notification-service"

var layout = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
{{range .}}<p>{{.}}</p>
{{end}}<p style="color: #888;">PeopleHub</p>
</body></html>`))

// renderHTML wraps each blank-line separated paragraph of text in <p>
func renderHTML(text string) string {
	var paragraphs []string
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	var buf bytes.Buffer
	if err := layout.Execute(&buf, paragraphs); err != nil {
		return ""
	}
	return buf.String()
}

// Notifier mails users about account and import events
type Notifier struct {
	sender Sender
	locale string
	logger *logger.Logger
}

// NewNotifier creates a notifier that writes mail in locale
func NewNotifier(sender Sender, locale string, log *logger.Logger) *Notifier {
	if !i18n.IsSupported(locale) {
		locale = i18n.DefaultLocale
	}
	return &Notifier{sender: sender, locale: locale, logger: log.WithComponent("notifier")}
}

// Register attaches the notifier's handlers to c
func (n *Notifier) Register(c *messaging.Consumer) {
	c.RegisterHandler(messaging.EventUserRegistered, n.handleUserRegistered)
	c.RegisterHandler(messaging.EventImportCompleted, n.handleImportCompleted)
}

// Subscribe binds c to the exchanges the notifier cares about
func Subscribe(c *messaging.Consumer) error {
	if err := c.Subscribe(messaging.ExchangeAuthEvents, messaging.EventUserRegistered); err != nil {
		return err
	}
	return c.Subscribe(messaging.ExchangeHREvents, messaging.EventImportCompleted)
}

func (n *Notifier) handleUserRegistered(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserRegisteredEvent
	if err := event.UnmarshalData(&data); err != nil {
		// Malformed payloads never succeed on retry.
		n.logger.Error().Err(err).Str("event_id", event.ID).Msg("invalid user registered payload")
		return nil
	}
	if data.Email == "" {
		return nil
	}

	name := data.FullName
	if name == "" {
		name = data.Email
	}
	params := map[string]string{"name": name, "email": data.Email}

	body := i18n.TWithLocale(n.locale, "mail.welcome_body", params)
	return n.sender.Send(ctx, &Message{
		To:      []string{data.Email},
		Subject: i18n.TWithLocale(n.locale, "mail.welcome_subject", params),
		Body:    body,
		HTML:    renderHTML(body),
	})
}

func (n *Notifier) handleImportCompleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.ImportCompletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		n.logger.Error().Err(err).Str("event_id", event.ID).Msg("invalid import completed payload")
		return nil
	}
	if data.RequestedByEmail == "" {
		n.logger.Debug().Str("import_id", data.ImportID).Msg("import has no requester email, skipping")
		return nil
	}

	file := data.FileName
	if file == "" {
		file = data.ImportID
	}
	params := map[string]string{
		"file":        file,
		"created":     strconv.Itoa(data.EmployeesCreated),
		"updated":     strconv.Itoa(data.EmployeesUpdated),
		"departments": strconv.Itoa(data.DepartmentsCreated),
	}

	body := i18n.TWithLocale(n.locale, "mail.import_body", params)
	msg := &Message{
		To:      []string{data.RequestedByEmail},
		Subject: i18n.TWithLocale(n.locale, "mail.import_subject", params),
		Body:    body,
		HTML:    renderHTML(body),
	}
	if summary, err := json.MarshalIndent(data, "", "  "); err == nil {
		msg.Attachments = append(msg.Attachments, Attachment{
			Name:        "import-" + data.ImportID + ".json",
			ContentType: "application/json",
			Data:        summary,
		})
	}
	return n.sender.Send(ctx, msg)
}
