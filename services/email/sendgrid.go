package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/academia/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// untemplatedCategory tags messages sent with a plain body.
const untemplatedCategory = "plain"

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	templates  *core.TemplateSet
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, templates *core.TemplateSet, logger core.Logger) *sendgridService {
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		templates:  templates,
		logger:     logger,
	}
}

// SendMessages renders and sends each message in its own goroutine; failures are logged with the message context.
func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := svc.deliver(msg); err != nil {
				svc.logger.Error(err.Error(), err, messageContext(msg))
			}
		}()
	}
}

// deliver renders msg and posts it; messages without recipients or content are dropped.
func (svc sendgridService) deliver(msg *core.EmailMessage) error {
	if err := svc.templates.Render(msg); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(*msg))

	res, err := sendgrid.MakeRequestRetry(req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(category(msg))

	// text/plain must come first
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, sgmail.NewEmail(addr.Name, addr.Address))
	}
	return emails
}

func category(msg core.EmailMessage) string {
	if msg.TemplateName == "" {
		return untemplatedCategory
	}
	return msg.TemplateName
}

func messageContext(msg *core.EmailMessage) map[string]interface{} {
	return map[string]interface{}{
		"template":   category(*msg),
		"subject":    msg.Subject,
		"recipients": len(msg.To) + len(msg.Cc) + len(msg.Bcc),
		"data":       fmt.Sprintf("%+v", msg.TemplateData),
	}
}
