package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// ConsoleService is an EmailService for DEV & TEST, printing the messages instead of sending them.
type ConsoleService struct {
	templates        *core.TemplateSet
	logger           core.Logger
	std              *log.Logger
	defaultFromEmail mail.Address
	subjPrefix       string
	sync             bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

// NewConsoleService returns an EmailService printing the messages to std.
func NewConsoleService(conf *core.Config, templates *core.TemplateSet, std *log.Logger, logger core.Logger) *ConsoleService {
	return &ConsoleService{
		templates:        templates,
		logger:           logger,
		std:              std,
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

// NewConsoleServiceMock returns a silent console EmailService that sends synchronously
// and keeps the sent messages for inspection.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleService {
	svc := NewConsoleService(conf, core.NewTemplateSet(conf), nil, logger)
	svc.sync = true
	return svc
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleService) sendMessage(msg *core.EmailMessage) {
	if err := svc.templates.Render(msg); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if err := svc.send(*msg); err != nil {
		svc.logger.Error("sending email", err)
		return
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
}

func (svc *ConsoleService) send(msg core.EmailMessage) error {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	if msg.TextContent != "" {
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
		if err != nil {
			return errors.Wrap(err, "creating text/plain part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)
	}
	if msg.HTMLContent != "" {
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err := altW.Close(); err != nil {
		return errors.Wrap(err, "closing multipart writer")
	}

	if svc.std != nil {
		svc.std.Println(body.String())
	}
	return nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
