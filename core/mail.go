package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

// baseTemplate is the layout every email template is parsed with; it is not a template of its own.
const baseTemplate = "base"

//go:embed templates/email
var emailTemplatesFS embed.FS

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	// TemplateSet holds the parsed email templates, keyed by name (file name without ext).
	TemplateSet struct {
		appName         string
		frontendBaseURL string
		strict          bool

		once    sync.Once
		err     error
		entries map[string]*tmplCacheEntry
	}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewTemplateSet returns the embedded email templates, parsed lazily on first render.
func NewTemplateSet(conf *Config) *TemplateSet {
	return &TemplateSet{
		appName:         conf.AppName,
		frontendBaseURL: strings.TrimRight(conf.FrontendBaseURL, "/"),
		strict:          conf.Debug || conf.TestMode,
	}
}

// Render fills the text & html contents of msg.
func (ts *TemplateSet) Render(msg *EmailMessage) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
	}
	if msg.TemplateName == "" {
		return nil
	}

	ts.once.Do(ts.parse) // only execute once during first render
	if ts.err != nil {
		return ts.err
	}
	entry, ok := ts.entries[msg.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", msg.TemplateName)
	}

	data := ContextData{
		AppName:         ts.appName,
		FrontendBaseURL: ts.frontendBaseURL,
		Data:            msg.TemplateData,
	}
	var buff bytes.Buffer
	if entry.text != nil && msg.BodyStr == "" {
		if err := entry.text.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", msg.TemplateName)
		}
		msg.TextContent = buff.String()
		buff.Reset()
	}
	if entry.html != nil {
		if err := entry.html.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", msg.TemplateName)
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}

func (ts *TemplateSet) parse() {
	ts.entries = make(map[string]*tmplCacheEntry)

	root, err := fs.Sub(emailTemplatesFS, "templates/email")
	if err != nil {
		ts.err = errors.Wrap(err, "core.parseTemplates")
		return
	}
	fnames, err := fs.Glob(root, "*")
	if err != nil {
		ts.err = errors.Wrap(err, "core.parseTemplates")
		return
	}

	for _, fname := range fnames {
		ext := path.Ext(fname)
		if strings.TrimSuffix(fname, ext) == baseTemplate || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := ts.entries[name]
		if !ok {
			entry = new(tmplCacheEntry)
			ts.entries[name] = entry
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(root, baseTemplate+".txt", fname)
			if err != nil {
				ts.err = errors.Wrap(err, "core.parseTemplates")
				return
			}
			if ts.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(root, baseTemplate+".gohtml", fname)
			if err != nil {
				ts.err = errors.Wrap(err, "core.parseTemplates")
				return
			}
			if ts.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		}
	}
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
