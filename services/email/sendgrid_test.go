package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

type sentMail struct {
	Personalizations []struct {
		To      []struct{ Email string } `json:"to"`
		Subject string                   `json:"subject"`
	} `json:"personalizations"`
	Categories []string `json:"categories"`
	Content    []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// serveSendgrid points the service at a test server answering with status;
// the decoded bodies of the requests it receives are sent on the returned channel.
func serveSendgrid(t *testing.T, status int) <-chan sentMail {
	bodies := make(chan sentMail, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, endpoint, r.URL.Path)
		var m sentMail
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &m))
		bodies <- m
		w.WriteHeader(status)
	}))
	origHost := host
	host = srv.URL
	t.Cleanup(func() {
		host = origHost
		srv.Close()
	})
	return bodies
}

func TestSendgridService_deliver(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, core.NewTemplateSet(conf), nil)
	to := []mail.Address{{Name: "Jo", Address: "jo@test.cd"}}

	t.Run("certificate issued", func(t *testing.T) {
		bodies := serveSendgrid(t, http.StatusAccepted)
		err := svc.deliver(&core.EmailMessage{
			To:           to,
			Subject:      "Your certificate for Math",
			TemplateName: "certificate_issued",
			TemplateData: struct {
				StudentName, CourseName, Code, IssuedAt string
			}{"Jo", "Math", "ABCDEF0123", "October 1, 2026"},
		})
		require.NoError(t, err)
		got := <-bodies
		require.Len(t, got.Personalizations, 1)
		assert.Equal(t, "jo@test.cd", got.Personalizations[0].To[0].Email)
		assert.Equal(t, "["+conf.AppName+"] Your certificate for Math", got.Personalizations[0].Subject)
		assert.Equal(t, []string{"certificate_issued"}, got.Categories)
		if assert.Len(t, got.Content, 2) {
			assert.Equal(t, "text/plain", got.Content[0].Type)
			assert.Contains(t, got.Content[0].Value, "ABCDEF0123")
			assert.Equal(t, "text/html", got.Content[1].Type)
		}
	})

	t.Run("plain body", func(t *testing.T) {
		bodies := serveSendgrid(t, http.StatusAccepted)
		require.NoError(t, svc.deliver(&core.EmailMessage{To: to, Subject: "Hello", BodyStr: "hello"}))
		got := <-bodies
		assert.Equal(t, []string{untemplatedCategory}, got.Categories)
		if assert.Len(t, got.Content, 1) {
			assert.Equal(t, "hello", got.Content[0].Value)
		}
	})

	t.Run("nothing to send", func(t *testing.T) {
		bodies := serveSendgrid(t, http.StatusAccepted)
		require.NoError(t, svc.deliver(&core.EmailMessage{BodyStr: "no one"}))
		require.NoError(t, svc.deliver(&core.EmailMessage{To: to}))
		assert.Empty(t, bodies)
	})

	t.Run("rejected", func(t *testing.T) {
		serveSendgrid(t, http.StatusBadRequest)
		err := svc.deliver(&core.EmailMessage{To: to, BodyStr: "hello"})
		assert.EqualError(t, err, "sending email - status: 400 - body: ")
	})

	t.Run("unknown template", func(t *testing.T) {
		err := svc.deliver(&core.EmailMessage{To: to, TemplateName: "nope"})
		assert.EqualError(t, err, `rendering email: unknown email template "nope"`)
	})
}

func TestMessageContext(t *testing.T) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: "jo@test.cd"}},
		Bcc:          []mail.Address{{Address: "admin@test.cd"}},
		Subject:      "Your certificate for Math",
		TemplateName: "certificate_issued",
		TemplateData: struct{ Code string }{"ABCDEF0123"},
	}
	assert.Equal(t, map[string]interface{}{
		"template":   "certificate_issued",
		"subject":    "Your certificate for Math",
		"recipients": 2,
		"data":       "{Code:ABCDEF0123}",
	}, messageContext(msg))
}
