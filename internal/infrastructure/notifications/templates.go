package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/you/accountsvc/domain"
)

var emailTemplates = htmltemplate.Must(htmltemplate.New("email").Parse(`
{{define "verification"}}<p>Welcome! Please confirm your email address.</p>
<p><a href="{{.Link}}">Verify email</a></p>
{{if .Expires}}
<p>This link expires in {{.Expires}}.</p>{{end}}{{end}}
{{define "password_reset"}}<p>A password reset was requested for your account.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, ignore this email.{{if .Expires}} The link expires in {{.Expires}}.{{end}}</p>{{end}}
`))

var smsTemplates = texttemplate.Must(texttemplate.New("sms").Parse(`
{{define "verification"}}Verify your account: {{.Link}}{{end}}
{{define "password_reset"}}Reset your password: {{.Link}}{{end}}
`))

var subjects = map[domain.MessageKind]string{
	domain.MessageVerification:  "Verify your email",
	domain.MessagePasswordReset: "Password reset",
}

var linkPaths = map[domain.MessageKind]string{
	domain.MessageVerification:  "/users/verify/",
	domain.MessagePasswordReset: "/users/reset-password/",
}

// Rendered is a message ready for a sender
type Rendered struct {
	Subject string
	Body    string
}

// Renderer turns queued messages into subject and body, with links rooted at baseURL.
// Email bodies state the token lifetime of their kind; a zero TTL omits the sentence.
type Renderer struct {
	baseURL string
	ttls    map[domain.MessageKind]time.Duration
}

func NewRenderer(baseURL string, verificationTTL, resetTTL time.Duration) *Renderer {
	return &Renderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		ttls: map[domain.MessageKind]time.Duration{
			domain.MessageVerification:  verificationTTL,
			domain.MessagePasswordReset: resetTTL,
		},
	}
}

// Link returns the public URL carrying the message token
func (r *Renderer) Link(msg domain.Message) (string, error) {
	path, ok := linkPaths[msg.Kind]
	if !ok {
		return "", fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return r.baseURL + path + url.PathEscape(msg.Token), nil
}

// Render builds the subject and body for msg on its channel
func (r *Renderer) Render(msg domain.Message) (*Rendered, error) {
	link, err := r.Link(msg)
	if err != nil {
		return nil, err
	}
	data := struct{ Link, Expires string }{Link: link, Expires: humanDuration(r.ttls[msg.Kind])}

	var buf bytes.Buffer
	switch msg.Channel {
	case domain.ChannelEmail:
		err = emailTemplates.ExecuteTemplate(&buf, string(msg.Kind), data)
	case domain.ChannelSMS:
		err = smsTemplates.ExecuteTemplate(&buf, string(msg.Kind), data)
	default:
		return nil, fmt.Errorf("unknown channel %q", msg.Channel)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", msg.Kind, err)
	}

	return &Rendered{Subject: subjects[msg.Kind], Body: buf.String()}, nil
}

// humanDuration spells d in the largest whole unit, e.g. "24 hours" or "90 minutes"
func humanDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}
