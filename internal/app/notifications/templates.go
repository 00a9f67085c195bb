package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/websocket"
)

type kindDef struct {
	subject    *texttemplate.Template
	html       *htmltemplate.Template
	text       *texttemplate.Template
	sms        *texttemplate.Template
	event      string
	staffRooms []models.Role
}

const layoutHTML = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">{{template "body" .}}<p style="color:#888;font-size:12px">{{.institution}}</p></body></html>`

func define(name, subject, html, text, sms, event string, rooms ...models.Role) *kindDef {
	def := &kindDef{
		subject:    texttemplate.Must(texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		event:      event,
		staffRooms: rooms,
	}
	if html != "" {
		layout := htmltemplate.Must(htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(layoutHTML))
		htmltemplate.Must(layout.New("body").Parse(html))
		def.html = layout
	}
	if text != "" {
		def.text = texttemplate.Must(texttemplate.New(name + ".text").Option("missingkey=zero").Parse(text))
	}
	if sms != "" {
		def.sms = texttemplate.Must(texttemplate.New(name + ".sms").Option("missingkey=zero").Parse(sms))
	}
	return def
}

var registry = map[Kind]*kindDef{
	KindVoucherSold: define("voucher_sold",
		`Your {{.type}} application voucher`,
		`<p>Dear applicant,</p><p>Thank you for your payment of {{.amount}}. Use the credentials below to create your application account.</p>
<p><strong>Serial number:</strong> {{.serial}}<br><strong>PIN:</strong> {{.pin}}</p><p>Keep these details private. The voucher can be used once.</p>`,
		"Dear applicant,\n\nThank you for your payment of {{.amount}}.\nSerial number: {{.serial}}\nPIN: {{.pin}}\n\nThe voucher can be used once.\n",
		"Your {{.type}} voucher: serial {{.serial}}, PIN {{.pin}}.",
		websocket.EventVoucherSold, models.RoleFinance, models.RoleAdmin),
	KindApplicationSubmitted: define("application_submitted",
		`Application {{.applicationId}} submitted`,
		"", "", "",
		websocket.EventApplicationSubmitted, models.RoleRegistrar, models.RoleAdmin),
	KindApplicationAdmitted: define("application_admitted",
		`Offer of admission: {{.program}}`,
		`<p>Dear {{.name}},</p><p>Congratulations! You have been offered admission to <strong>{{.program}}</strong>.</p>
<p>Your student ID is <strong>{{.systemId}}</strong>. Your admission letter is attached.</p><p>Sign in with your email or student ID to register for courses and pay fees.</p>`,
		"Dear {{.name}},\n\nCongratulations! You have been offered admission to {{.program}}.\nYour student ID is {{.systemId}}. Your admission letter is attached.\n",
		"Congratulations {{.name}}! You have been admitted to {{.program}}. Student ID: {{.systemId}}.",
		websocket.EventApplicationAdmitted, models.RoleRegistrar, models.RoleAdmin),
	KindApplicationRejected: define("application_rejected",
		`Update on your application`,
		`<p>Dear {{.name}},</p><p>After careful review we are unable to offer you admission this cycle. Thank you for your interest.</p>`,
		"Dear {{.name}},\n\nAfter careful review we are unable to offer you admission this cycle. Thank you for your interest.\n",
		"",
		websocket.EventApplicationRejected, models.RoleRegistrar),
	KindInvoicePaid: define("invoice_paid",
		`Payment received: {{.description}}`,
		`<p>Dear {{.name}},</p><p>We received {{.amount}} for <em>{{.description}}</em>. Reference: {{.reference}}.</p>`,
		"Dear {{.name}},\n\nWe received {{.amount}} for {{.description}}. Reference: {{.reference}}.\n",
		"Payment of {{.amount}} received. Ref {{.reference}}.",
		websocket.EventInvoicePaid, models.RoleFinance),
}

// rendered is a message after template execution
type rendered struct {
	Subject string
	HTML    string
	Text    string
	SMS     string
}

func render(msg Message) (*rendered, error) {
	def, ok := registry[msg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	data := map[string]string{}
	for k, v := range msg.Data {
		data[k] = v
	}
	if data["name"] == "" {
		data["name"] = msg.ToName
	}

	out := &rendered{}
	var buf bytes.Buffer
	if err := def.subject.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	out.Subject = buf.String()

	if def.html != nil {
		buf.Reset()
		if err := def.html.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		out.HTML = buf.String()
	}
	if def.text != nil {
		buf.Reset()
		if err := def.text.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render text: %w", err)
		}
		out.Text = buf.String()
	}
	if def.sms != nil {
		buf.Reset()
		if err := def.sms.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render sms: %w", err)
		}
		out.SMS = buf.String()
	}
	return out, nil
}
