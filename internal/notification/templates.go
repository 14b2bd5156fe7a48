// Package notification renders and delivers the service's emails.
package notification

import (
	"bytes"
	"fmt"
	"text/template"

	"strata-violations/internal/model"
)

type Message struct {
	Subject string
	Body    string
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var sources = map[model.NotificationTemplate][2]string{
	model.TemplateViolationReported: {
		"Bylaw violation reported for unit {{.unitNumber}}",
		`A bylaw violation has been reported for unit {{.unitNumber}}.

Reference: {{.referenceNumber}}
Type: {{.violationType}}
Date: {{.violationDate}}{{if .violationTime}} {{.violationTime}}{{end}}

{{.description}}

You can review the report and dispute it here:
{{.link}}

This link expires on {{.linkExpiresAt}} and can be used once.
`,
	},
	model.TemplateViolationPendingApproval: {
		"Violation awaiting approval: unit {{.unitNumber}}",
		`A new violation for unit {{.unitNumber}} is waiting for council review.

Reference: {{.referenceNumber}}
Type: {{.violationType}}
Date: {{.violationDate}}

{{.description}}
`,
	},
	model.TemplateViolationApproved: {
		"Violation approved for unit {{.unitNumber}}",
		`The violation {{.referenceNumber}} for unit {{.unitNumber}} has been approved by council.
{{if .fineAmount}}
A fine of {{.fineAmount}} has been levied.
{{end}}{{if .comment}}
Council note: {{.comment}}
{{end}}`,
	},
	model.TemplateViolationRejected: {
		"Violation dismissed for unit {{.unitNumber}}",
		`The violation {{.referenceNumber}} for unit {{.unitNumber}} has been dismissed.

Reason: {{.rejectionReason}}
`,
	},
	model.TemplateViolationDisputed: {
		"Violation disputed: unit {{.unitNumber}}",
		`An occupant of unit {{.unitNumber}} has disputed violation {{.referenceNumber}}.

Disputed by: {{.disputedBy}}

{{.comment}}
`,
	},
	model.TemplateVerificationCode: {
		"Your verification code",
		`Your verification code is {{.code}}.

It expires in {{.expiresInMinutes}} minutes. If you did not request it, ignore this email.
`,
	},
}

// Renderer turns an outbox template and payload into a message.
type Renderer struct {
	templates map[model.NotificationTemplate]messageTemplate
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[model.NotificationTemplate]messageTemplate, len(sources))}
	for name, src := range sources {
		subject, err := template.New(string(name) + ".subject").Option("missingkey=zero").Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		body, err := template.New(string(name) + ".body").Option("missingkey=zero").Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", name, err)
		}
		r.templates[name] = messageTemplate{subject: subject, body: body}
	}
	return r, nil
}

func (r *Renderer) Render(name model.NotificationTemplate, payload map[string]string) (Message, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", name)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, payload); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.body.Execute(&body, payload); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", name, err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}

// FormatCents renders an integer cent amount as a currency string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
