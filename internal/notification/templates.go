package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

var funcs = map[string]any{
	"when": func(t time.Time) string { return t.Format(timeLayout) },
}

type template struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func mustTemplate(name, subject, text, html string) template {
	return template{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New(name).Funcs(funcs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name).Funcs(funcs).Parse(html)),
	}
}

func (t template) render(data any) (subject, text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := t.text.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text %s: %w", t.text.Name(), err)
	}
	if err := t.html.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html %s: %w", t.html.Name(), err)
	}
	return t.subject, tb.String(), hb.String(), nil
}

// BookingLeg is one flight of a booked route.
type BookingLeg struct {
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	Seats                []string
}

type BookingConfirmation struct {
	ToAddress     string
	ToName        string
	ReservationID int64
	RouteName     string
	TotalCost     decimal.Decimal
	Legs          []BookingLeg
}

type FlightDelay struct {
	ToAddress            string
	ToName               string
	FlightID             int64
	DepartureAirportCode string
	ArrivalAirportCode   string
	DelayMinutes         int
	NewDepartureTime     time.Time
}

type ComplaintResponse struct {
	ToAddress   string
	ToName      string
	ComplaintID int64
	Description string
	Response    string
}

type EmailConfirmation struct {
	ToAddress string
	ToName    string
	UserID    string
	Token     string
	Link      string
}

var (
	bookingTemplate = mustTemplate("booking", "Your booking is confirmed",
		`Hello {{.ToName}},

Your reservation #{{.ReservationID}} for {{.RouteName}} is confirmed.
{{range .Legs}}
{{.DepartureAirportCode}} -> {{.ArrivalAirportCode}}: {{when .DepartureTime}} - {{when .ArrivalTime}}, seats {{range $i, $s := .Seats}}{{if $i}}, {{end}}{{$s}}{{end}}
{{end}}
Total: {{.TotalCost.StringFixed 2}}
`,
		`<p>Hello {{.ToName}},</p>
<p>Your reservation <strong>#{{.ReservationID}}</strong> for {{.RouteName}} is confirmed.</p>
<ul>{{range .Legs}}
<li>{{.DepartureAirportCode}} &rarr; {{.ArrivalAirportCode}}: {{when .DepartureTime}} - {{when .ArrivalTime}}, seats {{range $i, $s := .Seats}}{{if $i}}, {{end}}{{$s}}{{end}}</li>{{end}}
</ul>
<p>Total: {{.TotalCost.StringFixed 2}}</p>`)

	delayTemplate = mustTemplate("delay", "Your flight has been delayed",
		`Hello {{.ToName}},

Flight {{.DepartureAirportCode}} -> {{.ArrivalAirportCode}} is delayed by {{.DelayMinutes}} minutes.
New departure time: {{when .NewDepartureTime}}
`,
		`<p>Hello {{.ToName}},</p>
<p>Flight {{.DepartureAirportCode}} &rarr; {{.ArrivalAirportCode}} is delayed by {{.DelayMinutes}} minutes.</p>
<p>New departure time: <strong>{{when .NewDepartureTime}}</strong></p>`)

	complaintTemplate = mustTemplate("complaint", "We have responded to your complaint",
		`Hello {{.ToName}},

Regarding your complaint #{{.ComplaintID}}:
"{{.Description}}"

{{.Response}}
`,
		`<p>Hello {{.ToName}},</p>
<p>Regarding your complaint #{{.ComplaintID}}:</p>
<blockquote>{{.Description}}</blockquote>
<p>{{.Response}}</p>`)

	confirmTemplate = mustTemplate("confirm", "Confirm your email",
		`Hello {{.ToName}},

Confirm your email address with this link:
{{.Link}}

The link expires in 24 hours.
`,
		`<p>Hello {{.ToName}},</p>
<p><a href="{{.Link}}">Confirm your email address</a>.</p>
<p>The link expires in 24 hours.</p>`)
)
