// Package document renders the allocation letter and fee invoice sent to
// students after an allocation is committed.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// AllocationLetter is the data printed on an allocation letter.
type AllocationLetter struct {
	StudentName    string
	RollNo         string
	RegistrationNo string
	HostelName     string
	RoomNumber     string
	RoomType       string
	Semester       int
	Year           int
	IssuedAt       time.Time
}

// Invoice is the data printed on a fee invoice.
type Invoice struct {
	Number      string
	StudentName string
	Email       string
	Description string
	Amount      float64
	Penalty     float64
	DueDate     time.Time
	Semester    int
	Year        int
	IssuedAt    time.Time
}

// Total is the amount owed including any penalty.
func (i Invoice) Total() float64 {
	return i.Amount + i.Penalty
}

var funcs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

var (
	letterTmpl = template.Must(template.New("letter").Funcs(funcs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Room Allocation Letter</title></head>
<body>
<h1>Room Allocation Letter</h1>
<p>Date: {{date .IssuedAt}}</p>
<p>Dear {{.StudentName}},</p>
<p>You have been allotted the following accommodation for semester {{.Semester}}, year {{.Year}}.</p>
<table>
<tr><th>Roll No</th><td>{{.RollNo}}</td></tr>
<tr><th>Registration No</th><td>{{.RegistrationNo}}</td></tr>
<tr><th>Hostel</th><td>{{.HostelName}}</td></tr>
<tr><th>Room</th><td>{{.RoomNumber}} ({{.RoomType}})</td></tr>
</table>
<p>Please report to the hostel office with this letter.</p>
</body></html>
`))

	invoiceTmpl = template.Must(template.New("invoice").Funcs(funcs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Invoice {{.Number}}</title></head>
<body>
<h1>Invoice {{.Number}}</h1>
<p>Issued: {{date .IssuedAt}}</p>
<p>Billed to: {{.StudentName}} &lt;{{.Email}}&gt;</p>
<table>
<tr><th>Description</th><th>Amount</th></tr>
<tr><td>{{.Description}} (semester {{.Semester}}, year {{.Year}})</td><td>{{money .Amount}}</td></tr>
{{- if gt .Penalty 0.0}}
<tr><td>Late payment penalty</td><td>{{money .Penalty}}</td></tr>
{{- end}}
<tr><th>Total</th><th>{{money .Total}}</th></tr>
</table>
<p>Due by {{date .DueDate}}.</p>
</body></html>
`))
)

// Renderer produces HTML documents.
type Renderer struct{}

// NewRenderer returns a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Letter renders the allocation letter.
func (r *Renderer) Letter(l AllocationLetter) ([]byte, error) {
	var buf bytes.Buffer
	if err := letterTmpl.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("render allocation letter: %w", err)
	}
	return buf.Bytes(), nil
}

// Invoice renders the fee invoice.
func (r *Renderer) Invoice(i Invoice) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, i); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
