package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// FaultReport is the client-facing description of a fault.
// Detail, Type and Trace are filled only when details are enabled, except
// for the Detail of an *HTTPError, which is always public.
type FaultReport struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"error_code,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Type      string   `json:"type,omitempty"`
	Trace     []string `json:"trace,omitempty"`
	Status    int      `json:"status"`
}

// NewFaultReport builds the report for fault.
// An *HTTPError anywhere in the chain decides status, message and code;
// every other fault is a 500 with a generic message.
func NewFaultReport(fault error, req *Request, details bool) FaultReport {
	report := FaultReport{
		Status:  http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
	}
	if req != nil {
		report.RequestID = req.RequestID()
	}

	if httpErr := AsHTTPError(fault); httpErr != nil {
		if httpErr.Code > 0 {
			report.Status = httpErr.Code
		}
		report.Message = httpErr.Message
		if report.Message == "" {
			report.Message = http.StatusText(report.Status)
		}
		report.ErrorCode = httpErr.ErrorCode
		report.Detail = httpErr.Detail
	}

	if !details || fault == nil {
		return report
	}

	if report.Detail == "" {
		report.Detail = fault.Error()
	}
	report.Type = faultType(fault)

	var pe *PanicError
	if errors.As(fault, &pe) && len(pe.Stack) > 0 {
		report.Trace = strings.Split(strings.TrimRight(string(pe.Stack), "\n"), "\n")
	}

	return report
}

// faultType names the fault type, or the panic value type for panics.
func faultType(fault error) string {
	var pe *PanicError
	if errors.As(fault, &pe) {
		return fmt.Sprintf("panic(%T)", pe.Value)
	}
	return fmt.Sprintf("%T", fault)
}

// JSONResponder answers faults with a JSON FaultReport.
type JSONResponder struct {
	// DisplayDetails includes the error text, type and stack trace.
	// Keep it off in production.
	DisplayDetails bool
}

// HandleFault implements FaultResponder.
func (r JSONResponder) HandleFault(fault error, req *Request) (*Response, error) {
	report := NewFaultReport(fault, req, r.DisplayDetails)
	resp, err := JSON(report.Status, report)
	if err != nil {
		return nil, err
	}
	return resp.WithHeader("Cache-Control", "no-store"), nil
}

// PageResponder answers faults with an HTML page.
type PageResponder struct {
	// Title overrides the page title. Defaults to the status text.
	Title string

	// DisplayDetails adds the error text, type and stack trace to the page.
	DisplayDetails bool
}

// HandleFault implements FaultResponder.
func (r PageResponder) HandleFault(fault error, req *Request) (*Response, error) {
	report := NewFaultReport(fault, req, r.DisplayDetails)
	title := r.Title
	if title == "" {
		title = http.StatusText(report.Status)
	}
	resp, err := Render(req.Context(), report.Status, FaultPage(title, report))
	if err != nil {
		return nil, err
	}
	return resp.WithHeader("Cache-Control", "no-store"), nil
}

// FaultPage renders report as a standalone HTML document.
func FaultPage(title string, report FaultReport) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>`)
		b.WriteString(templ.EscapeString(title))
		b.WriteString(`</title><style>`)
		b.WriteString(`body{font-family:system-ui,sans-serif;margin:3rem auto;max-width:60rem;padding:0 1rem;color:#222}`)
		b.WriteString(`h1{font-size:1.6rem}code,pre{background:#f4f4f4;padding:.2rem .4rem;border-radius:4px}`)
		b.WriteString(`pre{padding:1rem;overflow:auto;font-size:.85rem}.muted{color:#777}`)
		b.WriteString(`</style></head><body>`)

		b.WriteString(`<h1>`)
		b.WriteString(strconv.Itoa(report.Status))
		b.WriteString(` `)
		b.WriteString(templ.EscapeString(title))
		b.WriteString(`</h1><p>`)
		b.WriteString(templ.EscapeString(report.Message))
		b.WriteString(`</p>`)

		if report.ErrorCode != "" {
			b.WriteString(`<p class="muted">Code: <code>`)
			b.WriteString(templ.EscapeString(report.ErrorCode))
			b.WriteString(`</code></p>`)
		}
		if report.Detail != "" {
			b.WriteString(`<p>`)
			b.WriteString(templ.EscapeString(report.Detail))
			b.WriteString(`</p>`)
		}
		if report.Type != "" {
			b.WriteString(`<p class="muted">Type: <code>`)
			b.WriteString(templ.EscapeString(report.Type))
			b.WriteString(`</code></p>`)
		}
		if len(report.Trace) > 0 {
			b.WriteString(`<pre>`)
			b.WriteString(templ.EscapeString(strings.Join(report.Trace, "\n")))
			b.WriteString(`</pre>`)
		}
		if report.RequestID != "" {
			b.WriteString(`<p class="muted">Request ID: <code>`)
			b.WriteString(templ.EscapeString(report.RequestID))
			b.WriteString(`</code></p>`)
		}

		b.WriteString(`</body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
