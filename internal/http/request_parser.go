// Package http provides the JSON API, the embedded pages and the event
// stream.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form encoded; amounts, dates and filters accept the
// pt-BR formats the pages send.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/services"
)

const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errMalformedBody
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = errMalformedBody
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = errMalformedBody
	}
	return p.err
}

// Has reports whether key was sent at all, even empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Amount reads an amount field. JSON numbers are read with a decimal dot,
// typed strings go through the pt-BR aware parser; a value under "<key>Centavos" is read as a masked
// input of digits.
func (p *RequestBodyParser) Amount(key string) (core.Money, error) {
	if masked := p.Get(key + "Centavos"); masked != "" {
		cents, err := core.ParseMaskedCents(masked)
		return core.Money{Cents: cents}, err
	}
	if n, ok := p.jsonData[key].(json.Number); ok {
		cents, err := core.NumberToCents(n.String())
		return core.Money{Cents: cents}, err
	}
	cents, err := core.ParseDecimalToCents(p.Get(key))
	return core.Money{Cents: cents}, err
}

// Date reads a date field. Missing or empty yields the zero time, which the
// domain rejects as a missing date.
func (p *RequestBodyParser) Date(key string) (time.Time, error) {
	return parseDate(p.Get(key))
}

// Int reads an integer field.
func (p *RequestBodyParser) Int(key string) (int, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseDate accepts ISO (2024-03-10) and pt-BR (10/03/2024) dates, in the
// server's local zone.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.ErrMissingDate
}

// ParseTransactionInput reads a new simple transaction.
func ParseTransactionInput(p *RequestBodyParser) (services.TransactionInput, error) {
	var in services.TransactionInput
	var err error

	in.Descricao = p.Get("descricao")
	in.Observacao = p.Get("observacao")
	in.GroupID = p.Get("groupId")
	if in.Valor, err = p.Amount("valor"); err != nil {
		return in, err
	}
	if in.Tipo, err = core.ParseKind(p.Get("tipo")); err != nil {
		return in, err
	}
	if s := p.Get("status"); s != "" {
		if in.Status, err = core.ParseStatus(s); err != nil {
			return in, err
		}
	}
	if in.Data, err = p.Date("data"); err != nil {
		return in, err
	}
	return in, nil
}

// ParseTransactionEdit reads a partial update; absent fields stay untouched.
func ParseTransactionEdit(p *RequestBodyParser) (services.TransactionEdit, error) {
	var edit services.TransactionEdit
	patch := &edit.Patch

	if p.Has("tipo") {
		k, err := core.ParseKind(p.Get("tipo"))
		if err != nil {
			return edit, err
		}
		edit.Tipo = &k
	}
	if p.Has("descricao") {
		d := p.Get("descricao")
		patch.Descricao = &d
	}
	if p.Has("valor") || p.Has("valorCentavos") {
		m, err := p.Amount("valor")
		if err != nil {
			return edit, err
		}
		patch.Valor = &m
	}
	if p.Has("data") {
		d, err := p.Date("data")
		if err != nil {
			return edit, err
		}
		if d.IsZero() {
			return edit, core.ErrMissingDate
		}
		patch.Data = &d
	}
	if p.Has("status") {
		st, err := core.ParseStatus(p.Get("status"))
		if err != nil {
			return edit, err
		}
		patch.Status = &st
	}
	if p.Has("groupId") {
		g := p.Get("groupId")
		patch.GroupID = &g
	}
	if p.Has("observacao") {
		o := p.Get("observacao")
		patch.Observacao = &o
	}
	return edit, nil
}

// ParseInstallmentPlan reads a parceled purchase.
func ParseInstallmentPlan(p *RequestBodyParser) (core.InstallmentPlan, error) {
	var plan core.InstallmentPlan
	var err error

	plan.Descricao = p.Get("descricao")
	plan.GroupID = p.Get("groupId")
	plan.Observacao = p.Get("observacao")
	if plan.Total, err = p.Amount("valorTotal"); err != nil {
		return plan, err
	}
	if plan.Count, err = p.Int("parcelas"); err != nil {
		return plan, core.ErrInvalidInstallmentCount
	}
	if plan.FirstDate, err = p.Date("dataPrimeira"); err != nil {
		return plan, err
	}
	return plan, nil
}

// ParseNamed reads the name and tipo of a group or predefined description.
func ParseNamed(p *RequestBodyParser) (string, core.Kind, error) {
	tipo, err := core.ParseKind(p.Get("tipo"))
	if err != nil {
		return "", "", err
	}
	return p.Get("name"), tipo, nil
}

// ParseReportFilter reads the report and list filters from the query:
// q, periodo (all, day, week, month, year, month-year), mes, ano, grupo
// and prefixo.
func ParseReportFilter(query url.Values) (core.ReportFilter, error) {
	month, _ := strconv.Atoi(strings.TrimSpace(query.Get("mes")))
	year, _ := strconv.Atoi(strings.TrimSpace(query.Get("ano")))
	period, err := core.ParsePeriod(query.Get("periodo"), month, year)
	if err != nil {
		return core.ReportFilter{}, err
	}

	f := core.ReportFilter{
		Term:       sanitizeInput(query.Get("q")),
		Period:     period,
		GroupID:    sanitizeInput(query.Get("grupo")),
		NamePrefix: sanitizeInput(query.Get("prefixo")),
	}
	if f.GroupID == core.All {
		f.GroupID = ""
	}
	if f.NamePrefix == core.All {
		f.NamePrefix = ""
	}
	return f, nil
}

// ParseKindParam reads an optional tipo from the query. Empty and "all"
// mean both kinds.
func ParseKindParam(query url.Values) (core.Kind, error) {
	v := strings.TrimSpace(query.Get("tipo"))
	if v == "" || v == core.All {
		return "", nil
	}
	return core.ParseKind(v)
}
