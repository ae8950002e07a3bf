package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type visitSubmittedEmailData struct {
	baseEmailData
	VisitNumber  string
	SiteCode     string
	EngineerName string
}

type visitReviewedEmailData struct {
	baseEmailData
	EngineerName string
	VisitNumber  string
	ReviewerName string
	Outcome      string
	Detail       string
}

type lowStockEmailData struct {
	baseEmailData
	MaterialName   string
	CurrentStock   string
	MinimumStock   string
	Unit           string
	BelowThreshold bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// formatQuantity trims trailing zeros so whole units read naturally while
// fractional meters and liters keep their precision.
func formatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
