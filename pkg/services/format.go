package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/PuerkitoBio/goquery"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
)

const productName = "Code Climate"

var coverageTemplate = template.Must(template.New("coverage").Parse(`<b>Coverage:</b> {{.Coverage}}`))

func renderCoverage(evt domain.Event) (string, error) {
	var buf bytes.Buffer
	err := coverageTemplate.Execute(&buf, map[string]string{
		"Coverage": strconv.FormatFloat(evt.Coverage, 'f', -1, 64),
	})
	if err != nil {
		return "", fmt.Errorf("render coverage: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func issueTitle(evt domain.Event) string {
	check := ""
	if evt.Issue != nil {
		check = evt.Issue.CheckName
	}
	return fmt.Sprintf("Fix %q issue in %s", check, evt.ConstantName)
}

func issueBody(evt domain.Event) string {
	desc := ""
	if evt.Issue != nil {
		desc = evt.Issue.Description
	}
	return strings.Join([]string{desc, evt.DetailsURL}, "\n\n")
}

func qualityTitle(evt domain.Event) string {
	if evt.Declined() {
		return fmt.Sprintf("Refactor %s from a %s on %s", evt.ConstantName, evt.PreviousRating, productName)
	}
	return fmt.Sprintf("%s improved from a %s to a %s on %s", evt.ConstantName, evt.PreviousRating, evt.Rating, productName)
}

func vulnerabilityTitle(evt domain.Event) string {
	switch n := len(evt.Vulnerabilities); n {
	case 0:
		return "New vulnerability found"
	case 1:
		v := evt.Vulnerabilities[0]
		return fmt.Sprintf("New %s issue found in %s", v.WarningType, v.Location)
	default:
		return fmt.Sprintf("%d new %s issues found", n, evt.Vulnerabilities[0].WarningType)
	}
}

// summarize renders a one-line, possibly HTML, description of evt.
func summarize(evt domain.Event) string {
	switch strings.ToLower(evt.Name) {
	case domain.EventTest:
		return "Test message from " + productName
	case domain.EventIssue:
		return issueTitle(evt) + " - " + evt.DetailsURL
	case domain.EventQuality:
		return qualityTitle(evt) + " - " + evt.DetailsURL
	case domain.EventVulnerability:
		return vulnerabilityTitle(evt) + " - " + evt.DetailsURL
	case domain.EventCoverage:
		if msg, err := renderCoverage(evt); err == nil {
			return msg
		}
	case domain.EventUnit:
		return "Test failure: " + evt.TestName
	}
	return fmt.Sprintf("%s event for %s", evt.Name, evt.RepoName)
}

// plainText strips markup from an HTML fragment.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
