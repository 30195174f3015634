// Package proposal extracts structured facts from a sales-proposal
// template: markdown sections, key/value project fields, AI-module records,
// and timeline milestones. The template grammar is forgiving: authors mix
// table rows, bold-key prose, and several heading styles, so extraction
// tries the strict form of each pattern first and degrades through the
// known variants.
package proposal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Canonical section headings of the proposal template.
const (
	SectionCover        = "1. COVER PAGE"
	SectionRequirement  = "2. PROJECT REQUIREMENT STATEMENT"
	SectionScope        = "3. SCOPE OF WORK"
	SectionArchitecture = "4. SYSTEM ARCHITECTURE"
	SectionRequirements = "5. SYSTEM REQUIREMENTS"
	SectionTimeline     = "6. IMPLEMENTATION PLAN (TIMELINE)"
	SectionModules      = "7. PROPOSED MODULES & FUNCTIONAL DESCRIPTION"
	SectionUI           = "8. USER INTERFACE & REPORTING"
)

// Proposal is the parsed template.
type Proposal struct {
	ProjectName string
	ClientName  string
	Sections    map[string]string
}

// Section returns a section body, or "" when the template lacks it.
func (p *Proposal) Section(name string) string {
	return p.Sections[name]
}

// Parse reads and parses a proposal template file. HTML input is converted
// to markdown first; everything else is treated as markdown.
func Parse(path string) (*Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("proposal: read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return nil, fmt.Errorf("proposal: convert html %s: %w", path, err)
		}
		data = []byte(md)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseMarkdown(stem, data)
}

var (
	titlePattern    = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	titleNoise      = regexp.MustCompile(`(?i)Technical\s+Proposal.*$`)
	sectionPattern  = regexp.MustCompile(`(?m)^##\s+(.+?)(?:\s*---)?\s*$`)
	leadingRule     = regexp.MustCompile(`(?m)^---\s*\n?`)
	ownerPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\*\*Project Owner:\*\*\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)\*\*Project Owner\*\*[:\s]+(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)\*\*Client Name:\*\*\s*(.+?)(?:\n|$)`),
	}
)

// ParseMarkdown parses proposal markdown. fallbackName seeds the project
// name when the document has no top-level heading (usually the file stem).
// A missing client name is a hard error: the deck cannot be personalised
// without it.
func ParseMarkdown(fallbackName string, content []byte) (*Proposal, error) {
	text := string(content)

	p := &Proposal{
		ProjectName: extractProjectName(text, fallbackName),
		Sections:    extractSections(text),
	}

	client, err := extractClientName(p.Section(SectionRequirement))
	if err != nil {
		return nil, err
	}
	p.ClientName = client

	return p, nil
}

func extractProjectName(text, fallback string) string {
	if m := titlePattern.FindStringSubmatch(text); m != nil {
		title := strings.TrimSpace(titleNoise.ReplaceAllString(m[1], ""))
		if title != "" {
			return title
		}
	}
	return fallback
}

// extractSections splits the document on ## headings. Leading separator
// rules and blank lines inside each body are dropped.
func extractSections(text string) map[string]string {
	sections := make(map[string]string)
	matches := sectionPattern.FindAllStringSubmatchIndex(text, -1)

	for i, m := range matches {
		name := strings.TrimSpace(text[m[2]:m[3]])
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[start:end])
		body = leadingRule.ReplaceAllString(body, "")
		body = strings.TrimLeft(body, "\n")
		sections[name] = body
	}
	return sections
}

func extractClientName(requirement string) (string, error) {
	for _, re := range ownerPatterns {
		if m := re.FindStringSubmatch(requirement); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
	}
	return "", fmt.Errorf("proposal: client name not found: expected **Project Owner:** or **Client Name:** in section %q", SectionRequirement)
}
