package proposal

import (
	"regexp"
	"strings"
)

// KV is one extracted key/value pair. Order of appearance matters for slide
// layout, so pairs stay in a slice rather than a map.
type KV struct {
	Key   string
	Value string
}

// Bullet is one line of slide content with its nesting level (0-2).
type Bullet struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Subsection is a ### block within a section.
type Subsection struct {
	Name    string
	Content string
}

var (
	tableRow       = regexp.MustCompile(`\|\s*\*\*(.+?)\*\*\s*\|\s*(.+?)\s*\|`)
	boldKeyInner   = regexp.MustCompile(`(?m)\*\*([^:]+?):\*\*\s*`)
	boldKeyOuter   = regexp.MustCompile(`(?m)\*\*([^:]+?)\*\*:\s*`)
	sourceNote     = regexp.MustCompile(`(?is)\n?\s*\*\*Source[:\s]*.*$`)
	boldMarker     = regexp.MustCompile(`\*\*`)
	numberedItem   = regexp.MustCompile(`(?m)^\d+\.\s+`)
	separatorLine  = regexp.MustCompile(`\n\s*---\s*(\n|$)`)
	subsectionHead = regexp.MustCompile(`(?m)^###\s+(.+?)\s*$`)
	bulletMarker   = regexp.MustCompile(`^\s*[-*•]\s*`)
)

// KeyValues extracts key/value pairs from a section. Table rows
// (| **Key** | Value |) win; otherwise bold-key prose is scanned, with the
// colon-inside-bold form preferred over colon-outside.
func KeyValues(content string) []KV {
	var pairs []KV

	for _, m := range tableRow.FindAllStringSubmatch(content, -1) {
		value := sourceNote.ReplaceAllString(m[2], "")
		value = strings.TrimSpace(boldMarker.ReplaceAllString(value, ""))
		pairs = append(pairs, KV{Key: strings.TrimSpace(m[1]), Value: value})
	}
	if len(pairs) > 0 {
		return pairs
	}

	markers := boldKeyInner.FindAllStringSubmatchIndex(content, -1)
	if len(markers) == 0 {
		markers = boldKeyOuter.FindAllStringSubmatchIndex(content, -1)
	}

	for i, m := range markers {
		key := strings.TrimSpace(content[m[2]:m[3]])
		start := m[1]
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		value := content[start:end]
		// Values stop at a horizontal rule: rules separate template
		// blocks, not field content.
		if sep := separatorLine.FindStringIndex(value); sep != nil {
			value = value[:sep[0]]
		}
		value = strings.TrimSpace(value)

		if numberedItem.MatchString(value) {
			// List-valued field (AI Modules): keep one entry per line.
			var lines []string
			for _, l := range strings.Split(value, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, l)
				}
			}
			value = strings.Join(lines, "\n")
		} else {
			value = strings.Join(strings.Fields(value), " ")
		}

		value = sourceNote.ReplaceAllString(value, "")
		value = strings.TrimSpace(boldMarker.ReplaceAllString(value, ""))
		if value != "" {
			pairs = append(pairs, KV{Key: key, Value: value})
		}
	}

	return pairs
}

// ScopeBullets collects the bullet items under the responsibilities header
// matching keyword ("viAct", "Client"). Headers come as ### lines, bold
// lines, or plain "Keyword Responsibilities:" text.
func ScopeBullets(content, keyword string) []string {
	var items []string
	inSection := false
	kw := strings.ToLower(keyword)

	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		lower := strings.ToLower(stripped)

		isHeader := strings.Contains(lower, kw) &&
			(strings.HasPrefix(stripped, "###") ||
				strings.HasPrefix(stripped, "**") ||
				(strings.Contains(stripped, ":") && !strings.HasPrefix(stripped, "-")))

		switch {
		case isHeader:
			inSection = true
		case inSection:
			// Another party's header ends the block.
			if strings.HasPrefix(stripped, "###") ||
				(strings.HasPrefix(stripped, "**") && strings.Contains(stripped, ":") && !strings.Contains(lower, kw)) {
				return items
			}
			if strings.HasPrefix(stripped, "---") {
				continue
			}
			if bulletMarker.MatchString(stripped) && stripped != "" {
				item := bulletMarker.ReplaceAllString(line, "")
				item = strings.TrimSpace(boldMarker.ReplaceAllString(item, ""))
				if item != "" && item != "---" && strings.Trim(item, "-") != "" {
					items = append(items, item)
				}
			}
		}
	}
	return items
}

// Subsections splits a section body on ### headings, in order.
func Subsections(content string) []Subsection {
	matches := subsectionHead.FindAllStringSubmatchIndex(content, -1)
	subs := make([]Subsection, 0, len(matches))

	for i, m := range matches {
		name := strings.TrimSpace(content[m[2]:m[3]])
		start := m[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		subs = append(subs, Subsection{
			Name:    name,
			Content: strings.TrimSpace(content[start:end]),
		})
	}
	return subs
}

// FormatBullets turns free markdown lines into levelled slide bullets.
// Table rows are dropped; indentation depth maps to levels 0-2.
func FormatBullets(content string) []Bullet {
	var bullets []Bullet

	for _, raw := range strings.Split(content, "\n") {
		line := raw
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "|") {
			continue
		}

		level := 0
		switch {
		case strings.HasPrefix(line, "    -") || strings.HasPrefix(line, "    *"):
			level = 2
		case strings.HasPrefix(line, "  -") || strings.HasPrefix(line, "  *"):
			level = 1
		}
		text := bulletMarker.ReplaceAllString(stripped, "")

		text = boldMarker.ReplaceAllString(text, "")
		text = sourceNote.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
		if text != "" && strings.Trim(text, "-") != "" {
			bullets = append(bullets, Bullet{Level: level, Text: text})
		}
	}
	return bullets
}
