package proposal

import (
	"regexp"
	"strings"
)

// Module is one AI-module record from the proposed-modules section.
// ImageURL/VideoURL are opaque, untrusted strings kept only when they at
// least mention http; everything else is plain text.
type Module struct {
	Name              string
	Type              string
	Purpose           string
	AlertLogic        string
	Preconditions     string
	DetectionCriteria string
	DataRequirements  string
	ImageURL          string
	VideoURL          string
}

// ModuleGroup is a category bucket of modules, used to order module slides.
type ModuleGroup struct {
	Category string
	Modules  []Module
}

var (
	moduleHeading  = regexp.MustCompile(`(?im)^###\s+Module(?:\s+\d+)?\s*:\s*(.+?)\s*$`)
	moduleBold     = regexp.MustCompile(`(?i)\*\*Module\s+(?:\d+)?:\s*(.+?)\*\*`)
	modulePlain    = regexp.MustCompile(`(?im)^(?:Module|Module Name)[:\s]+(.+?)\s*$`)
	moduleField    = regexp.MustCompile(`^(?:•\s*)?\*\*([^:]+?)(?::\*\*|\*\*:)\s*(.*)$`)
	moduleTypeLine = regexp.MustCompile(`(?i)\*\*Module Type(?::\*\*|\*\*:)\s*(.+?)(?:\n|$)`)
	trailingRule   = regexp.MustCompile(`\s*---\s*$`)
)

// Modules extracts module records from the proposed-modules section. The
// ### heading form wins; bold and plain-text forms are fallbacks for older
// templates.
func Modules(content string) []Module {
	if mods := modulesByPattern(content, moduleHeading); len(mods) > 0 {
		return mods
	}
	if mods := modulesByPattern(content, moduleBold); len(mods) > 0 {
		return mods
	}

	var mods []Module
	for _, m := range modulePlain.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(boldMarker.ReplaceAllString(m[1], ""))
		if name != "" {
			mods = append(mods, Module{Name: name})
		}
	}
	return mods
}

func modulesByPattern(content string, pattern *regexp.Regexp) []Module {
	matches := pattern.FindAllStringSubmatchIndex(content, -1)
	mods := make([]Module, 0, len(matches))

	for i, m := range matches {
		name := strings.TrimSpace(content[m[2]:m[3]])
		start := m[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		mod := moduleFields(content[start:end])
		mod.Name = name
		mods = append(mods, mod)
	}
	return mods
}

// moduleFields accumulates field values line by line: a bold-key line opens
// a field, following lines extend it until the next key. This keeps empty
// fields empty instead of swallowing the next field's text.
func moduleFields(body string) Module {
	var mod Module

	if m := moduleTypeLine.FindStringSubmatch(body); m != nil {
		mod.Type = strings.TrimSpace(m[1])
	}

	var field string
	var value []string

	flush := func() {
		if field == "" {
			return
		}
		v := strings.Join(value, " ")
		v = strings.Join(strings.Fields(v), " ")
		v = strings.TrimSpace(boldMarker.ReplaceAllString(v, ""))
		v = strings.TrimSpace(trailingRule.ReplaceAllString(v, ""))
		assignField(&mod, field, v)
		field, value = "", nil
	}

	for _, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if m := moduleField.FindStringSubmatch(stripped); m != nil {
			flush()
			field = strings.TrimSpace(m[1])
			if v := strings.TrimSpace(m[2]); v != "" {
				value = append(value, v)
			}
			continue
		}
		if field != "" && stripped != "" {
			value = append(value, stripped)
		}
	}
	flush()

	return mod
}

func assignField(mod *Module, name, value string) {
	switch lower := strings.ToLower(name); {
	case strings.Contains(lower, "purpose"):
		mod.Purpose = value
	case strings.Contains(lower, "alert trigger logic"), strings.Contains(lower, "alert logic"):
		mod.AlertLogic = value
	case strings.Contains(lower, "preconditions"):
		mod.Preconditions = value
	case strings.Contains(lower, "detection criteria"):
		mod.DetectionCriteria = value
	case strings.Contains(lower, "image url"):
		if strings.Contains(strings.ToLower(value), "http") {
			mod.ImageURL = value
		}
	case strings.Contains(lower, "video url"):
		if strings.Contains(strings.ToLower(value), "http") {
			mod.VideoURL = value
		}
	case strings.Contains(lower, "data requirements"):
		mod.DataRequirements = value
	}
}

// categoryKeywords drives module grouping, in presentation order.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"PPE Detection", []string{"helmet", "vest", "glove", "boot", "ppe"}},
	{"Safety", []string{"safety", "unsafe", "danger"}},
	{"Operations", []string{"count", "queue", "process"}},
}

// GroupModules buckets modules by name keywords; unmatched modules land in
// "Other". Empty groups are omitted.
func GroupModules(mods []Module) []ModuleGroup {
	buckets := make(map[string][]Module)

	for _, mod := range mods {
		name := strings.ToLower(mod.Name)
		category := "Other"
		for _, ck := range categoryKeywords {
			for _, kw := range ck.keywords {
				if strings.Contains(name, kw) {
					category = ck.category
					break
				}
			}
			if category != "Other" {
				break
			}
		}
		buckets[category] = append(buckets[category], mod)
	}

	var groups []ModuleGroup
	for _, ck := range categoryKeywords {
		if mods := buckets[ck.category]; len(mods) > 0 {
			groups = append(groups, ModuleGroup{Category: ck.category, Modules: mods})
		}
	}
	if mods := buckets["Other"]; len(mods) > 0 {
		groups = append(groups, ModuleGroup{Category: "Other", Modules: mods})
	}
	return groups
}
