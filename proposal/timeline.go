package proposal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Milestone is one implementation-plan phase. Date is normalised to the
// "Tn = Tn-1 + duration" form whenever the phase body yields a duration.
type Milestone struct {
	Phase string
	Event string
	Date  string
	Notes []string
}

var (
	phaseInline   = regexp.MustCompile(`(?i)\*\*Phase\s+(T\d+):\s*([^*\n]+?)\*\*`)
	phaseColonIn  = regexp.MustCompile(`(?i)\*\*Phase\s+(T\d+):\*\*[ \t]*(.*)`)
	phaseColonOut = regexp.MustCompile(`(?i)\*\*Phase\s+(T\d+)\*\*:[ \t]*(.*)`)

	phaseNext     = regexp.MustCompile(`(?i)\*\*Phase\s+T\d+`)
	totalDuration = regexp.MustCompile(`(?i)\*\*Total Duration`)
	phaseBreak    = regexp.MustCompile(`\n\s*---\s*\n`)

	relativeDate = regexp.MustCompile(`(?i)\(?\s*T\d+\s*\+\s*(.+?)\s*\)?(?:\n|$)`)
	bareDuration = regexp.MustCompile(`(?i)(\d+\s*[-–]\s*\d+|\d+)\s*(weeks?|days?|months?)`)
)

// Milestones extracts implementation-plan milestones. The inline bold form
// (**Phase T0: Project Award**) wins; the two split-colon forms are
// fallbacks. Never errors: a template without milestones yields an empty
// timeline slide downstream.
func Milestones(content string) []Milestone {
	pattern := phaseInline
	matches := pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		pattern = phaseColonIn
		matches = pattern.FindAllStringSubmatchIndex(content, -1)
	}
	if len(matches) == 0 {
		pattern = phaseColonOut
		matches = pattern.FindAllStringSubmatchIndex(content, -1)
	}

	milestones := make([]Milestone, 0, len(matches))
	for _, m := range matches {
		phase := strings.TrimSpace(content[m[2]:m[3]])
		event := strings.TrimSpace(content[m[4]:m[5]])
		body := phaseBody(content[m[1]:])

		if event == "" {
			// Split-colon forms may carry the event on the next line.
			for _, line := range strings.Split(body, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					event = line
					break
				}
			}
		}
		event = strings.TrimSpace(boldMarker.ReplaceAllString(event, ""))

		milestones = append(milestones, Milestone{
			Phase: phase,
			Event: event,
			Date:  phaseDate(phase, event+"\n"+body),
			Notes: phaseNotes(body),
		})
	}
	return milestones
}

// phaseBody returns the text between this phase header and the next phase,
// the total-duration line, or a separator rule.
func phaseBody(rest string) string {
	end := len(rest)
	for _, re := range []*regexp.Regexp{phaseNext, totalDuration, phaseBreak} {
		if loc := re.FindStringIndex(rest); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}
	return rest[:end]
}

// phaseDate recovers the phase date in order of fidelity: the explicit
// "Tn = Tm + duration" equation, a relative "(Tm + duration)" mention, or a
// bare duration which is anchored to the previous phase. T0 has no previous
// phase, so a bare duration alone leaves its date empty.
func phaseDate(phase, text string) string {
	fullForm := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phase) + `\s*=\s*(T\d+\s*\+\s*.+?)(?:\n|$|\)|,|\.)`)
	if m := fullForm.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s = %s", phase, strings.TrimSpace(m[1]))
	}

	if m := relativeDate.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s = %s + %s", phase, previousPhase(phase), strings.TrimSpace(m[1]))
	}

	if m := bareDuration.FindString(text); m != "" && phase != "T0" {
		return fmt.Sprintf("%s = %s + %s", phase, previousPhase(phase), strings.TrimSpace(m))
	}
	return ""
}

func previousPhase(phase string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(phase, "T"))
	if err != nil || n <= 0 {
		return "T0"
	}
	return "T" + strconv.Itoa(n-1)
}

func phaseNotes(body string) []string {
	var notes []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") || strings.HasPrefix(line, "---") {
			continue
		}
		note := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		note = strings.TrimSpace(boldMarker.ReplaceAllString(note, ""))
		if note != "" {
			notes = append(notes, note)
		}
	}
	return notes
}
