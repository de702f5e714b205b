// Package questionbank manages the MCQ bank: pasted-text import, bulk
// save, listing, editing and archive-aware deletion.
package questionbank

import (
	"regexp"
	"strings"
)

const (
	maxChoices      = 6
	minChoices      = 2
	expectedChoices = 4
	answerLetters   = "ABCD"
)

var (
	headerRe = regexp.MustCompile(`(?i)^(?:Q\s*)?\d+\s*[).:\-]\s+`)
	answerRe = regexp.MustCompile(`(?i)^(?:ans|answer)\s*[:\-]\s*([A-D])\s*$`)
	inlineRe = regexp.MustCompile(`(?i)\(A\).*\(B\).*\(C\).*\(D\)`)
	labelRe  = regexp.MustCompile(`(?i)\(\s*[A-D]\s*\)\s*`)

	choiceRes = []*regexp.Regexp{
		regexp.MustCompile(`^\(?[A-Da-d]\)?[.)\-:]\s*(.+)$`),
		regexp.MustCompile(`^[•\-]\s*\(?[A-Da-d]\)?[.)\-:]\s*(.+)$`),
	}
)

// Draft is an unsaved question recovered from pasted text.
type Draft struct {
	Question        string   `json:"question"`
	Choices         []string `json:"choices"`
	NeedsReview     bool     `json:"needs_review"`
	DetectedCorrect *int     `json:"detected_correct,omitempty"`
}

type draftBuilder struct {
	stem    []string
	choices []string
	correct *int
}

func (b *draftBuilder) empty() bool {
	return len(b.stem) == 0 && len(b.choices) == 0
}

func (b *draftBuilder) flush(out []Draft) []Draft {
	if b.empty() {
		return out
	}
	text := strings.TrimSpace(strings.Join(b.stem, " "))
	n := len(b.choices)
	choices := b.choices
	if n > maxChoices {
		choices = choices[:maxChoices]
	}
	out = append(out, Draft{
		Question:        text,
		Choices:         choices,
		NeedsReview:     text == "" || n < minChoices || n > maxChoices || n != expectedChoices,
		DetectedCorrect: b.correct,
	})
	*b = draftBuilder{}
	return out
}

// addInline splits "stem (A) .. (B) .. (C) .. (D) .." into the stem and
// four choices. It reports false when line is not in that shape.
func (b *draftBuilder) addInline(line string) bool {
	if !inlineRe.MatchString(line) {
		return false
	}
	var parts []string
	for _, p := range labelRe.Split(line, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 5 {
		return false
	}
	if len(b.stem) == 0 {
		b.stem = append(b.stem, parts[0])
	}
	b.choices = append(b.choices, parts[1:5]...)
	return true
}

func normalizeLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

func matchChoice(line string) (string, bool) {
	for _, re := range choiceRes {
		if m := re.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// Parse turns pasted text into drafts in one pass. It never fails:
// input it cannot make sense of comes back as drafts flagged for review.
func Parse(raw string) []Draft {
	var (
		out []Draft
		cur draftBuilder
	)
	for _, rawLine := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line := normalizeLine(rawLine)
		if line == "" {
			continue
		}

		// a header line always starts a stem, even when the text itself
		// looks like a choice ("D-dimer", "B-cells")
		if loc := headerRe.FindStringIndex(line); loc != nil {
			out = cur.flush(out)
			line = line[loc[1]:]
			if !cur.addInline(line) {
				cur.stem = append(cur.stem, line)
			}
			continue
		}

		if m := answerRe.FindStringSubmatch(line); m != nil {
			idx := strings.Index(answerLetters, strings.ToUpper(m[1]))
			cur.correct = &idx
			continue
		}

		if cur.addInline(line) {
			continue
		}

		if choice, ok := matchChoice(line); ok {
			cur.choices = append(cur.choices, choice)
			continue
		}

		// continuation of the stem, or of the last choice once choices began
		if len(cur.choices) == 0 {
			cur.stem = append(cur.stem, line)
		} else {
			last := len(cur.choices) - 1
			cur.choices[last] = strings.TrimSpace(cur.choices[last] + " " + line)
		}
	}
	out = cur.flush(out)

	drafts := out[:0]
	for _, d := range out {
		if d.Question != "" || len(d.Choices) > 0 {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// ReviewCount is the number of drafts flagged for a closer look.
func ReviewCount(drafts []Draft) int {
	n := 0
	for _, d := range drafts {
		if d.NeedsReview {
			n++
		}
	}
	return n
}
