package order

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"voice-order-service/internal/service/language"
)

const (
	BengaliHeading     = "বাংলা অর্ডার"
	EnglishHeading     = "Order"
	TranslationHeading = "English Translation"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"

	bengaliDateLabel = "তারিখ"
	bengaliTimeLabel = "সময়"
)

var (
	lineDelimiters = regexp.MustCompile(`[।.!?]+`)

	headingLine    = regexp.MustCompile(`(?m)^\*\*[^*\n]+\*\*[ \t]*$`)
	numberedPrefix = regexp.MustCompile(`(?m)^\d+\.[ \t]+`)
	footerLine     = regexp.MustCompile(`(?m)^(?:Date|Time|` + bengaliDateLabel + `|` + bengaliTimeLabel + `):.*$`)
	blankLines     = regexp.MustCompile(`\n{2,}`)
)

// Format renders o as category blocks followed by a date/time footer:
//
//	S1:
//
//	- 8x10: 10 kg
//
//	Date: 2024-05-01
//	Time: 10:30:00
func Format(o StructuredOrder) string {
	var sb strings.Builder
	for _, c := range o.Categories {
		if len(c.Items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s:\n\n", c.Name)
		for _, it := range c.Items {
			fmt.Fprintf(&sb, "- %s: %s\n", it.Dimension, it.Quantity)
		}
		sb.WriteString("\n")
	}
	writeFooter(&sb, language.English, o.GeneratedAt)
	return sb.String()
}

// FormatLines renders free text as a numbered list, one line per sentence,
// under a bold heading. Footer labels follow tag.
func FormatLines(heading, text string, tag language.Tag, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n", heading)
	n := 0
	for _, line := range lineDelimiters.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. %s\n", n, line)
	}
	sb.WriteString("\n")
	writeFooter(&sb, tag, now)
	return sb.String()
}

// Render formats text as an order when anything can be extracted, and as
// numbered lines otherwise.
func (e *Extractor) Render(text string) string {
	return RenderOrder(e.Extract(text), text)
}

// RenderOrder is Render for an order already extracted from text.
func RenderOrder(o StructuredOrder, text string) string {
	if !o.Empty() {
		return Format(o)
	}
	tag := language.Detect(text)
	heading := EnglishHeading
	if tag == language.Bengali {
		heading = BengaliHeading
	}
	return FormatLines(heading, text, tag, o.GeneratedAt)
}

func writeFooter(sb *strings.Builder, tag language.Tag, t time.Time) {
	dateLabel, timeLabel := "Date", "Time"
	if tag == language.Bengali {
		dateLabel, timeLabel = bengaliDateLabel, bengaliTimeLabel
	}
	fmt.Fprintf(sb, "%s: %s\n%s: %s", dateLabel, t.Format(dateLayout), timeLabel, t.Format(timeLayout))
}

// StripFormatting removes what FormatLines adds (heading, line numbers and
// footer) so the remaining text can be sent to a translator.
func StripFormatting(text string) string {
	s := headingLine.ReplaceAllString(text, "")
	s = numberedPrefix.ReplaceAllString(s, "")
	s = footerLine.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
