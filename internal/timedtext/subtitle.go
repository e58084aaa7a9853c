package timedtext

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

// Accepts both SRT comma and VTT dot millisecond separators
var subtitleTimeLine = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[.,](\d{3})`)

var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// SubtitleIndex holds interval cues parsed from SRT or WebVTT text, sorted
// by start time
type SubtitleIndex struct {
	cues []Cue
}

// NewSubtitleIndex creates an empty subtitle index
func NewSubtitleIndex() *SubtitleIndex {
	return &SubtitleIndex{}
}

// Parse rebuilds the index from subtitle text, auto-detecting WebVTT by its
// header. Blocks without a valid timestamp line are skipped, never fatal.
func (x *SubtitleIndex) Parse(content string) {
	if strings.Contains(content, "WEBVTT") {
		x.ParseVTT(content)
	} else {
		x.ParseSRT(content)
	}
}

// ParseSRT rebuilds the index from SRT text: numbered blocks separated by
// blank lines, each with an "HH:MM:SS,mmm --> HH:MM:SS,mmm" line followed
// by text lines
func (x *SubtitleIndex) ParseSRT(content string) {
	x.cues = nil
	for _, block := range blockSeparator.Split(strings.TrimSpace(content), -1) {
		x.parseBlock(block)
	}
	x.sortCues()
}

// ParseVTT rebuilds the index from WebVTT text. The WEBVTT header and
// optional cue identifiers are skipped.
func (x *SubtitleIndex) ParseVTT(content string) {
	x.cues = nil

	lines := strings.Split(content, "\n")
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "WEBVTT") {
			start = i + 1
			break
		}
	}

	body := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	for _, block := range blockSeparator.Split(body, -1) {
		x.parseBlock(block)
	}
	x.sortCues()
}

// parseBlock extracts one cue from a block. The timestamp line may be
// preceded by a sequence number or cue identifier; everything after it is
// the cue text.
func (x *SubtitleIndex) parseBlock(block string) {
	lines := strings.Split(block, "\n")

	timeLineIdx := -1
	var m []string
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			if m = subtitleTimeLine.FindStringSubmatch(line); m != nil {
				timeLineIdx = i
			}
			break
		}
	}
	if timeLineIdx == -1 || timeLineIdx+1 >= len(lines) {
		return
	}

	start := parseTimestamp(m[1], m[2], m[3], m[4])
	end := parseTimestamp(m[5], m[6], m[7], m[8])
	text := strings.TrimRight(strings.Join(lines[timeLineIdx+1:], "\n"), "\n")
	if text == "" {
		return
	}

	x.cues = append(x.cues, Cue{Start: start, End: end, Text: text})
}

// Cues returns the sorted cue list
func (x *SubtitleIndex) Cues() []Cue {
	cues := make([]Cue, len(x.cues))
	copy(cues, x.cues)
	return cues
}

// CueAt returns the cue whose [start, end] interval contains t. Subtitle
// cues are few and rarely overlap, so a linear scan is fine.
func (x *SubtitleIndex) CueAt(t float64) mo.Option[Cue] {
	for _, c := range x.cues {
		if t >= c.Start && t <= c.End {
			return mo.Some(c)
		}
	}
	return mo.None[Cue]()
}

// CuesInRange returns cues overlapping [from, to]
func (x *SubtitleIndex) CuesInRange(from, to float64) []Cue {
	var cues []Cue
	for _, c := range x.cues {
		if c.Start <= to && c.End >= from {
			cues = append(cues, c)
		}
	}
	return cues
}

// Search returns cues whose text contains the keyword, case-insensitive
func (x *SubtitleIndex) Search(keyword string) []Cue {
	keyword = strings.ToLower(keyword)
	var cues []Cue
	for _, c := range x.cues {
		if strings.Contains(strings.ToLower(c.Text), keyword) {
			cues = append(cues, c)
		}
	}
	return cues
}

// ExportSRT renders the index back to SRT text
func (x *SubtitleIndex) ExportSRT() string {
	var b strings.Builder
	for i, c := range x.cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1,
			formatTimestamp(c.Start), formatTimestamp(c.End), c.Text)
	}
	return b.String()
}

// Clear drops all cues
func (x *SubtitleIndex) Clear() {
	x.cues = nil
}

func (x *SubtitleIndex) sortCues() {
	sort.SliceStable(x.cues, func(i, j int) bool {
		return x.cues[i].Start < x.cues[j].Start
	})
}

func parseTimestamp(hours, minutes, seconds, millis string) float64 {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}

func formatTimestamp(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
