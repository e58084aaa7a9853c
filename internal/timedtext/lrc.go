package timedtext

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

var (
	lrcTimeTag  = regexp.MustCompile(`\[(\d{2}):(\d{2})\.?(\d{2,3})?\]`)
	lrcMetaLine = regexp.MustCompile(`(?i)^\[([a-z]+):(.+)\]$`)
)

// LRCIndex holds lyric cues parsed from LRC text, sorted by start time.
// A lyric line has no defined end; the current line at time T is the one
// with the greatest start <= T.
type LRCIndex struct {
	cues     []Cue
	metadata map[string]string
}

// NewLRCIndex creates an empty lyric index
func NewLRCIndex() *LRCIndex {
	return &LRCIndex{metadata: make(map[string]string)}
}

// Parse rebuilds the index from LRC text. A line with several time tags
// yields one cue per tag sharing the line's text (the duplicated-chorus
// idiom). Lines of the form [key:value] are metadata, not cues.
func (x *LRCIndex) Parse(content string) {
	x.cues = nil
	x.metadata = make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tags := lrcTimeTag.FindAllStringSubmatch(line, -1)
		if len(tags) == 0 {
			if m := lrcMetaLine.FindStringSubmatch(line); m != nil {
				x.metadata[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			}
			continue
		}

		text := strings.TrimSpace(lrcTimeTag.ReplaceAllString(line, ""))
		for _, tag := range tags {
			minutes, _ := strconv.Atoi(tag[1])
			seconds, _ := strconv.Atoi(tag[2])
			millis := 0
			if tag[3] != "" {
				frac := tag[3]
				for len(frac) < 3 {
					frac += "0"
				}
				millis, _ = strconv.Atoi(frac)
			}
			start := float64(minutes)*60 + float64(seconds) + float64(millis)/1000
			x.cues = append(x.cues, Cue{Start: start, Text: text})
		}
	}

	sort.SliceStable(x.cues, func(i, j int) bool {
		return x.cues[i].Start < x.cues[j].Start
	})

	// Back-fill ends from the following cue's start
	for i := 0; i < len(x.cues)-1; i++ {
		x.cues[i].End = x.cues[i+1].Start
	}
}

// Cues returns the sorted cue list
func (x *LRCIndex) Cues() []Cue {
	cues := make([]Cue, len(x.cues))
	copy(cues, x.cues)
	return cues
}

// Metadata returns the [key:value] tags captured during parsing
func (x *LRCIndex) Metadata() map[string]string {
	meta := make(map[string]string, len(x.metadata))
	for k, v := range x.metadata {
		meta[k] = v
	}
	return meta
}

// CueAt returns the current lyric line at time t: the cue with the greatest
// start <= t, found by binary search
func (x *LRCIndex) CueAt(t float64) mo.Option[Cue] {
	i := x.CueIndexAt(t)
	if i == -1 {
		return mo.None[Cue]()
	}
	return mo.Some(x.cues[i])
}

// CueIndexAt returns the index of the current lyric line, -1 when t is
// before the first cue or the index is empty
func (x *LRCIndex) CueIndexAt(t float64) int {
	// First cue with start > t; the current line is the one before it
	i := sort.Search(len(x.cues), func(i int) bool {
		return x.cues[i].Start > t
	})
	return i - 1
}

// CuesInRange returns cues with start within [from, to]
func (x *LRCIndex) CuesInRange(from, to float64) []Cue {
	var cues []Cue
	for _, c := range x.cues {
		if c.Start >= from && c.Start <= to {
			cues = append(cues, c)
		}
	}
	return cues
}

// Search returns cues whose text contains the keyword, case-insensitive
func (x *LRCIndex) Search(keyword string) []Cue {
	keyword = strings.ToLower(keyword)
	var cues []Cue
	for _, c := range x.cues {
		if strings.Contains(strings.ToLower(c.Text), keyword) {
			cues = append(cues, c)
		}
	}
	return cues
}

// ExportLRC renders the index back to LRC text
func (x *LRCIndex) ExportLRC() string {
	var b strings.Builder
	for k, v := range x.metadata {
		fmt.Fprintf(&b, "[%s:%s]\n", k, v)
	}
	if len(x.metadata) > 0 {
		b.WriteString("\n")
	}
	for _, c := range x.cues {
		minutes := int(c.Start) / 60
		seconds := int(c.Start) % 60
		hundredths := int((c.Start - float64(int(c.Start))) * 100)
		fmt.Fprintf(&b, "[%02d:%02d.%02d]%s\n", minutes, seconds, hundredths, c.Text)
	}
	return b.String()
}

// Clear drops all cues and metadata
func (x *LRCIndex) Clear() {
	x.cues = nil
	x.metadata = make(map[string]string)
}
