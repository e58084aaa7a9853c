package timedtext

import "testing"

const sampleSRT = `1
00:00:01,000 --> 00:00:04,000
Hello there

2
00:00:05,500 --> 00:00:08,000
Second subtitle
with two lines

3
00:00:10,000 --> 00:00:12,000
Third one
`

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello there

intro-cue
00:00:05.500 --> 00:00:08.000
Second subtitle
`

func TestParseSRT(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleSRT)

	cues := idx.Cues()
	if len(cues) != 3 {
		t.Fatalf("Expected 3 cues, got %d", len(cues))
	}
	if cues[0].Start != 1 || cues[0].End != 4 || cues[0].Text != "Hello there" {
		t.Errorf("Unexpected first cue: %+v", cues[0])
	}
	if cues[1].Start != 5.5 {
		t.Errorf("Second cue start = %g, want 5.5", cues[1].Start)
	}
	if cues[1].Text != "Second subtitle\nwith two lines" {
		t.Errorf("Expected multi-line text preserved, got %q", cues[1].Text)
	}
}

func TestParseVTT(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleVTT)

	cues := idx.Cues()
	if len(cues) != 2 {
		t.Fatalf("Expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != 1 || cues[0].End != 4 {
		t.Errorf("Unexpected first cue interval: %+v", cues[0])
	}
	// Cue identifier line before the timestamp is skipped
	if cues[1].Text != "Second subtitle" {
		t.Errorf("Second cue text = %q, want without identifier", cues[1].Text)
	}
}

func TestParseSkipsInvalidBlocks(t *testing.T) {
	content := `1
not a timestamp
Broken block

2
00:00:05,000 --> 00:00:08,000
Valid block

3
00:00:09,000 --> 00:00:10,000
`
	idx := NewSubtitleIndex()
	idx.ParseSRT(content)

	cues := idx.Cues()
	if len(cues) != 1 {
		t.Fatalf("Expected 1 valid cue, got %d", len(cues))
	}
	if cues[0].Text != "Valid block" {
		t.Errorf("Unexpected cue text %q", cues[0].Text)
	}
}

func TestSubtitleCueAt(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleSRT)

	tests := []struct {
		time     float64
		wantText string
		wantSome bool
	}{
		{0, "", false},
		{1, "Hello there", true},
		{2.5, "Hello there", true},
		{4, "Hello there", true},
		{4.5, "", false}, // gap between cues
		{6, "Second subtitle\nwith two lines", true},
		{11, "Third one", true},
		{13, "", false},
	}

	for _, tt := range tests {
		got := idx.CueAt(tt.time)
		if got.IsPresent() != tt.wantSome {
			t.Errorf("CueAt(%g) present = %v, want %v", tt.time, got.IsPresent(), tt.wantSome)
			continue
		}
		if tt.wantSome {
			if cue := got.MustGet(); cue.Text != tt.wantText {
				t.Errorf("CueAt(%g) = %q, want %q", tt.time, cue.Text, tt.wantText)
			}
		}
	}
}

func TestSubtitleCuesInRange(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleSRT)

	// Overlap query: the first cue ends at 4, the second starts at 5.5
	got := idx.CuesInRange(3, 6)
	if len(got) != 2 {
		t.Errorf("CuesInRange(3, 6) returned %d cues, want 2", len(got))
	}

	if got := idx.CuesInRange(20, 30); len(got) != 0 {
		t.Errorf("CuesInRange past the end returned %d cues, want 0", len(got))
	}
}

func TestSubtitleSearch(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleSRT)

	found := idx.Search("hello")
	if len(found) != 1 || found[0].Start != 1 {
		t.Errorf("Search(hello) = %v, want the first cue", found)
	}
}

func TestSubtitleExportRoundTrip(t *testing.T) {
	idx := NewSubtitleIndex()
	idx.Parse(sampleSRT)

	reparsed := NewSubtitleIndex()
	reparsed.ParseSRT(idx.ExportSRT())

	cues := reparsed.Cues()
	if len(cues) != 3 {
		t.Fatalf("Expected 3 cues after round trip, got %d", len(cues))
	}
	if cues[1].Start != 5.5 || cues[1].End != 8 {
		t.Errorf("Round trip lost timing: %+v", cues[1])
	}
}

func TestSubtitleMixedSeparators(t *testing.T) {
	// A VTT-style dot in otherwise SRT content still parses
	idx := NewSubtitleIndex()
	idx.ParseSRT("1\n00:00:01.500 --> 00:00:03.000\nDot separators\n")

	cues := idx.Cues()
	if len(cues) != 1 || cues[0].Start != 1.5 {
		t.Errorf("Expected dot-separated timestamps accepted, got %v", cues)
	}
}
