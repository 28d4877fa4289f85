package downloader

import (
	"regexp"
	"strconv"
)

// ProgressExtractor turns raw subprocess output into progress percentages.
// Kept behind an interface because the parsing is coupled to the extraction
// tool's free-text output format and needs to be swappable and testable
// against captured samples.
type ProgressExtractor interface {
	// Extract returns the most recent percentage found in the chunk, if any.
	Extract(chunk string) (int, bool)
}

var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// PercentExtractor matches yt-dlp's "[download]  45.2% of ..." lines, or any
// other line carrying a float followed by a percent sign. Progress reaching
// 100 is not terminal: the merge/post-processing phase may still follow, and
// a later chunk may legitimately reset to a lower value for the next phase.
type PercentExtractor struct{}

func (PercentExtractor) Extract(chunk string) (int, bool) {
	matches := percentRe.FindAllStringSubmatch(chunk, -1)
	if len(matches) == 0 {
		return 0, false
	}

	raw := matches[len(matches)-1][1]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	p := int(f)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p, true
}
