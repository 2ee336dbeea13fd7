package player

import "context"

// Quality is one rendition of a stream.
type Quality struct {
	Label  string // "720p"
	Height int
	URL    string
}

// QualityFunc lists the renditions of streamURL, best first. It returns none
// for streams it does not know how to split.
type QualityFunc func(ctx context.Context, streamURL string) ([]Quality, error)

// PickQuality returns the index of the rendition to start with on a screen
// width pixels wide: 1080p from 1920, 720p from 1280, else 480p, else the
// lowest one listed. width <= 0 counts as 1920.
func PickQuality(qs []Quality, width int) int {
	if len(qs) == 0 {
		return 0
	}
	if width <= 0 {
		width = 1920
	}
	find := func(h int) int {
		for i, q := range qs {
			if q.Height == h {
				return i
			}
		}
		return -1
	}
	if width >= 1920 {
		if i := find(1080); i >= 0 {
			return i
		}
	}
	if width >= 1280 {
		if i := find(720); i >= 0 {
			return i
		}
	}
	if i := find(480); i >= 0 {
		return i
	}
	return len(qs) - 1
}
