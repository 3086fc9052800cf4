// Package window computes which slice of the feed must be mounted for a
// given scroll position, plus the trigger predicates the orchestrator
// evaluates on scroll events. Everything here is a pure function of its
// inputs; recomputation is idempotent.
package window

// Range is a half-open [Start, End) index interval.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

// Visible returns the index range to mount for the current scroll state.
// Overscan rows are mounted on both sides to hide mount latency while
// scrolling.
func Visible(scrollOffset, viewportSize, itemExtent, itemCount, overscan int) Range {
	if itemExtent <= 0 || itemCount <= 0 {
		return Range{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	start := scrollOffset/itemExtent - overscan
	if start < 0 {
		start = 0
	}
	end := (scrollOffset+viewportSize)/itemExtent + 1 + overscan
	if end > itemCount {
		end = itemCount
	}
	if start > end {
		start = end
	}
	return Range{Start: start, End: end}
}

// ShouldPrefetch reports whether the next page fetch should start. This is
// a threshold policy on remaining items, not a hard scroll-boundary check,
// so the fetch latency stays hidden behind the remaining cards.
func ShouldPrefetch(itemCount, currentIndex, preloadDistance int, hasMore, fetching bool) bool {
	if !hasMore || fetching {
		return false
	}
	return itemCount-currentIndex <= preloadDistance
}

// PullThresholdReached reports whether an overscroll gesture at the top of
// the feed has travelled far enough to count as pull-to-refresh.
func PullThresholdReached(atTop bool, overscroll, threshold int) bool {
	return atTop && threshold > 0 && overscroll >= threshold
}
