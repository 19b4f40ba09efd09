package logview

// BottomThreshold is how close to the end, in scroll units, still counts
// as "at the bottom" for pinning purposes.
const BottomThreshold = 50

// Autoscroll tracks whether the view is pinned to the newest records.
// It starts pinned; scrolling away unpins, scrolling back to within the
// threshold re-pins.
type Autoscroll struct {
	pinned bool
}

// NewAutoscroll returns a pinned controller.
func NewAutoscroll() Autoscroll {
	return Autoscroll{pinned: true}
}

// Observe updates the pin from the current scroll geometry.
func (a *Autoscroll) Observe(scrollTop, scrollHeight, clientHeight int) {
	a.pinned = scrollHeight-scrollTop-clientHeight < BottomThreshold
}

// JumpToLatest re-pins the view.
func (a *Autoscroll) JumpToLatest() {
	a.pinned = true
}

// Pinned reports whether new records should keep the view at the latest
// entry.
func (a Autoscroll) Pinned() bool { return a.pinned }
