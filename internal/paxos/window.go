package paxos

// DecisionWindow owns every SlotRole this replica knows about: the slots it
// has itself opened as a proposer, and any slot an incoming Accept or
// Resolution has named (Accepted and Catchup only look up slots that
// already exist). There is no fixed
// capacity; the window simply grows as slots are touched and the caller is
// responsible for deciding when a low prefix can be compacted away.
type DecisionWindow struct {
	nextSlot Slot
	slots    map[Slot]*SlotRole
}

// NewDecisionWindow returns an empty window with no slots opened yet.
func NewDecisionWindow() *DecisionWindow {
	return &DecisionWindow{slots: map[Slot]*SlotRole{}}
}

// NextSlot allocates and opens the next never-before-used slot, for a fresh
// local proposer attempt.
func (w *DecisionWindow) NextSlot() (Slot, *SlotRole) {
	s := w.nextSlot
	w.nextSlot++
	role := newOpenSlot()
	w.slots[s] = role
	return s, role
}

// Slot returns the SlotRole at s, lazily creating an empty placeholder if
// this window has never touched it before — e.g. an Accept or Resolution
// for a slot this replica hasn't locally opened as a proposer.
func (w *DecisionWindow) Slot(s Slot) *SlotRole {
	role, ok := w.slots[s]
	if !ok {
		role = &SlotRole{status: slotEmpty}
		w.slots[s] = role
	}
	if s >= w.nextSlot {
		w.nextSlot = s + 1
	}
	return role
}

// Peek returns the SlotRole at s without creating it, and whether it exists.
func (w *DecisionWindow) Peek(s Slot) (*SlotRole, bool) {
	role, ok := w.slots[s]
	return role, ok
}

// Decisions returns a view over this window's resolved slots.
func (w *DecisionWindow) Decisions() *DecisionSet {
	return &DecisionSet{window: w}
}

// HighestResolved returns the highest slot this window has seen resolved,
// and whether anything has resolved at all. A Catchup reply reports this —
// never "current slot minus one" — so a peer that has fallen behind always
// learns the most it safely can.
func (w *DecisionWindow) HighestResolved() (Slot, bool) {
	var highest Slot
	found := false
	for slot, role := range w.slots {
		if role.IsResolved() && (!found || slot > highest) {
			highest = slot
			found = true
		}
	}
	return highest, found
}

// LowestUnresolved returns the lowest slot below ceiling this window does
// not yet consider resolved (because it's missing entirely, or open but
// undecided). Used by the gap-filling liveness check to find a hole to
// unblock.
func (w *DecisionWindow) LowestUnresolved(ceiling Slot) (Slot, bool) {
	for s := Slot(0); s < ceiling; s++ {
		role, ok := w.slots[s]
		if !ok || !role.IsResolved() {
			return s, true
		}
	}
	return 0, false
}

// DecisionSet is a read view over a DecisionWindow's resolved slots.
type DecisionSet struct {
	window *DecisionWindow
}

// Range returns the contiguous run of resolved (slot, value) pairs starting
// at from, stopping at the first slot that is unknown or not yet resolved.
// A slot resolving out of order (say slot 3, while 0 and 1 are resolved and
// 2 is not) stays invisible until the hole at 2 closes — at which point
// Range surfaces the whole newly-contiguous run in one call.
func (d *DecisionSet) Range(from Slot) []SlotValue {
	var out []SlotValue
	for s := from; ; s++ {
		role, ok := d.window.slots[s]
		if !ok || !role.IsResolved() {
			break
		}
		value, _ := role.ResolvedValue()
		out = append(out, SlotValue{Slot: s, Value: value})
	}
	return out
}
