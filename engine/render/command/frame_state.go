package command

import (
	"fmt"
	"sync"
)

// FrameState is the frame-scoped slot table for cross-pass data handoff.
// Tightly coupled pass pairs (light culling feeding forward shading) publish
// typed values into named slots instead of going through the resource
// registry. Slots are single-writer-per-frame: a second publish to the same
// slot in the same frame panics, since two writers racing for one slot is a
// structural pipeline mis-wiring. Published values are only visible for the
// frame they were published in.
type FrameState struct {
	mu sync.Mutex

	frameIndex uint64
	slots      map[string]frameSlot
}

type frameSlot struct {
	value any
	frame uint64
}

// NewFrameState creates an empty slot table.
//
// Returns:
//   - *FrameState: the new frame state
func NewFrameState() *FrameState {
	return &FrameState{
		slots: make(map[string]frameSlot),
	}
}

// BeginFrame advances the table to a new frame. Values published in earlier
// frames become invisible; their slots may be republished.
//
// Parameters:
//   - frameIndex: the new frame's index
func (f *FrameState) BeginFrame(frameIndex uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frameIndex = frameIndex
}

// Publish stores value into the named slot for the current frame. Publishing
// the same slot twice within one frame panics.
//
// Parameters:
//   - slot: the slot name
//   - value: the value to publish
func (f *FrameState) Publish(slot string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.slots[slot]; ok && existing.frame == f.frameIndex {
		panic(fmt.Sprintf("frame slot %q published twice in frame %d", slot, f.frameIndex))
	}
	f.slots[slot] = frameSlot{value: value, frame: f.frameIndex}
}

// Value returns the value published into the named slot this frame.
//
// Parameters:
//   - slot: the slot name
//
// Returns:
//   - any: the published value, or nil
//   - bool: true when the slot was published this frame
func (f *FrameState) Value(slot string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.slots[slot]
	if !ok || entry.frame != f.frameIndex {
		return nil, false
	}
	return entry.value, true
}

// Clear drops all slots regardless of frame. Used on surface teardown.
func (f *FrameState) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = make(map[string]frameSlot)
}
