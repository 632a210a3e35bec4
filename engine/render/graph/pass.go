// Package graph carries the declarative render-pass metadata commands emit
// each frame for the external render-graph scheduler. The metadata must mirror
// exactly what a command's Execute touches that frame; the scheduler derives
// barrier placement and load/store decisions from it.
package graph

// LoadOp declares what happens to an attachment's contents at pass start.
type LoadOp int

const (
	// LoadOpLoad preserves the attachment's prior contents.
	LoadOpLoad LoadOp = iota

	// LoadOpClear clears the attachment at pass start.
	LoadOpClear

	// LoadOpDontCare leaves the initial contents undefined.
	LoadOpDontCare
)

// StoreOp declares what happens to an attachment's contents at pass end.
type StoreOp int

const (
	// StoreOpStore writes results back to the attachment.
	StoreOpStore StoreOp = iota

	// StoreOpDontCare discards the pass's writes.
	StoreOpDontCare
)

// AttachmentUse declares one color or depth attachment of a pass, by the
// registry name of the attached texture.
type AttachmentUse struct {
	// Name is the registry name of the attached texture.
	Name string
	// Load declares the attachment load operation.
	Load LoadOp
	// Store declares the attachment store operation.
	Store StoreOp
}

// Pass is one command's declared resource usage for the current frame.
// Sampled entries are read via texture fetch, ReadWrite entries via storage
// image or storage buffer access.
type Pass struct {
	// Name identifies the pass in scheduler diagnostics.
	Name string
	// Sampled lists registry names read through samplers.
	Sampled []string
	// ReadWrite lists registry names accessed as storage images or buffers.
	ReadWrite []string
	// Color lists the color attachments in attachment-point order.
	Color []AttachmentUse
	// Depth is the depth attachment, nil when the pass has none.
	Depth *AttachmentUse
}

// Samples reports whether the pass declares a sampled read of name.
//
// Parameters:
//   - name: the registry name to look for
//
// Returns:
//   - bool: true when name is declared as sampled
func (p Pass) Samples(name string) bool {
	for _, s := range p.Sampled {
		if s == name {
			return true
		}
	}
	return false
}

// Writes reports whether the pass declares a write of name, either as a
// read-write resource or as a stored attachment.
//
// Parameters:
//   - name: the registry name to look for
//
// Returns:
//   - bool: true when name is declared as written
func (p Pass) Writes(name string) bool {
	for _, rw := range p.ReadWrite {
		if rw == name {
			return true
		}
	}
	for _, c := range p.Color {
		if c.Name == name && c.Store == StoreOpStore {
			return true
		}
	}
	if p.Depth != nil && p.Depth.Name == name && p.Depth.Store == StoreOpStore {
		return true
	}
	return false
}
