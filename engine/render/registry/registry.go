package registry

import (
	"sync"

	"github.com/halcyon3d/halcyon-go/engine/render/device"
)

// registryImpl is the implementation of the Registry interface.
type registryImpl struct {
	mu *sync.Mutex

	textures     map[string]device.Texture
	framebuffers map[string]device.Framebuffer
}

// Registry is a name-keyed store for shared GPU resources. Producer commands
// publish textures and framebuffers under stable names; consumer commands look
// them up each frame. The registry owns every stored object: replacing or
// removing an entry releases the outgoing object, and Destroy releases
// everything at once.
type Registry interface {
	// Texture returns the texture stored under name, or nil when absent.
	//
	// Parameters:
	//   - name: the resource name
	//
	// Returns:
	//   - device.Texture: the stored texture, or nil
	Texture(name string) device.Texture

	// SetTexture stores a texture under name. If an entry already exists under
	// that name, the prior texture is released before being replaced. Callers
	// that need to keep the outgoing texture must RemoveTexture first.
	//
	// Parameters:
	//   - name: the resource name
	//   - texture: the texture to store
	SetTexture(name string, texture device.Texture)

	// RemoveTexture removes the entry under name without releasing it and
	// returns the removed texture, or nil when absent. Ownership transfers to
	// the caller.
	//
	// Parameters:
	//   - name: the resource name
	//
	// Returns:
	//   - device.Texture: the removed texture, or nil
	RemoveTexture(name string) device.Texture

	// Framebuffer returns the framebuffer stored under name, or nil when absent.
	//
	// Parameters:
	//   - name: the resource name
	//
	// Returns:
	//   - device.Framebuffer: the stored framebuffer, or nil
	Framebuffer(name string) device.Framebuffer

	// SetFramebuffer stores a framebuffer under name. If an entry already
	// exists under that name, the prior framebuffer is released before being
	// replaced.
	//
	// Parameters:
	//   - name: the resource name
	//   - framebuffer: the framebuffer to store
	SetFramebuffer(name string, framebuffer device.Framebuffer)

	// RemoveFramebuffer removes the entry under name without releasing it and
	// returns the removed framebuffer, or nil when absent. Ownership transfers
	// to the caller.
	//
	// Parameters:
	//   - name: the resource name
	//
	// Returns:
	//   - device.Framebuffer: the removed framebuffer, or nil
	RemoveFramebuffer(name string) device.Framebuffer

	// TextureNames returns the names of all stored textures, in no particular
	// order. Intended for diagnostics.
	//
	// Returns:
	//   - []string: the stored texture names
	TextureNames() []string

	// Destroy releases every stored texture and framebuffer and empties the
	// registry. The registry remains usable afterwards.
	Destroy()
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty resource registry.
//
// Returns:
//   - Registry: the new registry
func NewRegistry() Registry {
	return &registryImpl{
		mu:           &sync.Mutex{},
		textures:     make(map[string]device.Texture),
		framebuffers: make(map[string]device.Framebuffer),
	}
}

func (r *registryImpl) Texture(name string) device.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textures[name]
}

func (r *registryImpl) SetTexture(name string, texture device.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.textures[name]; ok && prior != texture {
		prior.Release()
	}
	r.textures[name] = texture
}

func (r *registryImpl) RemoveTexture(name string) device.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	texture, ok := r.textures[name]
	if !ok {
		return nil
	}
	delete(r.textures, name)
	return texture
}

func (r *registryImpl) Framebuffer(name string) device.Framebuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framebuffers[name]
}

func (r *registryImpl) SetFramebuffer(name string, framebuffer device.Framebuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.framebuffers[name]; ok && prior != framebuffer {
		prior.Release()
	}
	r.framebuffers[name] = framebuffer
}

func (r *registryImpl) RemoveFramebuffer(name string) device.Framebuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	framebuffer, ok := r.framebuffers[name]
	if !ok {
		return nil
	}
	delete(r.framebuffers, name)
	return framebuffer
}

func (r *registryImpl) TextureNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.textures))
	for name := range r.textures {
		names = append(names, name)
	}
	return names
}

func (r *registryImpl) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Framebuffers first so no released texture is still referenced by a live
	// framebuffer attachment.
	for name, framebuffer := range r.framebuffers {
		framebuffer.Release()
		delete(r.framebuffers, name)
	}
	for name, texture := range r.textures {
		texture.Release()
		delete(r.textures, name)
	}
}
