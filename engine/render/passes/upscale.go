package passes

import (
	"time"

	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// upscaleResources is the per-instance GPU resource record for the upscale
// pass.
type upscaleResources struct {
	dirty bool

	lastWidth, lastHeight int

	color device.Texture
	fbo   device.Framebuffer
}

// UpscaleCommand lifts the internal-resolution image to the output
// resolution. When the backend advertises a vendor upscaling path it is used;
// otherwise, or when the vendor dispatch fails, the pass falls back to a
// standard blit and logs the vendor error once.
type UpscaleCommand struct {
	sourceName string
	forceBlit  bool
	resources  *state.Store[command.Instance, *upscaleResources]
	warner     *command.WarnThrottle
}

var _ command.Command = &UpscaleCommand{}

// UpscaleOption configures an UpscaleCommand.
type UpscaleOption func(u *UpscaleCommand)

// WithUpscaleSource overrides the registry name of the texture to upscale.
// Defaults to the geometry pass's SceneColor.
//
// Parameters:
//   - name: the source texture's registry name
//
// Returns:
//   - UpscaleOption: option function to apply
func WithUpscaleSource(name string) UpscaleOption {
	return func(u *UpscaleCommand) {
		u.sourceName = name
	}
}

// WithForceBlit disables the vendor upscaling path even when the backend
// advertises it.
//
// Parameters:
//   - force: true to always use the standard blit
//
// Returns:
//   - UpscaleOption: option function to apply
func WithForceBlit(force bool) UpscaleOption {
	return func(u *UpscaleCommand) {
		u.forceBlit = force
	}
}

// NewUpscale creates the upscale pass command.
//
// Parameters:
//   - options: variadic UpscaleOption functions
//
// Returns:
//   - *UpscaleCommand: the new command
func NewUpscale(options ...UpscaleOption) *UpscaleCommand {
	u := &UpscaleCommand{
		sourceName: TextureSceneColor,
		resources: state.NewStore(state.WithInit(func(command.Instance) *upscaleResources {
			return &upscaleResources{dirty: true}
		})),
		warner: command.NewWarnThrottle(5 * time.Second),
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

func (u *UpscaleCommand) Name() string {
	return "Upscale"
}

func (u *UpscaleCommand) AllocateContainerResources(instance command.Instance) {
	u.resources.Get(instance).dirty = true
}

func (u *UpscaleCommand) Execute(instance command.Instance) {
	reg := instance.Registry()
	src := reg.Texture(u.sourceName)
	if src == nil {
		u.warner.Warnf("upscale/no-input", "upscale: %q not in registry, skipping frame", u.sourceName)
		return
	}

	st := u.resources.Get(instance)
	width := instance.RenderWidth()
	height := instance.RenderHeight()
	if width < 1 || height < 1 {
		return
	}

	if st.dirty || st.color == nil ||
		width != st.lastWidth || height != st.lastHeight ||
		reg.Texture(TextureFinalColor) != st.color {
		if err := u.regenerate(instance, st, width, height); err != nil {
			u.warner.Warnf("upscale/regen", "upscale: resource regeneration failed: %v", err)
			return
		}
	}

	dev := instance.Device()
	if !u.forceBlit && dev.Supports(device.FeatureVendorUpscale) {
		err := dev.Upscale(src, st.fbo)
		if err == nil {
			return
		}
		u.warner.Oncef("upscale/vendor", "upscale: vendor path failed, falling back to blit: %v", err)
	}

	if err := dev.Blit(src, st.fbo); err != nil {
		u.warner.Warnf("upscale/blit", "upscale: fallback blit failed: %v", err)
	}
}

func (u *UpscaleCommand) regenerate(instance command.Instance, st *upscaleResources, width, height int) error {
	u.releaseResources(instance, st)

	dev := instance.Device()
	reg := instance.Registry()

	color, err := dev.CreateTexture(device.TextureDesc{
		Label:  TextureFinalColor,
		Width:  width,
		Height: height,
		Format: device.TextureFormatRGBA8,
	})
	if err != nil {
		return err
	}
	fbo, err := dev.CreateFramebuffer(FramebufferFinal, device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: color,
	})
	if err != nil {
		color.Release()
		return err
	}

	reg.SetTexture(TextureFinalColor, color)
	reg.SetFramebuffer(FramebufferFinal, fbo)

	st.color = color
	st.fbo = fbo
	st.lastWidth = width
	st.lastHeight = height
	st.dirty = false
	return nil
}

func (u *UpscaleCommand) releaseResources(instance command.Instance, st *upscaleResources) {
	reg := instance.Registry()
	if fbo := reg.RemoveFramebuffer(FramebufferFinal); fbo != nil {
		fbo.Release()
	}
	if tex := reg.RemoveTexture(TextureFinalColor); tex != nil {
		tex.Release()
	}
	st.color = nil
	st.fbo = nil
}

func (u *UpscaleCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := u.resources.Peek(instance)
	if !ok {
		return
	}
	u.releaseResources(instance, st)
	u.resources.Remove(instance)
}

func (u *UpscaleCommand) DescribePass(instance command.Instance) []graph.Pass {
	if instance.Registry().Texture(u.sourceName) == nil {
		return nil
	}
	return []graph.Pass{
		{
			Name:    "Upscale",
			Sampled: []string{u.sourceName},
			Color: []graph.AttachmentUse{
				{Name: TextureFinalColor, Load: graph.LoadOpDontCare, Store: graph.StoreOpStore},
			},
		},
	}
}
