package passes

import (
	"time"

	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
)

// DebugSource is implemented by commands that can expose an internal texture
// for debug visualization.
type DebugSource interface {
	// DebugTexture returns the command's debug texture for the given instance,
	// or nil when the command has not allocated yet.
	//
	// Parameters:
	//   - instance: the pipeline instance to look up
	//
	// Returns:
	//   - device.Texture: the internal texture, or nil
	DebugTexture(instance command.Instance) device.Texture
}

// DebugViewCommand blits a sibling pass's internal texture into the final
// framebuffer. The sibling is located by name through the chain root with a
// recursive Find, so the debug view works regardless of how deeply the target
// command is nested in containers.
type DebugViewCommand struct {
	root       func() command.Command
	targetName string
	warner     *command.WarnThrottle
}

var _ command.Command = &DebugViewCommand{}

// NewDebugView creates a debug visualization command.
//
// Parameters:
//   - root: resolves the chain root to search; deferred so the chain can be
//     assembled after this command is constructed
//   - targetName: the name of the command whose texture to show
//
// Returns:
//   - *DebugViewCommand: the new command
func NewDebugView(root func() command.Command, targetName string) *DebugViewCommand {
	if root == nil {
		panic("debug view requires a chain root resolver")
	}
	return &DebugViewCommand{
		root:       root,
		targetName: targetName,
		warner:     command.NewWarnThrottle(5 * time.Second),
	}
}

func (d *DebugViewCommand) Name() string {
	return "DebugView"
}

func (d *DebugViewCommand) AllocateContainerResources(command.Instance) {}

func (d *DebugViewCommand) Execute(instance command.Instance) {
	target := instance.Registry().Framebuffer(FramebufferFinal)
	if target == nil {
		d.warner.Warnf("debug/no-target", "debug view: %q not in registry, skipping frame", FramebufferFinal)
		return
	}

	src := d.sourceTexture(instance)
	if src == nil {
		d.warner.Warnf("debug/no-source", "debug view: no debug texture from %q, skipping frame", d.targetName)
		return
	}

	if err := instance.Device().Blit(src, target); err != nil {
		d.warner.Warnf("debug/blit", "debug view: blit failed: %v", err)
	}
}

func (d *DebugViewCommand) sourceTexture(instance command.Instance) device.Texture {
	found := command.Find(d.root(), d.targetName)
	if found == nil {
		return nil
	}
	source, ok := found.(DebugSource)
	if !ok {
		return nil
	}
	return source.DebugTexture(instance)
}

func (d *DebugViewCommand) ReleaseContainerResources(command.Instance) {}

func (d *DebugViewCommand) DescribePass(instance command.Instance) []graph.Pass {
	if d.sourceTexture(instance) == nil {
		return nil
	}
	return []graph.Pass{
		{
			Name: "DebugView",
			Color: []graph.AttachmentUse{
				{Name: TextureFinalColor, Load: graph.LoadOpDontCare, Store: graph.StoreOpStore},
			},
		},
	}
}
