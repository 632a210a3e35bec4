// Package passes contains the concrete pipeline commands built on the shared
// command/registry/state machinery: geometry, Forward+ light culling, bloom,
// ambient occlusion, upscale, and debug visualization.
package passes

// Well-known registry names. The command that creates a resource owns it;
// consumers resolve these names each frame and must tolerate absence.
const (
	// TextureSceneColor is the HDR scene color target owned by the geometry pass.
	TextureSceneColor = "SceneColor"

	// TextureSceneDepth is the scene depth target owned by the geometry pass.
	TextureSceneDepth = "SceneDepth"

	// TextureSceneNormal is the world-space normal target owned by the geometry pass.
	TextureSceneNormal = "SceneNormal"

	// FramebufferScene is the geometry pass's render target.
	FramebufferScene = "SceneFBO"

	// TextureBloomChain is the bloom mip chain owned by the bloom pass.
	TextureBloomChain = "BloomChain"

	// FramebufferBloomComposite attaches the geometry pass's SceneColor
	// texture; the bloom composite draws into it. Because it references
	// another command's texture, the geometry pass removes it on regeneration
	// (one-hop invalidation) and the bloom pass additionally staleness-checks
	// it by identity each frame.
	FramebufferBloomComposite = "BloomCompositeFBO"

	// TextureAmbientOcclusion is the AO mask owned by the SSAO pass.
	TextureAmbientOcclusion = "AmbientOcclusion"

	// TextureFinalColor is the output-resolution color target owned by the
	// upscale pass.
	TextureFinalColor = "FinalColor"

	// FramebufferFinal wraps TextureFinalColor.
	FramebufferFinal = "FinalFBO"
)

// SlotVisibleLights is the frame slot through which the light culling pass
// hands its output to the forward shading pass without a registry lookup.
const SlotVisibleLights = "ForwardPlusVisibleLights"
