package light

import (
	"github.com/halcyon3d/halcyon-go/common"
)

// PreCull filters lights against the camera frustum on the CPU before the
// per-tile GPU culling pass. Directional lights always survive; point and
// spot lights survive when their bounding sphere intersects the frustum.
// Disabled lights never survive.
//
// Parameters:
//   - lights: the candidate lights
//   - viewProj: the camera's combined view-projection matrix (column-major, 16 floats)
//
// Returns:
//   - []Light: the lights visible to the camera, in input order
func PreCull(lights []Light, viewProj []float32) []Light {
	frustum := common.ExtractFrustumFromMatrix(viewProj)

	visible := make([]Light, 0, len(lights))
	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		if l.Type() == LightTypeDirectional {
			visible = append(visible, l)
			continue
		}
		p := l.Position()
		if frustum.IntersectsSphere(p[0], p[1], p[2], l.Range()) {
			visible = append(visible, l)
		}
	}
	return visible
}
