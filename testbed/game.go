package testbed

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/api"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

const helixName = "helix"

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed float64
	// Degrees per second the helix turns around Y.
	spinSpeed float32

	width  uint32
	height uint32
}

/**
 * @brief A demo scene with one of every structure type, a few quantities on
 * each, a slice plane, a group and a floating image.
 */
func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{spinSpeed: 20},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Initialize() error {
	core.LogInfo("building testbed scene...")

	if err := g.buildTorus(); err != nil {
		return err
	}
	if err := g.buildPoints(); err != nil {
		return err
	}
	if err := g.buildHelix(); err != nil {
		return err
	}
	if err := g.buildVolumes(); err != nil {
		return err
	}

	cam, err := api.RegisterCameraView("observer", structures.NewCameraParameters(
		math.NewVec3(4, 2.5, 4), math.NewVec3(-1, -0.6, -1), math.NewVec3Up(), 50, 16.0/9.0))
	if err != nil {
		return err
	}

	volumes, err := api.CreateGroup("volumes")
	if err != nil {
		return err
	}
	tets, _ := api.GetVolumeMesh("tets")
	sdf, _ := api.GetVolumeGrid("sdf")
	for _, ref := range []api.Referenced{tets, sdf} {
		if err := volumes.AddStructure(ref); err != nil {
			return err
		}
	}
	widgets, err := api.CreateGroup("widgets")
	if err != nil {
		return err
	}
	if err := widgets.AddStructure(cam); err != nil {
		return err
	}

	plane, err := api.AddSlicePlane("cut")
	if err != nil {
		return err
	}
	if err := plane.SetPose(math.NewVec3(0, 0, 0.5), math.NewVec3(0, 0, 1)); err != nil {
		return err
	}
	if err := plane.SetEnabled(false); err != nil {
		return err
	}

	const size = 64
	ramp := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			ramp[y*size+x] = math32.Sin(float32(x)*0.2) * math32.Cos(float32(y)*0.2)
		}
	}
	if _, err := api.AddScalarImage("interference", size, size, ramp, "coolwarm"); err != nil {
		return err
	}

	return api.SetOptions(func(o *scene.Options) {
		o.SetGroundPlaneMode(scene.GroundPlaneShadowOnly)
		o.Ssao.Enabled = true
	})
}

func (g *TestGame) buildTorus() error {
	vertices, faces, uvs := torus(1, 0.35, 48, 24)
	mesh, err := api.RegisterSurfaceMesh("torus", vertices, faces)
	if err != nil {
		return err
	}
	if err := mesh.SetEdgeWidth(1); err != nil {
		return err
	}
	if err := mesh.SetShadeStyle(structures.ShadeSmooth); err != nil {
		return err
	}

	height := make([]float32, len(vertices))
	for i, v := range vertices {
		height[i] = v.Y
	}
	if _, err := mesh.AddVertexScalarQuantity("height", height); err != nil {
		return err
	}
	param, err := mesh.AddVertexParameterizationQuantity("uv", uvs)
	if err != nil {
		return err
	}
	if err := param.SetEnabled(false); err != nil {
		return err
	}

	normals := make([]math.Vec3, len(faces))
	for i, f := range faces {
		a, b, c := vertices[f[0]], vertices[f[1]], vertices[f[2]]
		normals[i] = b.Sub(a).Cross(c.Sub(a)).Normalized()
	}
	if _, err := mesh.AddFaceVectorQuantity("normals", normals); err != nil {
		return err
	}
	swirl := make([]math.Vec2, len(vertices))
	for i := range swirl {
		swirl[i] = math.NewVec2(1, 0)
	}
	tangent, err := mesh.AddVertexIntrinsicVectorQuantity("swirl", swirl)
	if err != nil {
		return err
	}
	return tangent.SetEnabled(false)
}

func (g *TestGame) buildPoints() error {
	points := fibonacciSphere(math.NewVec3(2.5, 0.5, 0), 0.5, 800)
	pc, err := api.RegisterPointCloud("sphere points", points)
	if err != nil {
		return err
	}
	colors := make([]math.Vec3, len(points))
	for i, p := range points {
		colors[i] = math.NewVec3(0.5+p.X-2.5, 0.5+p.Y-0.5, 0.5+p.Z)
	}
	if _, err := pc.AddColorQuantity("position", colors); err != nil {
		return err
	}
	if err := pc.SetPointRadius(0.004, true); err != nil {
		return err
	}
	return pc.SetMaterial("candy")
}

func (g *TestGame) buildHelix() error {
	nodes := helix(3, 0.4, 1.5, 120)
	curve, err := api.RegisterCurveNetworkLine(helixName, nodes, false)
	if err != nil {
		return err
	}
	values := make([]float32, len(nodes))
	for i := range values {
		values[i] = float32(i)
	}
	q, err := curve.AddNodeScalarQuantity("arc", values)
	if err != nil {
		return err
	}
	if err := api.SetColormap(q, "plasma"); err != nil {
		return err
	}
	return curve.SetTransform(math.NewMat4Translation(math.NewVec3(-2.5, -0.5, 0)))
}

func (g *TestGame) buildVolumes() error {
	vertices, tets := cubeTets(math.NewVec3(-0.5, -0.5, 2), 1)
	tm, err := api.RegisterTetMesh("tets", vertices, tets)
	if err != nil {
		return err
	}
	quality := make([]float32, len(tets))
	for i := range quality {
		quality[i] = float32(i) / float32(len(tets)-1)
	}
	if _, err := tm.AddCellScalarQuantity("index", quality); err != nil {
		return err
	}
	if err := tm.SetTransparency(0.6); err != nil {
		return err
	}

	const n = 16
	lo, hi := math.NewVec3(-0.75, -0.75, -2.75), math.NewVec3(0.75, 0.75, -1.25)
	grid, err := api.RegisterVolumeGrid("sdf", [3]int{n, n, n}, lo, hi)
	if err != nil {
		return err
	}
	field := sphereField(n, lo, hi, lo.Add(hi).MulScalar(0.5), 0.6)
	iso, err := grid.AddNodeScalarQuantity("distance", field, quantities.GridVizIsosurface)
	if err != nil {
		return err
	}
	return api.SetIsoValue(iso, 0)
}

/**
 * @brief Turns the helix. Runs under the scene lock, so it works on ctx
 * directly instead of going through api.
 */
func (g *TestGame) Update(ctx *scene.Context, deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime

	s, ok := ctx.Get(structures.TypeCurveNetwork, helixName)
	if !ok {
		return nil
	}
	angle := math.DegToRad(state.spinSpeed * float32(state.elapsed))
	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), angle, true)
	s.SetTransform(rotation.ToMat4().Mul(math.NewMat4Translation(math.NewVec3(-2.5, -0.5, 0))))
	ctx.MarkExtentsDirty()
	return nil
}

func (g *TestGame) OnResize(width, height uint32) error {
	state := g.State.(*gameState)
	state.width, state.height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("testbed ran for %.1fs", state.elapsed)
	return nil
}
