package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

func TestSceneBuildsAndRenders(t *testing.T) {
	config := engine.DefaultApplicationConfig()
	config.Renderer = "null"
	config.Headless = true
	config.StartWidth, config.StartHeight = 32, 18
	config.LogLevel = "error"
	config.SkipShaderValidation = true
	config.MaterialDirectory, config.ColormapDirectory = "", ""

	game := NewTestGame(config)
	e, err := engine.New(game.Game, null.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	require.NoError(t, e.Initialize())

	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		seen := map[structures.TypeTag]bool{}
		for _, s := range ctx.Structures() {
			seen[s.Type()] = true
		}
		assert.Len(t, seen, 6)
		assert.Len(t, ctx.Groups(), 2)
		assert.Len(t, ctx.SlicePlanes(), 1)
		assert.Len(t, ctx.FloatingQuantities(), 1)
		return nil
	}))

	require.NoError(t, e.Frame(nil))
	require.NoError(t, e.Frame(nil))
	assert.Equal(t, engine.EngineStageInitialized, e.Stage())
}

func TestGeometryHelpers(t *testing.T) {
	vertices, faces, uvs := torus(1, 0.25, 8, 4)
	assert.Len(t, vertices, 32)
	assert.Len(t, faces, 32)
	assert.Len(t, uvs, 32)
	for _, f := range faces {
		for _, i := range f {
			assert.Less(t, int(i), len(vertices))
		}
	}

	for _, p := range fibonacciSphere(math.NewVec3(1, 0, 0), 2, 50) {
		assert.InDelta(t, 2, p.Distance(math.NewVec3(1, 0, 0)), 1e-4)
	}

	nodes := helix(1, 1, 2, 5)
	assert.InDelta(t, 2, nodes[4].Y, 1e-5)

	tv, tets := cubeTets(math.NewVec3Zero(), 2)
	assert.Len(t, tv, 8)
	assert.Len(t, tets, 5)
	assert.Equal(t, math.NewVec3(2, 2, 2), tv[7])

	field := sphereField(3, math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1), math.NewVec3Zero(), 0.5)
	require.Len(t, field, 27)
	assert.InDelta(t, -0.5, field[13], 1e-6)
}
