package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/math"
)

func TestPaddedBytesPerRow(t *testing.T) {
	tests := []struct {
		width, bpp uint32
		want       uint32
	}{
		{1, 4, 256},
		{64, 4, 256},
		{65, 4, 512},
		{800, 4, 3328},
		{100, 8, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PaddedBytesPerRow(tt.width, tt.bpp), "width %d bpp %d", tt.width, tt.bpp)
	}
}

func TestUnpadRows(t *testing.T) {
	width, height := uint32(3), uint32(2)
	pitch := PaddedBytesPerRow(width, 4)
	padded := make([]byte, pitch*height)
	for y := uint32(0); y < height; y++ {
		for i := uint32(0); i < width*4; i++ {
			padded[y*pitch+i] = byte(y*100 + i)
		}
	}

	out := UnpadRows(padded, width, height, 4)
	require.Len(t, out, int(width*height*4))
	assert.Equal(t, byte(0), out[0])
	assert.Equal(t, byte(11), out[11])
	assert.Equal(t, byte(100), out[12])
	assert.Equal(t, byte(111), out[23])
}

func TestSwapRedBlue(t *testing.T) {
	px := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapRedBlue(px)
	assert.Equal(t, []byte{3, 2, 1, 4, 7, 6, 5, 8}, px)
}

func TestUniformWriterLayout(t *testing.T) {
	w := NewUniformWriter(128)
	w.Float(1)
	w.Vec3(math.NewVec3(2, 3, 4)) // aligned to 16
	w.Float(5)                    // fills the vec3's fourth lane
	w.Vec2(math.NewVec2(6, 7))
	w.Mat4(math.NewMat4Identity())

	data := w.Bytes()
	read := func(off int) float32 { return math32.Float32frombits(binary.LittleEndian.Uint32(data[off:])) }

	assert.Equal(t, float32(1), read(0))
	assert.Equal(t, float32(2), read(16))
	assert.Equal(t, float32(4), read(24))
	assert.Equal(t, float32(5), read(28))
	assert.Equal(t, float32(6), read(32))
	assert.Equal(t, float32(7), read(36))
	assert.Equal(t, float32(1), read(48))
	assert.Equal(t, float32(1), read(48+60))
	assert.Equal(t, 112, len(data))
	assert.Zero(t, len(data)%16)
}

func TestFormatProperties(t *testing.T) {
	assert.True(t, TextureFormatDepth24PlusStencil8.HasStencil())
	assert.True(t, TextureFormatDepth32Float.IsDepth())
	assert.False(t, TextureFormatRGBA16Float.IsDepth())
	assert.True(t, TextureFormatBGRA8UnormSrgb.IsBGRA())
	assert.Equal(t, uint32(8), TextureFormatRGBA16Float.BytesPerPixel())
	assert.Equal(t, "fs_pick", PassVariantPick.FragmentEntry())
	assert.Equal(t, "", PassVariantShadow.FragmentEntry())
}
