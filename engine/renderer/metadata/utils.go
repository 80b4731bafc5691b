package metadata

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief Row pitch alignment required for texture to buffer copies. */
const COPY_BYTES_PER_ROW_ALIGNMENT uint32 = 256

func GetAlignedRange(offset, size, granularity uint64) *MemoryRange {
	return &MemoryRange{
		Offset: GetAligned(offset, granularity),
		Size:   GetAligned(size, granularity),
	}
}

// GetAligned rounds operand up to a multiple of granularity, which must be a power of two.
func GetAligned(operand, granularity uint64) uint64 {
	return (operand + (granularity - 1)) &^ (granularity - 1)
}

// PaddedBytesPerRow returns the row pitch of a readback buffer for width texels.
func PaddedBytesPerRow(width, bytesPerPixel uint32) uint32 {
	return uint32(GetAligned(uint64(width*bytesPerPixel), uint64(COPY_BYTES_PER_ROW_ALIGNMENT)))
}

/**
 * @brief Strips the row padding of a readback buffer, returning tightly packed rows.
 */
func UnpadRows(padded []byte, width, height, bytesPerPixel uint32) []byte {
	pitch := PaddedBytesPerRow(width, bytesPerPixel)
	row := width * bytesPerPixel
	if pitch == row {
		return padded[:row*height]
	}
	out := make([]byte, row*height)
	for y := uint32(0); y < height; y++ {
		copy(out[y*row:(y+1)*row], padded[y*pitch:y*pitch+row])
	}
	return out
}

// SwapRedBlue converts BGRA pixels to RGBA in place.
func SwapRedBlue(pixels []byte) {
	for i := 0; i+3 < len(pixels); i += 4 {
		pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
	}
}

/**
 * @brief Packs uniform data with WGSL uniform layout rules. Scalars align to 4
 * bytes, vec2 to 8, vec3/vec4/mat4 to 16. Matrices are written as stored,
 * which a column-major WGSL mat4x4 reads as the transpose needed for M * v.
 */
type UniformWriter struct {
	data []byte
}

func NewUniformWriter(capacity int) *UniformWriter {
	return &UniformWriter{data: make([]byte, 0, capacity)}
}

func (w *UniformWriter) align(n int) {
	for len(w.data)%n != 0 {
		w.data = append(w.data, 0)
	}
}

func (w *UniformWriter) Float(f float32) *UniformWriter {
	w.align(4)
	w.data = binary.LittleEndian.AppendUint32(w.data, math32.Float32bits(f))
	return w
}

func (w *UniformWriter) Uint(u uint32) *UniformWriter {
	w.align(4)
	w.data = binary.LittleEndian.AppendUint32(w.data, u)
	return w
}

func (w *UniformWriter) Bool(b bool) *UniformWriter {
	if b {
		return w.Uint(1)
	}
	return w.Uint(0)
}

func (w *UniformWriter) Vec2(v math.Vec2) *UniformWriter {
	w.align(8)
	return w.Float(v.X).Float(v.Y)
}

// Vec3 leaves the fourth lane free for a following scalar.
func (w *UniformWriter) Vec3(v math.Vec3) *UniformWriter {
	w.align(16)
	return w.Float(v.X).Float(v.Y).Float(v.Z)
}

func (w *UniformWriter) Vec4(v math.Vec4) *UniformWriter {
	w.align(16)
	return w.Float(v.X).Float(v.Y).Float(v.Z).Float(v.W)
}

func (w *UniformWriter) Mat4(m math.Mat4) *UniformWriter {
	w.align(16)
	for _, f := range m.Data {
		w.Float(f)
	}
	return w
}

// Pad aligns the write cursor to n bytes.
func (w *UniformWriter) Pad(n int) *UniformWriter {
	w.align(n)
	return w
}

func (w *UniformWriter) Len() int {
	return len(w.data)
}

// Bytes returns the packed data padded to a 16 byte multiple.
func (w *UniformWriter) Bytes() []byte {
	w.align(16)
	return w.data
}

func (w *UniformWriter) Reset() {
	w.data = w.data[:0]
}

/**
 * @brief Packs float32 values into little endian bytes for storage buffers.
 */
func Float32Bytes(values []float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, f := range values {
		out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(f))
	}
	return out
}

func Uint32Bytes(values []uint32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, u := range values {
		out = binary.LittleEndian.AppendUint32(out, u)
	}
	return out
}

// Vec4Bytes packs vectors as consecutive vec4<f32>.
func Vec4Bytes(values []math.Vec4) []byte {
	out := make([]byte, 0, len(values)*16)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(v.X))
		out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(v.Y))
		out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(v.Z))
		out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(v.W))
	}
	return out
}
