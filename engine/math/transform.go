package math

import "github.com/chewxy/math32"

/**
 * @brief Creates an identity transform with no parent.
 */
func NewTransform() *Transform {
	return NewTransformFromPRS(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func NewTransformFromPosition(position Vec3) *Transform {
	return NewTransformFromPRS(position, NewQuatIdentity(), NewVec3One())
}

func NewTransformFromPRS(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	t := &Transform{Local: NewMat4Identity()}
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

/**
 * @brief Decomposes an affine matrix without shear into a transform.
 * Scale comes from the basis row lengths, rotation from the normalized basis.
 */
func NewTransformFromMatrix(m Mat4) *Transform {
	sx := Vec3{m.Data[0], m.Data[1], m.Data[2]}.Length()
	sy := Vec3{m.Data[4], m.Data[5], m.Data[6]}.Length()
	sz := Vec3{m.Data[8], m.Data[9], m.Data[10]}.Length()

	rot := NewMat4Identity()
	scales := [3]float32{sx, sy, sz}
	for r := 0; r < 3; r++ {
		s := scales[r]
		if s == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			rot.Data[r*4+c] = m.Data[r*4+c] / s
		}
	}
	// A mirrored basis carries its sign on X.
	if (Vec3{rot.Data[0], rot.Data[1], rot.Data[2]}).Cross(Vec3{rot.Data[4], rot.Data[5], rot.Data[6]}).
		Dot(Vec3{rot.Data[8], rot.Data[9], rot.Data[10]}) < 0 {
		sx = -sx
		for c := 0; c < 3; c++ {
			rot.Data[c] = -rot.Data[c]
		}
	}
	return NewTransformFromPRS(m.Translation(), NewQuatFromMat4(rot), Vec3{sx, sy, sz})
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation.Normalize()
	t.IsDirty = true
}

// Rotate applies rotation after the current one.
func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = rotation.Mul(t.Rotation).Normalize()
	t.IsDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation.Normalize()
	t.Scale = scale
	t.IsDirty = true
}

/**
 * @brief Returns the local matrix (scale, then rotation, then translation),
 * recomputing it if any component changed.
 */
func (t *Transform) GetLocal() Mat4 {
	if t.IsDirty {
		t.Local = NewMat4Scale(t.Scale).Mul(t.Rotation.ToMat4()).Mul(NewMat4Translation(t.Position))
		t.IsDirty = false
	}
	return t.Local
}

/**
 * @brief Returns the local matrix composed with every parent's world matrix.
 */
func (t *Transform) GetWorld() Mat4 {
	l := t.GetLocal()
	if t.Parent != nil {
		return l.Mul(t.Parent.GetWorld())
	}
	return l
}

// IsIdentity reports whether the local matrix is the identity within tolerance.
func (t *Transform) IsIdentity(tolerance float32) bool {
	return t.GetLocal().FrobeniusDistance(NewMat4Identity()) <= tolerance
}

// UniformScale returns the geometric mean of the absolute scale factors.
func (t *Transform) UniformScale() float32 {
	return math32.Cbrt(math32.Abs(t.Scale.X * t.Scale.Y * t.Scale.Z))
}
