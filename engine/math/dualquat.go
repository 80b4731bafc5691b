package math

/**
 * @brief Creates a dual quaternion from a rotation followed by a translation.
 */
func NewDualQuat(rotation Quaternion, translation Vec3) DualQuat {
	r := rotation.Normalize()
	t := Quaternion{translation.X, translation.Y, translation.Z, 0}
	return DualQuat{Real: r, Dual: t.Mul(r).Scale(0.5)}
}

func NewDualQuatIdentity() DualQuat {
	return DualQuat{Real: NewQuatIdentity()}
}

// NewDualQuatFromMat4 reads the rigid part of an affine matrix. Scale is dropped.
func NewDualQuatFromMat4(m Mat4) DualQuat {
	t := NewTransformFromMatrix(m)
	return NewDualQuat(t.Rotation, t.Position)
}

// Rotation returns the rotation part.
func (d DualQuat) Rotation() Quaternion {
	return d.Real.Normalize()
}

// Translation recovers t = 2 * dual * conj(real).
func (d DualQuat) Translation() Vec3 {
	t := d.Dual.Scale(2).Mul(d.Real.Conjugate())
	return Vec3{t.X, t.Y, t.Z}
}

func (d DualQuat) ToMat4() Mat4 {
	m := d.Rotation().ToMat4()
	t := d.Translation()
	m.Data[12] = t.X
	m.Data[13] = t.Y
	m.Data[14] = t.Z
	return m
}

func (d DualQuat) Normalize() DualQuat {
	n := d.Real.Normal()
	if n == 0 {
		return NewDualQuatIdentity()
	}
	return DualQuat{Real: d.Real.Scale(1 / n), Dual: d.Dual.Scale(1 / n)}
}

/**
 * @brief Linear blend of two rigid transforms along the shortest arc,
 * renormalized by the real part.
 */
func (d DualQuat) Lerp(other DualQuat, t float32) DualQuat {
	b := other
	if d.Real.Dot(other.Real) < 0 {
		b = DualQuat{Real: other.Real.Scale(-1), Dual: other.Dual.Scale(-1)}
	}
	out := DualQuat{
		Real: d.Real.Scale(1 - t).Add(b.Real.Scale(t)),
		Dual: d.Dual.Scale(1 - t).Add(b.Dual.Scale(t)),
	}
	return out.Normalize()
}

// TransformPoint applies rotation then translation to p.
func (d DualQuat) TransformPoint(p Vec3) Vec3 {
	return d.Rotation().Rotate(p).Add(d.Translation())
}
