package math

/**
 * @brief Returns the matrix mirroring points across the plane through point
 * with the given normal. The matrix is its own inverse.
 */
func NewMat4Reflection(point, normal Vec3) Mat4 {
	n := normal.Normalized()
	d := -point.Dot(n)

	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = 1 - 2*n.X*n.X
	out_matrix.Data[1] = -2 * n.X * n.Y
	out_matrix.Data[2] = -2 * n.X * n.Z
	out_matrix.Data[4] = -2 * n.Y * n.X
	out_matrix.Data[5] = 1 - 2*n.Y*n.Y
	out_matrix.Data[6] = -2 * n.Y * n.Z
	out_matrix.Data[8] = -2 * n.Z * n.X
	out_matrix.Data[9] = -2 * n.Z * n.Y
	out_matrix.Data[10] = 1 - 2*n.Z*n.Z
	out_matrix.Data[12] = -2 * d * n.X
	out_matrix.Data[13] = -2 * d * n.Y
	out_matrix.Data[14] = -2 * d * n.Z
	return out_matrix
}

// ProjectPoint maps a world point through a view-projection matrix to NDC.
func ProjectPoint(p Vec3, viewProj Mat4) Vec3 {
	clip := p.ToVec4(1).Transform(viewProj)
	if clip.W == 0 {
		return Vec3{clip.X, clip.Y, clip.Z}
	}
	return Vec3{clip.X / clip.W, clip.Y / clip.W, clip.Z / clip.W}
}
