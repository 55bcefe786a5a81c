package numeric

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatrixView projects a DualValue into its matrix-only surface.
//
// The view holds a pointer to the owning value: reads require the matrix tag
// to be active and panic with *TypeError otherwise, while Assign and SetZero
// write a matrix payload through the owner, switching its tag. A view never
// detaches the payload from the value it projects.
type MatrixView struct {
	v *DualValue
}

// View returns the matrix projection of v. The value need not hold a matrix
// yet; Assign and SetZero establish one.
func View(v *DualValue) MatrixView {
	return MatrixView{v: v}
}

// dense returns the live matrix payload, panicking if the tag is wrong.
func (p MatrixView) dense(op string) *mat.Dense {
	if p.v.kind != KindMatrix {
		panic(newTypeError(op, "matrix access of %s value", p.v.kind))
	}
	return p.v.matrix
}

// HasMatrix reports whether the projected value currently holds a matrix.
func (p MatrixView) HasMatrix() bool { return p.v.kind == KindMatrix }

// Assign writes m into the projected value, switching its tag to matrix.
// Takes ownership of m.
func (p MatrixView) Assign(m *mat.Dense) {
	p.v.SetDense(m)
}

// SetZero writes an all-zero matrix of the given shape into the projected
// value, switching its tag to matrix.
func (p MatrixView) SetZero(rows, cols int) {
	p.v.SetZero(rows, cols)
}

// Dims returns the matrix shape.
func (p MatrixView) Dims() (rows, cols int) {
	return p.dense("Dims").Dims()
}

// At returns the coefficient at (i, j).
func (p MatrixView) At(i, j int) float64 {
	return p.dense("At").At(i, j)
}

// SetAt stores f at (i, j).
func (p MatrixView) SetAt(i, j int, f float64) {
	p.dense("SetAt").Set(i, j, f)
}

// AtVec returns coefficient i of a single-column or single-row matrix.
// Panics with *TypeError if the matrix is not a vector.
func (p MatrixView) AtVec(i int) float64 {
	m := p.dense("AtVec")
	r, c := m.Dims()
	switch {
	case c == 1:
		return m.At(i, 0)
	case r == 1:
		return m.At(0, i)
	default:
		panic(newTypeError("AtVec", "vector access of %dx%d matrix", r, c))
	}
}

// SetAtVec stores f at coefficient i of a single-column or single-row matrix.
// Panics with *TypeError if the matrix is not a vector.
func (p MatrixView) SetAtVec(i int, f float64) {
	m := p.dense("SetAtVec")
	r, c := m.Dims()
	switch {
	case c == 1:
		m.Set(i, 0, f)
	case r == 1:
		m.Set(0, i, f)
	default:
		panic(newTypeError("SetAtVec", "vector access of %dx%d matrix", r, c))
	}
}

// Len returns the coefficient count.
func (p MatrixView) Len() int {
	r, c := p.dense("Len").Dims()
	return r * c
}

// Col returns a copy of column j.
func (p MatrixView) Col(j int) []float64 {
	return mat.Col(nil, j, p.dense("Col"))
}

// Sum returns the sum of all coefficients.
func (p MatrixView) Sum() float64 {
	return mat.Sum(p.dense("Sum"))
}

// Data returns the live backing slice in row-major order. Mutations write
// through to the projected value.
func (p MatrixView) Data() []float64 {
	return p.dense("Data").RawMatrix().Data
}

// VectorData returns a copy of a vector's coefficients in order.
func (p MatrixView) VectorData() []float64 {
	m := p.dense("VectorData")
	r, c := m.Dims()
	if c != 1 && r != 1 {
		panic(newTypeError("VectorData", "vector access of %dx%d matrix", r, c))
	}
	out := make([]float64, r*c)
	copy(out, m.RawMatrix().Data)
	return out
}

// Normalize scales a vector so its coefficients sum to 1 and returns the
// pre-normalization sum. Panics with *TypeError on a non-vector matrix.
func (p MatrixView) Normalize() float64 {
	m := p.dense("Normalize")
	r, c := m.Dims()
	if c != 1 && r != 1 {
		panic(newTypeError("Normalize", "vector access of %dx%d matrix", r, c))
	}
	data := m.RawMatrix().Data
	sum := floats.Sum(data)
	floats.Scale(1/sum, data)
	return sum
}
