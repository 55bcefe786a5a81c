package numeric

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies the active payload of a DualValue.
type Kind int

const (
	// KindScalar marks a float64 payload. The zero DualValue is a scalar 0.
	KindScalar Kind = iota

	// KindMatrix marks a *mat.Dense payload.
	KindMatrix
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// DualValue holds either a scalar or a 2-D matrix, tagged by Kind.
//
// Plain assignment (Set, SetFloat, SetDense, SetZero) may switch the active
// tag. Compound in-place arithmetic (AddInPlace, SubInPlace) must not: the
// operand tag has to match the receiver tag, and a violation panics with
// *TypeError before any mutation happens.
//
// DualValue is a value type; copying one shares the underlying matrix.
// Use Clone where an independent copy is required (snapshots).
type DualValue struct {
	kind   Kind
	scalar float64
	matrix *mat.Dense
}

// Scalar returns a DualValue holding f.
func Scalar(f float64) DualValue {
	return DualValue{kind: KindScalar, scalar: f}
}

// Matrix returns a DualValue taking ownership of m.
func Matrix(m *mat.Dense) DualValue {
	if m == nil {
		panic(newTypeError("Matrix", "nil matrix"))
	}
	return DualValue{kind: KindMatrix, matrix: m}
}

// Zeros returns a matrix-tagged DualValue of the given shape, all zero.
func Zeros(rows, cols int) DualValue {
	return DualValue{kind: KindMatrix, matrix: mat.NewDense(rows, cols, nil)}
}

// Kind reports which payload is active.
func (v DualValue) Kind() Kind { return v.kind }

// IsScalar reports whether the scalar payload is active.
func (v DualValue) IsScalar() bool { return v.kind == KindScalar }

// IsMatrix reports whether the matrix payload is active.
func (v DualValue) IsMatrix() bool { return v.kind == KindMatrix }

// Float returns the scalar payload. Panics with *TypeError on a matrix value.
func (v DualValue) Float() float64 {
	if v.kind != KindScalar {
		panic(newTypeError("Float", "scalar access of %s value", v.kind))
	}
	return v.scalar
}

// Dense returns the matrix payload. Panics with *TypeError on a scalar value.
// The returned matrix is the live payload, not a copy.
func (v DualValue) Dense() *mat.Dense {
	if v.kind != KindMatrix {
		panic(newTypeError("Dense", "matrix access of %s value", v.kind))
	}
	return v.matrix
}

// SetFloat assigns a scalar, switching the tag if needed.
func (v *DualValue) SetFloat(f float64) {
	v.kind = KindScalar
	v.scalar = f
	v.matrix = nil
}

// SetDense assigns a matrix, switching the tag if needed. Takes ownership.
func (v *DualValue) SetDense(m *mat.Dense) {
	if m == nil {
		panic(newTypeError("SetDense", "nil matrix"))
	}
	v.kind = KindMatrix
	v.scalar = 0
	v.matrix = m
}

// Set assigns w's payload into v, switching the tag if needed.
// Matrix payloads are deep-copied so v and w never alias.
func (v *DualValue) Set(w DualValue) {
	switch w.kind {
	case KindScalar:
		v.SetFloat(w.scalar)
	case KindMatrix:
		var m mat.Dense
		m.CloneFrom(w.matrix)
		v.SetDense(&m)
	}
}

// SetZero assigns an all-zero matrix of the given shape, forcing the matrix
// tag regardless of the prior one.
func (v *DualValue) SetZero(rows, cols int) {
	v.SetDense(mat.NewDense(rows, cols, nil))
}

// Clone returns an independent deep copy of v.
func (v DualValue) Clone() DualValue {
	if v.kind == KindMatrix {
		var m mat.Dense
		m.CloneFrom(v.matrix)
		return DualValue{kind: KindMatrix, matrix: &m}
	}
	return v
}

// Add returns v + w. Both operands must carry the same tag; matrix shapes
// must agree. Cross-tag addition panics with *TypeError.
func (v DualValue) Add(w DualValue) DualValue {
	if v.kind != w.kind {
		panic(newTypeError("Add", "mismatched operand: %s + %s", v.kind, w.kind))
	}
	if v.kind == KindScalar {
		return Scalar(v.scalar + w.scalar)
	}
	var m mat.Dense
	m.Add(v.matrix, w.matrix)
	return Matrix(&m)
}

// Sub returns v - w. Both operands must carry the same tag; matrix shapes
// must agree. Cross-tag subtraction panics with *TypeError.
func (v DualValue) Sub(w DualValue) DualValue {
	if v.kind != w.kind {
		panic(newTypeError("Sub", "mismatched operand: %s - %s", v.kind, w.kind))
	}
	if v.kind == KindScalar {
		return Scalar(v.scalar - w.scalar)
	}
	var m mat.Dense
	m.Sub(v.matrix, w.matrix)
	return Matrix(&m)
}

// Mul returns v * w. Scalar*scalar multiplies, matrix*matrix is the matrix
// product, and scalar*matrix (either order) scales the matrix. This is the
// only operation where mixed tags are permitted.
func (v DualValue) Mul(w DualValue) DualValue {
	switch {
	case v.kind == KindScalar && w.kind == KindScalar:
		return Scalar(v.scalar * w.scalar)
	case v.kind == KindScalar:
		var m mat.Dense
		m.Scale(v.scalar, w.matrix)
		return Matrix(&m)
	case w.kind == KindScalar:
		var m mat.Dense
		m.Scale(w.scalar, v.matrix)
		return Matrix(&m)
	default:
		var m mat.Dense
		m.Mul(v.matrix, w.matrix)
		return Matrix(&m)
	}
}

// AddInPlace adds w into v. The operand tag must match the receiver tag;
// a mismatch panics with *TypeError and leaves v unmodified.
func (v *DualValue) AddInPlace(w DualValue) {
	if v.kind != w.kind {
		panic(newTypeError("AddInPlace", "mismatched operand: cannot add %s into %s value", w.kind, v.kind))
	}
	if v.kind == KindScalar {
		v.scalar += w.scalar
		return
	}
	v.matrix.Add(v.matrix, w.matrix)
}

// SubInPlace subtracts w from v. The operand tag must match the receiver
// tag; a mismatch panics with *TypeError and leaves v unmodified.
func (v *DualValue) SubInPlace(w DualValue) {
	if v.kind != w.kind {
		panic(newTypeError("SubInPlace", "mismatched operand: cannot subtract %s from %s value", w.kind, v.kind))
	}
	if v.kind == KindScalar {
		v.scalar -= w.scalar
		return
	}
	v.matrix.Sub(v.matrix, w.matrix)
}

// Scale multiplies v by the scalar f in place, preserving the tag.
func (v *DualValue) Scale(f float64) {
	if v.kind == KindScalar {
		v.scalar *= f
		return
	}
	v.matrix.Scale(f, v.matrix)
}

// Equal reports whether v and w carry the same tag and equal payloads.
func (v DualValue) Equal(w DualValue) bool {
	if v.kind != w.kind {
		return false
	}
	if v.kind == KindScalar {
		return v.scalar == w.scalar
	}
	return mat.Equal(v.matrix, w.matrix)
}

// String renders the value for logs and error messages.
func (v DualValue) String() string {
	if v.kind == KindScalar {
		return strconv.FormatFloat(v.scalar, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", mat.Formatted(v.matrix, mat.FormatMATLAB()))
}
