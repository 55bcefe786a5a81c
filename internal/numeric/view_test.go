package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMatrixView_ReadAccessors(t *testing.T) {
	v := Matrix(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	p := View(&v)

	r, c := p.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 3.0, p.At(1, 0))
	assert.Equal(t, 10.0, p.Sum())
	assert.Equal(t, []float64{2, 4}, p.Col(1))
	assert.Equal(t, 4, p.Len())
}

func TestMatrixView_ReadOnScalar_Panics(t *testing.T) {
	v := Scalar(1)
	p := View(&v)

	err := Catch(func() { p.At(0, 0) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix access of scalar value")
	assert.False(t, p.HasMatrix())
}

func TestMatrixView_Assign_SwitchesOwnerTag(t *testing.T) {
	v := Scalar(1)
	p := View(&v)

	p.Assign(mat.NewDense(2, 1, []float64{5, 6}))
	assert.True(t, v.IsMatrix())
	assert.Equal(t, 5.0, p.AtVec(0))
}

func TestMatrixView_SetZero_SwitchesOwnerTag(t *testing.T) {
	v := Scalar(1)
	View(&v).SetZero(2, 3)
	require.True(t, v.IsMatrix())
	r, c := v.Dense().Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
}

func TestMatrixView_MutationWritesThroughOwner(t *testing.T) {
	v := Zeros(3, 1)
	p := View(&v)

	p.SetAtVec(1, 7)
	p.SetAt(2, 0, 9)
	assert.Equal(t, []float64{0, 7, 9}, p.VectorData())
	assert.Equal(t, 7.0, v.Dense().At(1, 0))
}

func TestMatrixView_AtVec_RowVector(t *testing.T) {
	v := Matrix(mat.NewDense(1, 3, []float64{1, 2, 3}))
	p := View(&v)
	assert.Equal(t, 2.0, p.AtVec(1))
}

func TestMatrixView_AtVec_NonVector_Panics(t *testing.T) {
	v := Zeros(2, 2)
	err := Catch(func() { View(&v).AtVec(0) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector access of 2x2 matrix")
}

func TestMatrixView_Data_IsLive(t *testing.T) {
	v := Zeros(2, 1)
	data := View(&v).Data()
	data[0] = 42
	assert.Equal(t, 42.0, v.Dense().At(0, 0))
}

func TestMatrixView_Normalize(t *testing.T) {
	v := Matrix(mat.NewDense(3, 1, []float64{1, 2, 3}))
	sum := View(&v).Normalize()

	assert.Equal(t, 6.0, sum)
	assert.InDelta(t, 1.0/6.0, View(&v).AtVec(0), 1e-15)
	assert.InDelta(t, 1.0, View(&v).Sum(), 1e-15)
}
