package graph

// Op identifies a node operator.
type Op int

const (
	// OpConstant is an immutable scalar leaf.
	OpConstant Op = iota

	// Deterministic scalar operators.
	OpAdd
	OpSubtract
	OpNegate
	OpMultiply
	OpExp
	OpLog
	OpLogistic

	// OpIndex extracts one coefficient of a matrix-valued parent. The second
	// parent must be a constant holding a non-negative integer.
	OpIndex

	// Distribution constructors. Parents are the distribution parameters.
	OpDistNormal
	OpDistBeta
	OpDistGamma
	OpDistBernoulli
	OpDistDirichlet

	// OpSample draws a value from its distribution parent.
	OpSample

	// OpObserve conditions on a distribution parent taking an observed value.
	OpObserve

	// OpQuery marks a value-carrying node for posterior collection.
	OpQuery

	opCount
)

// Type is a node's declared result type.
type Type int

const (
	// TypeReal marks value-carrying nodes. The payload is usually a scalar;
	// simplex samples carry a column vector.
	TypeReal Type = iota

	// TypeDistribution marks distribution constructor nodes.
	TypeDistribution

	// TypeNone marks nodes with no value (observations, queries).
	TypeNone

	typeCount
)

// StorageKind tags the value shape and support of a sample node.
// Steppers declare applicability over storage kinds.
type StorageKind int

const (
	// StorageNone marks non-stochastic nodes.
	StorageNone StorageKind = iota

	// StorageScalarReal is an unbounded scalar (normal samples).
	StorageScalarReal

	// StorageScalarPositive is a positive scalar (gamma samples).
	StorageScalarPositive

	// StorageScalarUnit is a scalar in (0, 1) (beta samples).
	StorageScalarUnit

	// StorageScalarBool is a 0/1 scalar (bernoulli samples). Discrete, so
	// no gradient-informed stepper applies.
	StorageScalarBool

	// StorageSimplex is a column vector of positive entries summing to 1
	// (dirichlet samples).
	StorageSimplex
)

// variadic marks an operator accepting any parent count at or above minArity.
const variadic = -1

// opInfo fixes an operator's wire name and signature: parent types in,
// result type out.
type opInfo struct {
	name     string
	arity    int
	minArity int    // only meaningful when arity == variadic
	parents  []Type // fixed-arity signature; variadic signatures are all TypeReal
	result   Type
}

// opTable is the immutable operator signature table. Indexed by Op.
var opTable = [opCount]opInfo{
	OpConstant:      {name: "CONSTANT", arity: 0, result: TypeReal},
	OpAdd:           {name: "ADD", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeReal},
	OpSubtract:      {name: "SUBTRACT", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeReal},
	OpNegate:        {name: "NEGATE", arity: 1, parents: []Type{TypeReal}, result: TypeReal},
	OpMultiply:      {name: "MULTIPLY", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeReal},
	OpExp:           {name: "EXP", arity: 1, parents: []Type{TypeReal}, result: TypeReal},
	OpLog:           {name: "LOG", arity: 1, parents: []Type{TypeReal}, result: TypeReal},
	OpLogistic:      {name: "LOGISTIC", arity: 1, parents: []Type{TypeReal}, result: TypeReal},
	OpIndex:         {name: "INDEX", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeReal},
	OpDistNormal:    {name: "DISTRIBUTION_NORMAL", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeDistribution},
	OpDistBeta:      {name: "DISTRIBUTION_BETA", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeDistribution},
	OpDistGamma:     {name: "DISTRIBUTION_GAMMA", arity: 2, parents: []Type{TypeReal, TypeReal}, result: TypeDistribution},
	OpDistBernoulli: {name: "DISTRIBUTION_BERNOULLI", arity: 1, parents: []Type{TypeReal}, result: TypeDistribution},
	OpDistDirichlet: {name: "DISTRIBUTION_DIRICHLET", arity: variadic, minArity: 2, result: TypeDistribution},
	OpSample:        {name: "SAMPLE", arity: 1, parents: []Type{TypeDistribution}, result: TypeReal},
	OpObserve:       {name: "OBSERVE", arity: 2, parents: []Type{TypeDistribution, TypeReal}, result: TypeNone},
	OpQuery:         {name: "QUERY", arity: 1, parents: []Type{TypeReal}, result: TypeNone},
}

// sampleStorage maps a distribution operator to the storage kind of a
// sample drawn from it.
var sampleStorage = map[Op]StorageKind{
	OpDistNormal:    StorageScalarReal,
	OpDistBeta:      StorageScalarUnit,
	OpDistGamma:     StorageScalarPositive,
	OpDistBernoulli: StorageScalarBool,
	OpDistDirichlet: StorageSimplex,
}

// typeNames is the wire-name table for Type.
var typeNames = [typeCount]string{
	TypeReal:         "REAL",
	TypeDistribution: "DISTRIBUTION",
	TypeNone:         "NONE",
}

// Valid reports whether op is a defined operator.
func (op Op) Valid() bool {
	return op >= 0 && op < opCount
}

// String returns the operator's wire name.
func (op Op) String() string {
	if !op.Valid() {
		return "INVALID"
	}
	return opTable[op].name
}

// Result returns the operator's fixed result type.
func (op Op) Result() Type {
	return opTable[op].result
}

// IsDistribution reports whether the operator constructs a distribution.
func (op Op) IsDistribution() bool {
	return op.Valid() && opTable[op].result == TypeDistribution
}

// IsDeterministic reports whether the operator computes a value from its
// parents (constants and sample draws are not deterministic operators).
func (op Op) IsDeterministic() bool {
	switch op {
	case OpAdd, OpSubtract, OpNegate, OpMultiply, OpExp, OpLog, OpLogistic, OpIndex:
		return true
	default:
		return false
	}
}

// IsStochastic reports whether the node contributes a log-probability term.
func (op Op) IsStochastic() bool {
	return op == OpSample || op == OpObserve
}

// OpFromName resolves a wire name to its operator.
func OpFromName(name string) (Op, bool) {
	for op := Op(0); op < opCount; op++ {
		if opTable[op].name == name {
			return op, true
		}
	}
	return 0, false
}

// Valid reports whether t is a defined type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}

// String returns the type's wire name.
func (t Type) String() string {
	if !t.Valid() {
		return "INVALID"
	}
	return typeNames[t]
}

// TypeFromName resolves a wire name to its type.
func TypeFromName(name string) (Type, bool) {
	for t := Type(0); t < typeCount; t++ {
		if typeNames[t] == name {
			return t, true
		}
	}
	return 0, false
}

// String returns the storage kind name for logs and errors.
func (k StorageKind) String() string {
	switch k {
	case StorageNone:
		return "none"
	case StorageScalarReal:
		return "scalar-real"
	case StorageScalarPositive:
		return "scalar-positive"
	case StorageScalarUnit:
		return "scalar-unit"
	case StorageScalarBool:
		return "scalar-bool"
	case StorageSimplex:
		return "simplex"
	default:
		return "unknown"
	}
}

// SampleStorage returns the storage kind for a sample of the given
// distribution operator.
func SampleStorage(distOp Op) StorageKind {
	return sampleStorage[distOp]
}
