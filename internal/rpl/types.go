package rpl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// ScalarType is one entry of the fixed scalar-name table spec.md §4.H lists.
type ScalarType int

const (
	ScalarFloat ScalarType = iota
	ScalarHalf
	ScalarInt
	ScalarUint
	ScalarDouble
	ScalarUlong
	ScalarLong
	ScalarBool
	ScalarByte
	ScalarSbyte
	ScalarShort
	ScalarUshort
	ScalarNbyte
	ScalarNushort
	ScalarNsbyte
	ScalarNshort
)

// scalarNames is grounded on LibraryAnalyzer::Run's m_numericTypeResolutions
// table (original_source/RKit_Build/RenderPipelineLibraryCompiler.cpp).
var scalarNames = map[string]ScalarType{
	"float":   ScalarFloat,
	"half":    ScalarHalf,
	"int":     ScalarInt,
	"uint":    ScalarUint,
	"double":  ScalarDouble,
	"ulong":   ScalarUlong,
	"long":    ScalarLong,
	"bool":    ScalarBool,
	"byte":    ScalarByte,
	"sbyte":   ScalarSbyte,
	"short":   ScalarShort,
	"ushort":  ScalarUshort,
	"nbyte":   ScalarNbyte,
	"nushort": ScalarNushort,
	"nsbyte":  ScalarNsbyte,
	"nshort":  ScalarNshort,
}

// scalarByteWidth returns the packed byte width of one scalar component, for
// packed-sizing computation.
func scalarByteWidth(s ScalarType) int {
	switch s {
	case ScalarFloat, ScalarInt, ScalarUint:
		return 4
	case ScalarHalf, ScalarShort, ScalarUshort, ScalarNshort, ScalarNushort:
		return 2
	case ScalarDouble, ScalarUlong, ScalarLong:
		return 8
	case ScalarBool, ScalarByte, ScalarSbyte, ScalarNbyte, ScalarNsbyte:
		return 1
	default:
		return 0
	}
}

// ValueShape is a scalar, vector, or matrix dimensional form: "T" scalar,
// "TN" vector (N=2..4), "TNxM" matrix (N,M=2..4) — spec.md §4.H.
type ValueShape struct {
	Scalar ScalarType
	Cols   int // 1 for a bare scalar
	Rows   int // 1 for a scalar or vector
}

func (v ValueShape) ComponentCount() int { return v.Cols * v.Rows }
func (v ValueShape) PackedByteSize() int { return scalarByteWidth(v.Scalar) * v.ComponentCount() }

// EntityTable resolves a struct-entity identifier declared by the `struct`
// directive, for value types that fall through the scalar/vector/matrix
// table.
type EntityTable struct {
	structs map[string]bool
}

func NewEntityTable() *EntityTable {
	return &EntityTable{structs: make(map[string]bool)}
}

func (t *EntityTable) DeclareStruct(name string) {
	t.structs[strings.ToLower(name)] = true
}

func (t *EntityTable) HasStruct(name string) bool {
	return t.structs[strings.ToLower(name)]
}

// StructNames returns every struct entity declared so far, for suggestion
// candidates when a type name fails to resolve.
func (t *EntityTable) StructNames() []string {
	names := make([]string, 0, len(t.structs))
	for name := range t.structs {
		names = append(names, name)
	}
	return names
}

// ResolveValueType parses an identifier like "float", "float3", or
// "float3x4" into a ValueShape, per spec.md §4.H's type resolution rule. If
// name doesn't parse as a scalar/vector/matrix form, it falls through to the
// entity table for a struct lookup (the caller handles that branch, since a
// struct resolves to a different result type than ValueShape).
func ResolveValueType(name string) (ValueShape, bool) {
	for i := len(name); i > 0; i-- {
		base := name[:i]
		scalar, ok := scalarNames[base]
		if !ok {
			continue
		}
		suffix := name[i:]
		shape, ok := parseDimensionSuffix(suffix)
		if !ok {
			continue
		}
		shape.Scalar = scalar
		return shape, true
	}
	return ValueShape{}, false
}

// parseDimensionSuffix parses "", "N", or "NxM" with N, M in 2..4.
func parseDimensionSuffix(suffix string) (ValueShape, bool) {
	if suffix == "" {
		return ValueShape{Cols: 1, Rows: 1}, true
	}
	if n, m, ok := strings.Cut(suffix, "x"); ok {
		cols, err1 := strconv.Atoi(n)
		rows, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || cols < 2 || cols > 4 || rows < 2 || rows > 4 {
			return ValueShape{}, false
		}
		return ValueShape{Cols: cols, Rows: rows}, true
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 2 || n > 4 {
		return ValueShape{}, false
	}
	return ValueShape{Cols: n, Rows: 1}, true
}

// ResolveType resolves name against the scalar/vector/matrix table first,
// then the entity table; a name matching neither is a fatal error per
// spec.md §4.H ("Unknown identifiers then resolve via the entity table to a
// struct entity, else fatal"). The error carries a "did you mean" suggestion
// when a nearby candidate exists, in the style of the teacher's
// SymbolTypeResolver.findClosestMatch.
func ResolveType(name string, entities *EntityTable) (ValueShape, bool, error) {
	if shape, ok := ResolveValueType(name); ok {
		return shape, false, nil
	}
	if entities.HasStruct(name) {
		return ValueShape{}, true, nil
	}
	underlying := fmt.Errorf("unknown type %q", name)
	if suggestion := suggestTypeName(name, entities); suggestion != "" {
		underlying = fmt.Errorf("unknown type %q (did you mean %q?)", name, suggestion)
	}
	return ValueShape{}, false, buildrr.New(buildrr.KindTextParse, "rpl.ResolveType", underlying)
}

// suggestTypeName finds the scalar base name or struct entity name nearest
// to name by Levenshtein distance, the same threshold (<=2, excluding an
// exact match) the teacher's symbol_type_resolver.go uses for "did you mean"
// suggestions.
func suggestTypeName(name string, entities *EntityTable) string {
	candidates := make([]string, 0, len(scalarNames)+len(entities.structs))
	for base := range scalarNames {
		candidates = append(candidates, base)
	}
	candidates = append(candidates, entities.StructNames()...)

	lowerName := strings.ToLower(name)
	best := ""
	bestDistance := 1000
	for _, candidate := range candidates {
		distance := edlib.LevenshteinDistance(lowerName, strings.ToLower(candidate))
		if distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	if bestDistance > 0 && bestDistance <= 2 {
		return best
	}
	return ""
}
