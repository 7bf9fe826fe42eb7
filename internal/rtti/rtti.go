// Package rtti implements the reflected schema layer (spec.md §4.B): a
// data-driven descriptor set for every serializable render type, used
// generically by the package writer/parser (internal/pkgbuild) so adding a
// new type means adding a descriptor, never touching the writer.
//
// The original system drives this off C++ virtuals and template-generated
// thunks (spec.md §9 design notes). Go has neither, so each descriptor here
// carries plain closures for get/set instead of member-pointer thunks — the
// "tagged enum plus function-pointer table" the design notes ask for.
package rtti

// Kind is the discriminant naming a type descriptor's broad shape.
type Kind int

const (
	KindEnum Kind = iota
	KindNumber
	KindStruct
	KindValueType
	KindStringIndex
	KindObjectPtr
	KindObjectPtrSpan
	KindBinaryContent
)

// MainType is the broad RTTI category used for config-key typing (spec.md
// §3's ConfigKey.mainType). A config key's main type is immutable once
// indexed — internal/pools enforces that invariant.
type MainType int

const (
	MainTypeInvalid MainType = iota
	MainTypeFloat
	MainTypeSInt
	MainTypeUInt
	MainTypeBool
	MainTypeString
	MainTypeEnum
	MainTypeStruct
	MainTypeCount
)

// IndexableStructType is the stable tag naming a category of serializable
// struct that gets its own per-type index table in the package (spec.md's
// IndexableStructType). The concrete set is owned by the render-pipeline
// domain (internal/rpl) and passed in via the type count given to
// pkgbuild.NewBuilder and the type's ordinal — rtti itself only needs the
// ordinal to size per-type tables.
type IndexableStructType int

// NumberRepr is the numeric representation tag.
type NumberRepr int

const (
	ReprFloat NumberRepr = iota
	ReprSignedInt
	ReprUnsignedInt
)

// StringPurpose selects which pool (global vs per-source temp) resolves a
// StringIndex-typed field.
type StringPurpose int

const (
	PurposeGlobal StringPurpose = iota
	PurposeTemp
)

// Type is the common interface every type descriptor implements. The writer
// and parser in internal/pkgbuild switch on Kind() and type-assert to the
// concrete descriptor to learn shape-specific details.
type Type interface {
	Kind() Kind
	MainType() MainType
}

// EnumOption is one named value in an enum's option table.
type EnumOption struct {
	Name  string
	Value int64
}

// EnumType describes an enum: its option table, the exclusive upper bound on
// values (used to pick the UInt-for-size wire width), and plain/configurable
// get-set thunks. Grounded on original_source's RenderRTTIEnumType options
// table plus configurable-get/set pair (spec.md §4.B).
type EnumType struct {
	Name             string
	Options          []EnumOption
	MaxValueExclusive int64
	Get              func(obj interface{}) int64
	Set              func(obj interface{}, v int64)
	GetConfigurable  func(obj interface{}) *ConfigurableValue
	SetConfigurable  func(obj interface{}, v *ConfigurableValue)
}

func (*EnumType) Kind() Kind         { return KindEnum }
func (*EnumType) MainType() MainType { return MainTypeEnum }

// NumberType describes a scalar numeric field: representation and bit size.
type NumberType struct {
	Repr    NumberRepr
	Bits    int // one of 1, 8, 16, 32, 64
	Get     func(obj interface{}) float64
	Set     func(obj interface{}, v float64)
}

func (*NumberType) Kind() Kind { return KindNumber }
func (n *NumberType) MainType() MainType {
	switch n.Repr {
	case ReprFloat:
		return MainTypeFloat
	case ReprUnsignedInt:
		return MainTypeUInt
	default:
		return MainTypeSInt
	}
}

// FieldVisibility controls whether a field participates in wire
// serialization at all (some struct members are in-memory-only, e.g. caches
// computed at analysis time).
type FieldVisibility int

const (
	VisibilitySerialized FieldVisibility = iota
	VisibilityTransient
)

// Field describes one struct member: its descriptor, accessor thunks, and
// the serialization-relevant flags (configurability, nullability).
type Field struct {
	Name          string
	Type          Type
	Visibility    FieldVisibility
	Configurable  bool
	Nullable      bool
	Get           func(obj interface{}) interface{}
	Set           func(obj interface{}, v interface{})
}

// StructType describes a struct: its ordered field list and the
// IndexableStructType tag it belongs to, if it is ever written into a
// per-type object/span table rather than inline. A zero-value
// IndexableIdx paired with IsIndexable=false means "always inline".
type StructType struct {
	Name        string
	Fields      []Field
	IsIndexable bool
	IndexableIdx IndexableStructType
}

func (*StructType) Kind() Kind         { return KindStruct }
func (*StructType) MainType() MainType { return MainTypeStruct }

// ValueType describes an inline value aggregate (e.g. a vector/matrix of
// numbers) that is always written by value, never indexed.
type ValueType struct {
	Name   string
	Fields []Field
}

func (*ValueType) Kind() Kind         { return KindValueType }
func (*ValueType) MainType() MainType { return MainTypeStruct }

// StringIndexType describes a field that stores a pool index rather than a
// raw string; Purpose selects global vs per-source temp resolution.
type StringIndexType struct {
	Purpose StringPurpose
	Get     func(obj interface{}) uint64
	Set     func(obj interface{}, v uint64)
}

func (*StringIndexType) Kind() Kind         { return KindStringIndex }
func (*StringIndexType) MainType() MainType { return MainTypeString }

// ObjectPtrType describes a (possibly null) pointer to another indexable
// struct instance.
type ObjectPtrType struct {
	Elem *StructType
}

func (*ObjectPtrType) Kind() Kind         { return KindObjectPtr }
func (*ObjectPtrType) MainType() MainType { return MainTypeStruct }

// ObjectPtrSpanType describes a span of object pointers, written by
// materializing a compact-index count followed by per-element indices into a
// dedicated blob (spec.md §4.D).
type ObjectPtrSpanType struct {
	Elem *StructType
}

func (*ObjectPtrSpanType) Kind() Kind         { return KindObjectPtrSpan }
func (*ObjectPtrSpanType) MainType() MainType { return MainTypeStruct }

// BinaryContentType describes a reference into the binary-content pool
// (spec.md's ContentKey).
type BinaryContentType struct{}

func (*BinaryContentType) Kind() Kind         { return KindBinaryContent }
func (*BinaryContentType) MainType() MainType { return MainTypeInvalid }

// ConfigurableState is the state tag of a ConfigurableValue (spec.md §3).
type ConfigurableState int

const (
	StateDefault ConfigurableState = iota
	StateConfigured
	StateExplicit
)

// ConfigurableValue holds a value that may be unset (Default), a named
// late-bound reference (Configured), or a literal (Explicit).
type ConfigurableValue struct {
	State          ConfigurableState
	ConfigKeyIndex uint64  // valid when State == StateConfigured
	Explicit       float64 // valid when State == StateExplicit (enum values and numbers both fit in a float64 payload slot)
}
