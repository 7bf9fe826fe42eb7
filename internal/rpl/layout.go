package rpl

import (
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// PackedLeaf is one scalar/vector/matrix leaf of a flattened vertex input,
// tagged with its packed byte offset and shape (spec.md §4.H: "tagging each
// leaf with (offset, numericType, componentDimension)").
type PackedLeaf struct {
	Name   string
	Offset int
	Shape  ValueShape
}

// StructMember is one member of a struct entity being flattened into a
// vertex input's leaf list.
type StructMember struct {
	Name string
	// Shape is set for a scalar/vector/matrix member; Struct is set (and
	// Shape left zero) for a nested struct member.
	Shape  ValueShape
	Struct *StructDef
}

// StructDef is a declared `struct` entity: an ordered member list.
type StructDef struct {
	Name    string
	Members []StructMember
}

// PackedSize computes the total packed byte size of a struct by recursing
// into nested struct members, matching spec.md §4.H's packed-sizing rule.
func (s *StructDef) PackedSize() int {
	total := 0
	for _, m := range s.Members {
		if m.Struct != nil {
			total += m.Struct.PackedSize()
		} else {
			total += m.Shape.PackedByteSize()
		}
	}
	return total
}

// Flatten walks s's members depth-first, appending one PackedLeaf per
// scalar/vector/matrix member with its cumulative packed offset, and
// dot-qualifying nested names ("transform.position").
func (s *StructDef) Flatten(baseOffset int, prefix string) []PackedLeaf {
	var out []PackedLeaf
	offset := baseOffset
	for _, m := range s.Members {
		name := m.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		if m.Struct != nil {
			out = append(out, m.Struct.Flatten(offset, name)...)
			offset += m.Struct.PackedSize()
			continue
		}
		out = append(out, PackedLeaf{Name: name, Offset: offset, Shape: m.Shape})
		offset += m.Shape.PackedByteSize()
	}
	return out
}

// ResolveStride reconciles an explicit per-feed stride (0 meaning unset)
// against the computed packed size of its source struct, matching spec.md
// §4.H: "Stride may be explicitly set per feed; if set both explicitly and
// computed, mismatches are a fatal error."
func ResolveStride(explicit int, computed int) (int, error) {
	if explicit == 0 {
		return computed, nil
	}
	if explicit != computed {
		return 0, buildrr.New(buildrr.KindInvalidParam, "rpl.ResolveStride",
			fmt.Errorf("explicit stride %d does not match computed packed size %d", explicit, computed))
	}
	return explicit, nil
}
