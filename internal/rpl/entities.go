package rpl

import (
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
)

// VertexFeed is one InputLayout feed entry: its source value type (flattened
// if a struct), optional explicit slot number, and optional base offset.
type VertexFeed struct {
	Name       string
	Numbered   bool // true if InputSlot= was given
	Slot       int
	Source     ValueShape
	SourceDef  *StructDef // non-nil when InputSources names a struct entity
	BaseOffset int
	Stride     int          // resolved via ResolveStride once the feed's source shape is known
	Leaves     []PackedLeaf // set when SourceDef != nil: the flattened per-member layout
}

// InputLayout is the analyzed form of an `InputLayout` entity.
type InputLayout struct {
	Name  string
	Feeds []VertexFeed
}

// ValidateFeeds enforces spec.md §4.H's InputLayout rule: feeds are either
// all numbered or all sequential; mixing is fatal.
func ValidateFeeds(feeds []VertexFeed) error {
	if len(feeds) == 0 {
		return nil
	}
	numbered := feeds[0].Numbered
	for _, f := range feeds[1:] {
		if f.Numbered != numbered {
			return buildrr.New(buildrr.KindInvalidParam, "rpl.ValidateFeeds",
				fmt.Errorf("feed %q mixes numbered and sequential InputSlot assignment", f.Name))
		}
	}
	return nil
}

// AssignSlots fills in sequential slot numbers for an all-sequential feed
// list (Numbered == false on every feed); numbered lists are left as-is.
func AssignSlots(feeds []VertexFeed) {
	if len(feeds) == 0 || feeds[0].Numbered {
		return
	}
	for i := range feeds {
		feeds[i].Slot = i
	}
}

// DescriptorArraySize is a DescriptorLayout entry's `[N]` annotation:
// Unbounded means empty brackets ("[]"), Count is valid otherwise and must
// be in 2..math.MaxUint32 per spec.md §4.H.
type DescriptorArraySize struct {
	Unbounded bool
	Count     uint32
}

// ParseArraySize validates the `[N]` syntax's bounds (2 <= N <= u32::MAX;
// empty brackets mean unbounded/0).
func ParseArraySize(raw string) (DescriptorArraySize, error) {
	if raw == "" {
		return DescriptorArraySize{Unbounded: true}, nil
	}
	var n uint64
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return DescriptorArraySize{}, buildrr.New(buildrr.KindTextParse, "rpl.ParseArraySize", err)
	}
	if n < 2 || n > 0xffffffff {
		return DescriptorArraySize{}, buildrr.New(buildrr.KindInvalidParam, "rpl.ParseArraySize",
			fmt.Errorf("array size %d out of range [2, u32::MAX]", n))
	}
	return DescriptorArraySize{Count: uint32(n)}, nil
}

// Descriptor names a descriptor's binding kind, with an optional
// element-type parameter ("<float4>") and, for textures only, a sampler
// reference.
type Descriptor struct {
	Name        string
	Type        string
	ElementType string // set when Type was followed by "<...>"
	ArraySize   DescriptorArraySize
	Sampler     string // set only for texture descriptors; must name a declared StaticSampler
}

// DescriptorLayout is the analyzed form of a `DescriptorLayout` entity.
type DescriptorLayout struct {
	Name        string
	Descriptors []Descriptor
}

// ValidateSamplerRef enforces spec.md §4.H: a texture descriptor's Sampler
// must reference a previously declared static sampler, and only textures
// may carry one at all.
func ValidateSamplerRef(d Descriptor, isTexture bool, knownSamplers map[string]bool) error {
	if d.Sampler == "" {
		return nil
	}
	if !isTexture {
		return buildrr.New(buildrr.KindInvalidParam, "rpl.ValidateSamplerRef",
			fmt.Errorf("descriptor %q: Sampler is only valid on texture descriptors", d.Name))
	}
	if !knownSamplers[d.Sampler] {
		return buildrr.New(buildrr.KindKeyNotFound, "rpl.ValidateSamplerRef",
			fmt.Errorf("descriptor %q references undeclared static sampler %q", d.Name, d.Sampler))
	}
	return nil
}

// RenderTarget is one named slot in a RenderPass's RenderTargets block.
type RenderTarget struct {
	Name string
}

// RenderPass is the analyzed form of a `RenderPass` entity.
type RenderPass struct {
	Name           string
	RenderTargets  []RenderTarget
	HasDepthStencil bool
}

// RenderTargetBinding is one entry of a GraphicsPipeline's RenderTargets
// block; IsDefault marks the fill-in spec.md §4.H specifies when a pass
// target has no matching binding.
type RenderTargetBinding struct {
	Target       string
	IsDefault    bool // true when synthesized because the pipeline didn't bind this target
}

// DepthStencilBinding is a pipeline's DepthStencil block; IsDefault marks
// the no-test/no-write block injected per spec.md §4.H: "a default
// no-test/no-write block is injected."
type DepthStencilBinding struct {
	DepthTest  bool
	DepthWrite bool
	IsDefault  bool
}

// GraphicsPipeline is the analyzed form of a `GraphicsPipeline` entity.
type GraphicsPipeline struct {
	Name              string
	DescriptorLayouts []string
	InputLayout       string
	Stages            map[string]string // stage name ("Vertex","Pixel") -> shader source path
	ExecuteInPass     string
	RenderTargets     []RenderTargetBinding
	DepthStencil      DepthStencilBinding
	HasDepthStencil   bool // true once a DepthStencil block was parsed explicitly
}

// ResolveRenderTargets fills any RenderTarget named in pass but not bound by
// pipeline with the default read-only no-blend descriptor (spec.md §4.H:
// "Missing render-target bindings are filled with a default read-only
// no-blend descriptor").
func ResolveRenderTargets(pipeline *GraphicsPipeline, pass *RenderPass) {
	bound := make(map[string]bool, len(pipeline.RenderTargets))
	for _, rt := range pipeline.RenderTargets {
		bound[rt.Target] = true
	}
	for _, passTarget := range pass.RenderTargets {
		if !bound[passTarget.Name] {
			pipeline.RenderTargets = append(pipeline.RenderTargets, RenderTargetBinding{
				Target: passTarget.Name, IsDefault: true,
			})
		}
	}
}

// ResolveDepthStencil applies spec.md §4.H's DepthStencil defaulting rule,
// grounded on original_source/RKit_Build/RenderPipelineLibraryCompiler.cpp
// lines 1617-1637: a pass with a depth target but no pipeline-specified
// DepthStencil block gets a synthetic {depthTest=false, depthWrite=false}
// block injected (spec.md §8 Scenario 5); a pipeline that specifies
// DepthStencil ops while executing in a pass with no depth target is the
// only error case, since those ops would have nothing to operate on.
func ResolveDepthStencil(pipeline *GraphicsPipeline, pass *RenderPass) error {
	if pipeline.HasDepthStencil && !pass.HasDepthStencil {
		return buildrr.New(buildrr.KindInvalidParam, "rpl.ResolveDepthStencil",
			fmt.Errorf("pipeline %q specifies DepthStencil ops but executes in render pass %q with no depth target", pipeline.Name, pass.Name))
	}
	if pass.HasDepthStencil && !pipeline.HasDepthStencil {
		pipeline.DepthStencil = DepthStencilBinding{IsDefault: true}
		pipeline.HasDepthStencil = true
	}
	return nil
}

// GraphicsPipelineNameLookup and RenderPassNameLookup are the two indexable
// struct types exported per spec.md §4.H's Export rule: a pipeline's sole
// indexed object in its own package, and every pass's lookup collected into
// the globals package.
const (
	IndexableGraphicsPipelineNameLookup rtti.IndexableStructType = iota
	IndexableRenderPassNameLookup
	numIndexableStructTypes
)

// NameLookupStruct describes the (name string-index) shape both lookup
// kinds share; idx distinguishes which IndexableStructType slot it belongs
// to, since GraphicsPipelineNameLookup and RenderPassNameLookup have
// identical shape but must land in separate per-type tables.
func NameLookupStruct(idx rtti.IndexableStructType) *rtti.StructType {
	return &rtti.StructType{
		Name:         "NameLookup",
		IsIndexable:  true,
		IndexableIdx: idx,
		Fields: []rtti.Field{
			{
				Name: "Name",
				Type: &rtti.StringIndexType{Purpose: rtti.PurposeGlobal},
				Get:  func(obj interface{}) interface{} { return obj.(*nameLookup).nameIdx },
				Set: func(obj interface{}, v interface{}) {
					obj.(*nameLookup).nameIdx = v.(uint64)
				},
			},
		},
	}
}

// nameLookup is the in-memory object IndexObject serializes through the
// Name field's thunks above.
type nameLookup struct {
	nameIdx uint64
}
