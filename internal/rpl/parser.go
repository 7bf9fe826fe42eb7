package rpl

import (
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// Parser walks the token stream Resolver/Lexer hand it, dispatching on the
// directive keyword set spec.md §4.H names (include, StaticSampler,
// PushConstants, struct, InputLayout, DescriptorLayout, GraphicsPipeline,
// RenderPass) and accumulating the declared entities.
//
// Grounded on LibraryAnalyzer::ParseTopStackItem's dispatch loop
// (original_source/RKit_Build/RenderPipelineLibraryCompiler.cpp).
type Parser struct {
	resolver *Resolver
	entities *EntityTable
	tok      Token
	lex      *Lexer

	StaticSamplers map[string]bool
	PushConstants  map[string]bool
	Structs        map[string]*StructDef
	InputLayouts   map[string]*InputLayout
	Descriptors    map[string]*DescriptorLayout
	Pipelines      map[string]*GraphicsPipeline
	Passes         map[string]*RenderPass
}

func NewParser(resolver *Resolver) *Parser {
	return &Parser{
		resolver:       resolver,
		entities:       NewEntityTable(),
		StaticSamplers: make(map[string]bool),
		PushConstants:  make(map[string]bool),
		Structs:        make(map[string]*StructDef),
		InputLayouts:   make(map[string]*InputLayout),
		Descriptors:    make(map[string]*DescriptorLayout),
		Pipelines:      make(map[string]*GraphicsPipeline),
		Passes:         make(map[string]*RenderPass),
	}
}

// Run drives the resolver/parser loop until the include stack is exhausted,
// mirroring LibraryAnalyzer::Run's outer while loop: each Step either opens
// the next queued include (handled inside Resolver) or hands back a lexer
// ready to parse, from which Run reads top-level directives until that
// file's tokens are exhausted.
func (p *Parser) Run() error {
	for {
		lex, _, err := p.resolver.Step()
		if err != nil {
			return err
		}
		if lex == nil {
			return nil
		}
		p.lex = lex
		if err := p.next(); err != nil {
			return err
		}
		for p.tok.Kind != TokEOF {
			if err := p.parseTopLevel(); err != nil {
				return err
			}
		}
		p.resolver.PopCurrent()
	}
}

func (p *Parser) next() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expectPunct(s string) error {
	if p.tok.Kind != TokPunct || p.tok.Text != s {
		return p.errorf("expected %q", s)
	}
	return p.next()
}

func (p *Parser) expectIdentifier() (string, error) {
	if p.tok.Kind != TokIdentifier {
		return "", p.errorf("expected identifier")
	}
	name := p.tok.Text
	return name, p.next()
}

func (p *Parser) expectBool() (bool, error) {
	if p.tok.Kind != TokIdentifier || (p.tok.Text != "true" && p.tok.Text != "false") {
		return false, p.errorf("expected true or false")
	}
	val := p.tok.Text == "true"
	return val, p.next()
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return buildrr.NewParseError("", p.tok.Line, p.tok.Col, p.tok.Text, fmt.Sprintf(format, args...))
}

// parseTopLevel dispatches one directive at file scope.
func (p *Parser) parseTopLevel() error {
	if p.tok.Kind != TokIdentifier {
		return p.errorf("expected a directive keyword")
	}
	kw := p.tok.Text
	switch kw {
	case "include":
		if err := p.next(); err != nil {
			return err
		}
		if p.tok.Kind != TokString {
			return p.errorf("expected include path string")
		}
		path := p.tok.Text
		if err := p.next(); err != nil {
			return err
		}
		return p.resolver.PushInclude(path)

	case "struct":
		return p.parseStruct()
	case "StaticSampler":
		return p.parseStaticSampler()
	case "PushConstants":
		return p.parsePushConstants()
	case "InputLayout":
		return p.parseInputLayout()
	case "DescriptorLayout":
		return p.parseDescriptorLayout()
	case "GraphicsPipeline":
		return p.parseGraphicsPipeline()
	case "RenderPass":
		return p.parseRenderPass()
	default:
		return p.errorf("unrecognized directive %q", kw)
	}
}

// parseBlockName reads "<identifier> {" and returns the name, leaving the
// cursor on the first token inside the block.
func (p *Parser) parseBlockName() (string, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return "", err
	}
	if err := p.expectPunct("{"); err != nil {
		return "", err
	}
	return name, nil
}

// skipToClosingBrace consumes tokens until the matching "}", tracking
// nesting depth, for block bodies whose fields aren't yet individually
// modeled (e.g. PushConstants' member list, which shares struct's grammar
// but has no separate semantic role here beyond existing).
func (p *Parser) skipToClosingBrace() error {
	depth := 1
	for depth > 0 {
		if p.tok.Kind == TokEOF {
			return p.errorf("unexpected end of file inside block")
		}
		if p.tok.Kind == TokPunct {
			switch p.tok.Text {
			case "{":
				depth++
			case "}":
				depth--
			}
		}
		if err := p.next(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseStaticSampler() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}
	if err := p.skipToClosingBrace(); err != nil {
		return err
	}
	p.StaticSamplers[name] = true
	return nil
}

func (p *Parser) parsePushConstants() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}
	if err := p.skipToClosingBrace(); err != nil {
		return err
	}
	p.PushConstants[name] = true
	return nil
}

// parseStruct reads `struct Name { Type member; ... }`, flattening into a
// StructDef and registering it with the entity table so later type
// resolution can see it.
func (p *Parser) parseStruct() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}

	def := &StructDef{Name: name}
	for p.tok.Kind != TokPunct || p.tok.Text != "}" {
		if p.tok.Kind != TokIdentifier {
			return p.errorf("expected member type")
		}
		typeName := p.tok.Text
		if err := p.next(); err != nil {
			return err
		}
		memberName, err := p.expectIdentifier()
		if err != nil {
			return err
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}

		shape, isStruct, err := ResolveType(typeName, p.entities)
		if err != nil {
			return err
		}
		if isStruct {
			nested, ok := p.Structs[typeName]
			if !ok {
				return p.errorf("struct %q used before it is fully declared", typeName)
			}
			def.Members = append(def.Members, StructMember{Name: memberName, Struct: nested})
		} else {
			def.Members = append(def.Members, StructMember{Name: memberName, Shape: shape})
		}
	}
	if err := p.next(); err != nil {
		return err
	}

	p.Structs[name] = def
	p.entities.DeclareStruct(name)
	return nil
}

// parseInputLayout reads an InputLayout block's feed list, enforcing the
// all-numbered-xor-all-sequential rule once the block is complete.
func (p *Parser) parseInputLayout() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}

	layout := &InputLayout{Name: name}
	for p.tok.Kind != TokPunct || p.tok.Text != "}" {
		feedName, err := p.expectIdentifier()
		if err != nil {
			return err
		}
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		typeName, err := p.expectIdentifier()
		if err != nil {
			return err
		}
		shape, isStruct, err := ResolveType(typeName, p.entities)
		if err != nil {
			return err
		}
		feed := VertexFeed{Name: feedName, Source: shape}
		if isStruct {
			feed.SourceDef = p.Structs[typeName]
		}

		if p.tok.Kind == TokIdentifier && p.tok.Text == "InputSlot" {
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if p.tok.Kind != TokNumber {
				return p.errorf("expected InputSlot number")
			}
			var n int
			fmt.Sscanf(p.tok.Text, "%d", &n)
			feed.Numbered = true
			feed.Slot = n
			if err := p.next(); err != nil {
				return err
			}
		}

		explicitStride := 0
		if p.tok.Kind == TokIdentifier && p.tok.Text == "Stride" {
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if p.tok.Kind != TokNumber {
				return p.errorf("expected Stride number")
			}
			fmt.Sscanf(p.tok.Text, "%d", &explicitStride)
			if err := p.next(); err != nil {
				return err
			}
		}
		computed := feed.Source.PackedByteSize()
		if feed.SourceDef != nil {
			computed = feed.SourceDef.PackedSize()
			feed.Leaves = feed.SourceDef.Flatten(feed.BaseOffset, "")
		}
		stride, err := ResolveStride(explicitStride, computed)
		if err != nil {
			return err
		}
		feed.Stride = stride

		if err := p.expectPunct(";"); err != nil {
			return err
		}
		layout.Feeds = append(layout.Feeds, feed)
	}
	if err := p.next(); err != nil {
		return err
	}

	if err := ValidateFeeds(layout.Feeds); err != nil {
		return err
	}
	AssignSlots(layout.Feeds)
	p.InputLayouts[name] = layout
	return nil
}

// parseDescriptorLayout reads a DescriptorLayout block's descriptor list:
// `Type Name[ArraySize] : Sampler(name);` with Type optionally followed by
// "<ElementType>".
func (p *Parser) parseDescriptorLayout() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}

	layout := &DescriptorLayout{Name: name}
	for p.tok.Kind != TokPunct || p.tok.Text != "}" {
		typeName, err := p.expectIdentifier()
		if err != nil {
			return err
		}
		d := Descriptor{Type: typeName}

		if p.tok.Kind == TokPunct && p.tok.Text == "<" {
			if err := p.next(); err != nil {
				return err
			}
			elem, err := p.expectIdentifier()
			if err != nil {
				return err
			}
			d.ElementType = elem
			if err := p.expectPunct(">"); err != nil {
				return err
			}
		}

		d.Name, err = p.expectIdentifier()
		if err != nil {
			return err
		}

		if p.tok.Kind == TokPunct && p.tok.Text == "[" {
			if err := p.next(); err != nil {
				return err
			}
			raw := ""
			if p.tok.Kind == TokNumber {
				raw = p.tok.Text
				if err := p.next(); err != nil {
					return err
				}
			}
			if err := p.expectPunct("]"); err != nil {
				return err
			}
			sz, err := ParseArraySize(raw)
			if err != nil {
				return err
			}
			d.ArraySize = sz
		}

		isTexture := typeName == "Texture"
		if p.tok.Kind == TokIdentifier && p.tok.Text == "Sampler" {
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct("("); err != nil {
				return err
			}
			sampler, err := p.expectIdentifier()
			if err != nil {
				return err
			}
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			d.Sampler = sampler
		}
		if err := ValidateSamplerRef(d, isTexture, p.StaticSamplers); err != nil {
			return err
		}

		if err := p.expectPunct(";"); err != nil {
			return err
		}
		layout.Descriptors = append(layout.Descriptors, d)
	}
	if err := p.next(); err != nil {
		return err
	}

	p.Descriptors[name] = layout
	return nil
}

// parseRenderPass reads a RenderPass block's RenderTargets list and whether
// it declares a DepthStencil block.
func (p *Parser) parseRenderPass() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}

	pass := &RenderPass{Name: name}
	for p.tok.Kind != TokPunct || p.tok.Text != "}" {
		if p.tok.Kind != TokIdentifier {
			return p.errorf("expected RenderTargets or DepthStencil")
		}
		switch p.tok.Text {
		case "RenderTargets":
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct("{"); err != nil {
				return err
			}
			for p.tok.Kind != TokPunct || p.tok.Text != "}" {
				rtName, err := p.expectIdentifier()
				if err != nil {
					return err
				}
				if err := p.expectPunct(";"); err != nil {
					return err
				}
				pass.RenderTargets = append(pass.RenderTargets, RenderTarget{Name: rtName})
			}
			if err := p.next(); err != nil {
				return err
			}
		case "DepthStencil":
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct("{"); err != nil {
				return err
			}
			if err := p.skipToClosingBrace(); err != nil {
				return err
			}
			pass.HasDepthStencil = true
		default:
			return p.errorf("unrecognized RenderPass field %q", p.tok.Text)
		}
	}
	if err := p.next(); err != nil {
		return err
	}

	p.Passes[name] = pass
	return nil
}

// parseGraphicsPipeline reads a GraphicsPipeline block: DescriptorLayouts
// list, InputLayout reference, per-stage shader sources, ExecuteInPass
// reference, and an optional explicit DepthStencil block, then resolves
// render-target and depth/stencil defaults against its ExecuteInPass's
// declared RenderPass.
func (p *Parser) parseGraphicsPipeline() error {
	if err := p.next(); err != nil {
		return err
	}
	name, err := p.parseBlockName()
	if err != nil {
		return err
	}

	pipeline := &GraphicsPipeline{Name: name, Stages: make(map[string]string)}
	for p.tok.Kind != TokPunct || p.tok.Text != "}" {
		if p.tok.Kind != TokIdentifier {
			return p.errorf("expected a GraphicsPipeline field")
		}
		field := p.tok.Text
		if err := p.next(); err != nil {
			return err
		}
		if err := p.expectPunct("="); err != nil {
			return err
		}

		switch field {
		case "DescriptorLayouts":
			if err := p.expectPunct("["); err != nil {
				return err
			}
			for p.tok.Kind != TokPunct || p.tok.Text != "]" {
				dl, err := p.expectIdentifier()
				if err != nil {
					return err
				}
				pipeline.DescriptorLayouts = append(pipeline.DescriptorLayouts, dl)
				if p.tok.Kind == TokPunct && p.tok.Text == "," {
					if err := p.next(); err != nil {
						return err
					}
				}
			}
			if err := p.next(); err != nil {
				return err
			}
		case "InputLayout":
			pipeline.InputLayout, err = p.expectIdentifier()
			if err != nil {
				return err
			}
		case "ExecuteInPass":
			pipeline.ExecuteInPass, err = p.expectIdentifier()
			if err != nil {
				return err
			}
		case "VertexShader":
			path, err := p.expectStringLiteral()
			if err != nil {
				return err
			}
			pipeline.Stages["Vertex"] = path
		case "PixelShader":
			path, err := p.expectStringLiteral()
			if err != nil {
				return err
			}
			pipeline.Stages["Pixel"] = path
		case "DepthStencil":
			if err := p.expectPunct("{"); err != nil {
				return err
			}
			var ds DepthStencilBinding
			for p.tok.Kind != TokPunct || p.tok.Text != "}" {
				dsField, err := p.expectIdentifier()
				if err != nil {
					return err
				}
				if err := p.expectPunct("="); err != nil {
					return err
				}
				val, err := p.expectBool()
				if err != nil {
					return err
				}
				switch dsField {
				case "DepthTest":
					ds.DepthTest = val
				case "DepthWrite":
					ds.DepthWrite = val
				default:
					return p.errorf("unrecognized DepthStencil field %q", dsField)
				}
				if err := p.expectPunct(";"); err != nil {
					return err
				}
			}
			if err := p.next(); err != nil {
				return err
			}
			pipeline.DepthStencil = ds
			pipeline.HasDepthStencil = true
		default:
			return p.errorf("unrecognized GraphicsPipeline field %q", field)
		}

		if err := p.expectPunct(";"); err != nil {
			return err
		}
	}
	if err := p.next(); err != nil {
		return err
	}

	pass, ok := p.Passes[pipeline.ExecuteInPass]
	if !ok {
		return p.errorf("pipeline %q executes in undeclared render pass %q", name, pipeline.ExecuteInPass)
	}
	ResolveRenderTargets(pipeline, pass)
	if err := ResolveDepthStencil(pipeline, pass); err != nil {
		return err
	}

	p.Pipelines[name] = pipeline
	return nil
}

func (p *Parser) expectStringLiteral() (string, error) {
	if p.tok.Kind != TokString {
		return "", p.errorf("expected a string literal")
	}
	s := p.tok.Text
	return s, p.next()
}
