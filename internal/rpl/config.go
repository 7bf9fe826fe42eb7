package rpl

import (
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/pkgbuild"
	"github.com/standardbeagle/lci/internal/rtti"
)

// ParseConfigurable handles the `Config(identifier)` syntax spec.md §4.H
// describes for a configurable field: p is positioned just after having
// read the "Config" identifier token. It consumes "(", the key identifier,
// and ")", interns the key against mainType, and returns a Configured
// ConfigurableValue. A bare literal (no "Config(...)" wrapper) is the
// caller's job to parse directly into an Explicit value.
func (p *Parser) ParseConfigurable(b *pkgbuild.Builder, mainType rtti.MainType) (rtti.ConfigurableValue, error) {
	if err := p.expectPunct("("); err != nil {
		return rtti.ConfigurableValue{}, err
	}
	key, err := p.expectIdentifier()
	if err != nil {
		return rtti.ConfigurableValue{}, err
	}
	if err := p.expectPunct(")"); err != nil {
		return rtti.ConfigurableValue{}, err
	}
	gidx := b.IndexString(key)
	cidx, err := b.IndexConfigKey(gidx, mainType)
	if err != nil {
		return rtti.ConfigurableValue{}, buildrr.New(buildrr.KindInvalidParam, "rpl.ParseConfigurable", err)
	}
	return rtti.ConfigurableValue{State: rtti.StateConfigured, ConfigKeyIndex: uint64(cidx)}, nil
}

// MatchEnumOption resolves raw against options by exact string match,
// per spec.md §4.H's configurable-enum rule ("exact-string enum-option
// matching").
func MatchEnumOption(raw string, options []rtti.EnumOption) (int64, bool) {
	for _, opt := range options {
		if opt.Name == raw {
			return opt.Value, true
		}
	}
	return 0, false
}
