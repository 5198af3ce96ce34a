package parser

import "github.com/arzzra/govoip/pkg/sip/types"

// Interface is the narrow surface the transport layer depends on: parse a
// full message in whatever mode was last configured. It exists so
// pkg/sip/transport can hold a parser without depending on parser.Mode
// directly.
type Interface interface {
	ParseMessage(data []byte) (types.Message, error)
	SetStrict(strict bool)
}

type boundParser struct {
	p    *Parser
	mode Mode
}

// NewDefault returns a parser bound to Strict mode, for callers (transport,
// stack) that only ever see well-formed traffic and want the simple
// ParseMessage/SetStrict surface instead of threading Mode through.
func NewDefault() Interface {
	return &boundParser{p: New(), mode: Strict}
}

func (b *boundParser) ParseMessage(data []byte) (types.Message, error) {
	return b.p.Parse(data, b.mode)
}

func (b *boundParser) SetStrict(strict bool) {
	if strict {
		b.mode = Strict
	} else {
		b.mode = Lenient
	}
}
