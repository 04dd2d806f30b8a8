package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Packet is the unit of work carried through a pipeline.
// The runtime never inspects Content or Metadata; stages own their meaning.
type Packet struct {
	// ID identifies the packet in logs and traces
	ID string

	// Content is the message being processed
	Content any

	// Metadata holds stage-defined properties
	Metadata map[string]any
}

// NewPacket creates a packet with a fresh ID
func NewPacket(content any) *Packet {
	return &Packet{
		ID:       uuid.NewString(),
		Content:  content,
		Metadata: make(map[string]any),
	}
}

// Set stores a metadata value and returns the packet for chaining
func (p *Packet) Set(key string, value any) *Packet {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[key] = value
	return p
}

// Get returns a metadata value
func (p *Packet) Get(key string) (any, bool) {
	v, ok := p.Metadata[key]
	return v, ok
}

func (p *Packet) String() string {
	if p == nil {
		return "Packet(nil)"
	}
	return fmt.Sprintf("Packet(%s)", p.ID)
}
