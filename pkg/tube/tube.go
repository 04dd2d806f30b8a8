// Package tube defines pipeline stages and the directives they return to the scheduler
package tube

import (
	"context"
	"fmt"

	"github.com/jzx17/gotube/pkg/types"
)

// Tube is a single pipeline stage.
//
// Each handler returns a NextAction telling the fiber what to do next. Handlers receive the
// fiber's run context, from which the engine container and the driving fiber can be resolved.
// Implementations must be comparable (normally pointer types) because the cloner keys on
// identity.
type Tube interface {
	// ProcessRequest handles a packet travelling toward the end of the pipeline
	ProcessRequest(ctx context.Context, p *types.Packet) NextAction

	// ProcessResponse handles a packet travelling back toward the caller
	ProcessResponse(ctx context.Context, p *types.Packet) NextAction

	// ProcessException handles an error travelling back toward the caller
	ProcessException(ctx context.Context, err error) NextAction

	// Copy returns an independent copy of the stage, registering it with c before copying
	// anything the stage references
	Copy(c *Cloner) Tube
}

// Namer is implemented by stages that report a name in errors and logs
type Namer interface {
	Name() string
}

// Destroyer is implemented by stages that hold resources released at pipeline shutdown
type Destroyer interface {
	PreDestroy()
}

// Name returns the stage name, falling back to its type
func Name(t Tube) string {
	if t == nil {
		return "<nil>"
	}
	if n, ok := t.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}

// nexter is implemented by stages that expose their downstream neighbour
type nexter interface {
	NextTube() Tube
}

// Destroy calls PreDestroy once on every stage reachable from head through NextTube links.
// Shared stages and cycles are visited once.
func Destroy(head Tube) int {
	seen := make(map[Tube]struct{})
	count := 0
	for t := head; t != nil; {
		if _, ok := seen[t]; ok {
			break
		}
		seen[t] = struct{}{}
		if d, ok := t.(Destroyer); ok {
			d.PreDestroy()
			count++
		}
		n, ok := t.(nexter)
		if !ok {
			break
		}
		t = n.NextTube()
	}
	return count
}
