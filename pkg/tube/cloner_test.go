package tube

import (
	"context"
	"testing"

	"github.com/jzx17/gotube/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTube carries per-call state that must not be shared between copies
type countingTube struct {
	Filter
	name      string
	count     int
	destroyed int
}

func newCountingTube(name string, next Tube) *countingTube {
	return &countingTube{Filter: NewFilter(next), name: name}
}

func (t *countingTube) Name() string { return t.name }

func (t *countingTube) ProcessRequest(ctx context.Context, p *types.Packet) NextAction {
	t.count++
	return Invoke(t.Next, p)
}

func (t *countingTube) PreDestroy() { t.destroyed++ }

func (t *countingTube) Copy(c *Cloner) Tube {
	cp := &countingTube{name: t.name}
	c.Add(t, cp)
	cp.Filter = t.CopyNext(c)
	return cp
}

// forkTube references two downstream stages
type forkTube struct {
	left, right Tube
}

func (t *forkTube) ProcessRequest(ctx context.Context, p *types.Packet) NextAction {
	return Invoke(t.left, p)
}

func (t *forkTube) ProcessResponse(ctx context.Context, p *types.Packet) NextAction {
	return ReturnWith(p)
}

func (t *forkTube) ProcessException(ctx context.Context, err error) NextAction {
	return Throw(err)
}

func (t *forkTube) Copy(c *Cloner) Tube {
	cp := &forkTube{}
	c.Add(t, cp)
	cp.left = c.Copy(t.left)
	cp.right = c.Copy(t.right)
	return cp
}

func TestCloner_CopiesChain(t *testing.T) {
	c := newCountingTube("c", nil)
	b := newCountingTube("b", c)
	a := newCountingTube("a", b)
	a.count = 7

	cp, ok := Clone(a).(*countingTube)
	require.True(t, ok)

	assert.NotSame(t, a, cp)
	assert.Equal(t, "a", cp.name)
	assert.Zero(t, cp.count, "copies start with fresh state")

	cb := cp.Next.(*countingTube)
	assert.NotSame(t, b, cb)
	assert.Equal(t, "b", cb.name)

	cc := cb.Next.(*countingTube)
	assert.NotSame(t, c, cc)
	assert.Nil(t, cc.Next)
}

func TestCloner_PreservesSharedStage(t *testing.T) {
	shared := newCountingTube("shared", nil)
	left := newCountingTube("left", shared)
	right := newCountingTube("right", shared)
	fork := &forkTube{left: left, right: right}

	cloner := NewCloner()
	cp := cloner.Copy(fork).(*forkTube)

	cl := cp.left.(*countingTube)
	cr := cp.right.(*countingTube)
	require.NotSame(t, shared, cl.Next)
	assert.Same(t, cl.Next, cr.Next, "both branches must point at one copy of the shared stage")
	assert.Equal(t, 4, cloner.Len())

	got, ok := cloner.Lookup(shared)
	require.True(t, ok)
	assert.Same(t, cl.Next, got)
}

func TestCloner_TerminatesOnCycle(t *testing.T) {
	a := newCountingTube("a", nil)
	b := newCountingTube("b", a)
	a.Next = b

	cp := Clone(a).(*countingTube)
	cb := cp.Next.(*countingTube)

	assert.NotSame(t, a, cp)
	assert.NotSame(t, b, cb)
	assert.Same(t, cp, cb.Next, "cycle must close on the copy, not the original")
}

func TestCloner_NilAndStateless(t *testing.T) {
	assert.Nil(t, Clone(nil))

	term := NewTerminal("end", nil)
	head := newCountingTube("head", term)
	cp := Clone(head).(*countingTube)
	assert.Same(t, term, cp.Next, "stateless terminals are shared")
}

func TestCloner_AddTwicePanics(t *testing.T) {
	c := NewCloner()
	orig := newCountingTube("x", nil)
	c.Add(orig, newCountingTube("x1", nil))

	assert.Panics(t, func() {
		c.Add(orig, newCountingTube("x2", nil))
	})
}

func TestDestroy(t *testing.T) {
	c := newCountingTube("c", nil)
	b := newCountingTube("b", c)
	a := newCountingTube("a", b)
	c.Next = a

	assert.Equal(t, 3, Destroy(a))
	assert.Equal(t, 1, a.destroyed)
	assert.Equal(t, 1, b.destroyed)
	assert.Equal(t, 1, c.destroyed)

	assert.Equal(t, 0, Destroy(nil))
}
