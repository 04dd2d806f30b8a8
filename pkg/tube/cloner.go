package tube

import "fmt"

// Cloner copies a pipeline graph while preserving identity.
// Two references to the same stage in the original become two references to the same copy,
// which is also what lets cycles terminate.
type Cloner struct {
	copies map[Tube]Tube
}

// NewCloner creates an empty cloner for one copy operation
func NewCloner() *Cloner {
	return &Cloner{copies: make(map[Tube]Tube)}
}

// Clone copies the pipeline starting at head
func Clone(head Tube) Tube {
	return NewCloner().Copy(head)
}

// Copy returns the copy of t, creating it on first use
func (c *Cloner) Copy(t Tube) Tube {
	if t == nil {
		return nil
	}
	if cp, ok := c.copies[t]; ok {
		return cp
	}
	cp := t.Copy(c)
	if _, ok := c.copies[t]; !ok {
		// Copy implementations are expected to call Add first; record it for those that don't
		c.copies[t] = cp
	}
	return cp
}

// Add records copy as the clone of original.
// Copy implementations call it before copying the stages original references.
func (c *Cloner) Add(original, copy Tube) {
	if existing, ok := c.copies[original]; ok && existing != copy {
		panic(fmt.Sprintf("tube %s was copied twice", Name(original)))
	}
	c.copies[original] = copy
}

// Lookup returns the copy already made for original
func (c *Cloner) Lookup(original Tube) (Tube, bool) {
	cp, ok := c.copies[original]
	return cp, ok
}

// Len returns the number of stages copied so far
func (c *Cloner) Len() int {
	return len(c.copies)
}
