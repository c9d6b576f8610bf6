package andersen

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func samePointsTo(a, b PointsTo) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestGlobalMemoizes(t *testing.T) {
	g := NewGlobal(Config{})
	g.Add(Base{Super: "p", Sub: "a"})

	first := g.PointsTo()
	assert.True(t, samePointsTo(first, g.PointsTo()))

	g.Add(Base{Super: "p", Sub: "a"})
	assert.True(t, samePointsTo(first, g.PointsTo()), "duplicates keep the answer")

	g.Add(Simple{Sub: "p", Super: "q"})
	second := g.PointsTo()
	assert.False(t, samePointsTo(first, second))
	assert.Equal(t, []string{"a"}, second.Of("q"))
	assert.Empty(t, first.Of("q"), "earlier answers are unaffected")
}

func TestEmptyScope(t *testing.T) {
	g := NewGlobal(Config{})
	assert.Empty(t, g.PointsTo())
	assert.Empty(t, g.NewLocal().PointsTo())
	assert.Empty(t, g.String())
}

func TestLocalMirrorsIntoGlobal(t *testing.T) {
	g := NewGlobal(Config{})
	l1, l2 := g.NewLocal(), g.NewLocal()
	assert.Same(t, g, l1.Global())

	l1.Add(Base{Super: "p", Sub: "a"})
	l2.Add(Simple{Sub: "p", Super: "q"})

	assert.Equal(t, 1, l1.Len())
	assert.Equal(t, 1, l2.Len())
	assert.Equal(t, 2, g.Len())

	assert.Equal(t, []string{"a"}, g.PointsTo().Of("q"))
	assert.Empty(t, l2.PointsTo().Of("q"), "local answers only see local constraints")
	assert.Equal(t, []string{"a"}, l1.PointsTo().Of("p"))
	assert.Equal(t, "q ⊇ p\n", l2.String())
}

func TestLocalClone(t *testing.T) {
	g := NewGlobal(Config{})
	l := g.NewLocal()
	l.Add(Base{Super: "p", Sub: "a"})
	before := l.PointsTo()

	c := l.Clone()
	assert.True(t, samePointsTo(before, c.PointsTo()))

	c.Add(Simple{Sub: "p", Super: "q"})
	assert.Equal(t, []string{"a"}, c.PointsTo().Of("q"))
	assert.Equal(t, 1, l.Len())
	assert.True(t, samePointsTo(before, l.PointsTo()))
	assert.Equal(t, 2, g.Len())
}

func TestScopeMonotonicity(t *testing.T) {
	g := NewGlobal(Config{})
	l := g.NewLocal()

	steps := []Constraint{
		Base{Super: "p", Sub: "a"},
		Base{Super: "a", Sub: "x"},
		Load("p", "q"),
		Base{Super: "r", Sub: "b"},
		Store("r", "p"),
		Simple{Sub: "q", Super: "r"},
	}

	prev := l.PointsTo()
	for _, c := range steps {
		l.Add(c)
		cur := l.PointsTo()
		covers(t, prev, cur)
		prev = cur
	}

	assert.Equal(t, prev, g.PointsTo())
}

func TestGlobalConcurrentUse(t *testing.T) {
	g := NewGlobal(Config{})

	var eg errgroup.Group
	for w := 0; w < 8; w++ {
		w, l := w, g.NewLocal()
		eg.Go(func() error {
			for i := 0; i < 50; i++ {
				l.Add(Base{Super: fmt.Sprintf("p%d", w), Sub: fmt.Sprintf("o%d", i)})
				l.Add(Simple{Sub: fmt.Sprintf("p%d", w), Super: "all"})
				if _, err := g.PointsToContext(context.Background()); err != nil {
					return err
				}
				if _, err := l.PointsToContext(context.Background()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 8*50+8, g.Len())
	assert.Len(t, g.PointsTo().Of("all"), 50)
}

func TestCancelledQueryKeepsCache(t *testing.T) {
	g := NewGlobal(Config{})
	g.Add(Base{Super: "v0", Sub: "a"})
	cached := g.PointsTo()

	for i := 0; i < 4*pollInterval; i++ {
		g.Add(Simple{Sub: fmt.Sprintf("v%d", i), Super: fmt.Sprintf("v%d", i+1)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.PointsToContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, cached.Of("v0"))

	res, err := g.PointsToContext(context.Background())
	require.NoError(t, err)
	assert.False(t, samePointsTo(cached, res))
	assert.Equal(t, []string{"a"}, res.Of(fmt.Sprintf("v%d", 4*pollInterval)))
}

func TestScopesAreSinks(t *testing.T) {
	g := NewGlobal(Config{})
	for _, s := range []Sink{g, g.NewLocal()} {
		s.Add(Base{Super: "p", Sub: "a"})
	}
	assert.Equal(t, 1, g.Len())
}

func TestNewGlobalRejectsInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { NewGlobal(Config{CycleSearchLimit: -1}) })
}

func TestGlobalConstraints(t *testing.T) {
	g := NewGlobal(Config{})
	l := g.NewLocal()
	l.Add(Base{Super: "p", Sub: "a"})
	g.Add(Simple{Sub: "p", Super: "q"})
	l.Add(Base{Super: "p", Sub: "a"})

	assert.Equal(t, []Constraint{
		Base{Super: "p", Sub: "a"},
		Simple{Sub: "p", Super: "q"},
	}, g.Constraints())
}

func TestLocalAddOfKnownConstraint(t *testing.T) {
	g := NewGlobal(Config{})
	l := g.NewLocal()
	l.Add(Base{Super: "p", Sub: "a"})
	cached := l.PointsTo()

	// Known constraints do not touch the global scope.
	g.mu.Lock()
	l.Add(Base{Super: "p", Sub: "a"})
	g.mu.Unlock()

	assert.Equal(t, 1, l.Len())
	assert.True(t, samePointsTo(cached, l.PointsTo()))
}
