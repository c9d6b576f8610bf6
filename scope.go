package andersen

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// A scope owns a constraint log and a memoized answer for it. The answer is
// valid as long as the version it was computed at equals the version of the
// log, which is bumped whenever a new constraint is recorded.
type scope struct {
	set     *ConstraintSet
	version uint64

	cached        PointsTo
	cachedVersion uint64
}

func (s *scope) add(c Constraint) {
	if s.set.Add(c) {
		s.version++
	}
}

func (s *scope) pointsTo(ctx context.Context, config Config) (PointsTo, error) {
	if s.cached != nil && s.cachedVersion == s.version {
		return s.cached, nil
	}

	res, err := Analyze(ctx, s.set.Constraints(), config)
	if err != nil {
		return nil, err
	}

	s.cached, s.cachedVersion = res.PointsTo, s.version
	return s.cached, nil
}

// Global is the constraint scope shared by every analysis element of one
// analysis run. It accumulates all constraints added through any [Local]
// created from it.
//
// A Global is safe for concurrent use. Queries are serialized.
type Global struct {
	mu     sync.Mutex
	config Config
	scope
}

// NewGlobal returns an empty global scope solved with config. An invalid
// config is a programming error; configurations read from files are
// validated by [LoadConfig].
func NewGlobal(config Config) *Global {
	if err := config.Validate(); err != nil {
		log.Panicf("NewGlobal: %v", err)
	}

	return &Global{
		config: config,
		scope:  scope{set: new(ConstraintSet)},
	}
}

func (g *Global) Add(c Constraint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(c)
}

// Len returns the number of distinct constraints in g.
func (g *Global) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set.Len()
}

// Constraints returns the distinct constraints added to g, in the order
// they were first added.
func (g *Global) Constraints() []Constraint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set.Constraints()
}

// PointsTo returns the solution of all constraints added to g so far.
func (g *Global) PointsTo() PointsTo {
	res, err := g.PointsToContext(context.Background())
	if err != nil {
		log.Panicf("solving without a deadline failed: %v", err)
	}
	return res
}

// PointsToContext is like PointsTo, but gives up when ctx is done.
func (g *Global) PointsToContext(ctx context.Context) (PointsTo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pointsTo(ctx, g.config)
}

// NewLocal returns an empty local scope that mirrors its constraints into g.
func (g *Global) NewLocal() *Local {
	return &Local{
		global: g,
		scope:  scope{set: new(ConstraintSet)},
	}
}

func (g *Global) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set.String()
}

// Local is the constraint scope of a single analysis element. Constraints
// added to it are also added to its [Global] scope; the local answer only
// reflects the local constraints.
//
// A Local is not safe for concurrent use. Use [Local.Clone] to hand a copy
// to another worker.
type Local struct {
	global *Global
	scope
}

func (l *Local) Add(c Constraint) {
	// Every local constraint is already in the global scope.
	if l.set.Has(c) {
		return
	}
	l.add(c)
	l.global.Add(c)
}

func (l *Local) Global() *Global { return l.global }

func (l *Local) Len() int { return l.set.Len() }

// PointsTo returns the solution of the constraints added to l.
func (l *Local) PointsTo() PointsTo {
	res, err := l.PointsToContext(context.Background())
	if err != nil {
		log.Panicf("solving without a deadline failed: %v", err)
	}
	return res
}

// PointsToContext is like PointsTo, but gives up when ctx is done.
func (l *Local) PointsToContext(ctx context.Context) (PointsTo, error) {
	return l.pointsTo(ctx, l.global.config)
}

// Clone returns a copy of l with its own constraint log. The copy starts out
// sharing the cached answer of l.
func (l *Local) Clone() *Local {
	return &Local{
		global: l.global,
		scope: scope{
			set:           l.set.Clone(),
			version:       l.version,
			cached:        l.cached,
			cachedVersion: l.cachedVersion,
		},
	}
}

func (l *Local) String() string { return l.set.String() }
