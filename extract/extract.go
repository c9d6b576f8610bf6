// Package extract generates inclusion constraints for the Andersen solver
// from a program in SSA form.
//
// The generated constraints are flow-insensitive, context-insensitive and
// field-insensitive: every allocation site is one abstract object, fields and
// elements of an object share the identifier of the object, and maps,
// channels and interface boxes are objects whose contents are reached
// through one dereference.
//
// Calls are bound only when the callee is statically known. Calls through
// function values and interface method invocations do not contribute
// constraints.
package extract

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/queue"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PanicVar is the identifier of the variable holding every panic value.
const PanicVar = "<panic>"

type Options struct {
	// When AllFunctions is true every function in the program is analysed,
	// not only those statically reachable from the main packages.
	AllFunctions bool

	// Logger defaults to the standard logger.
	Logger log.FieldLogger
}

type Extractor struct {
	prog *ssa.Program
	sink andersen.Sink
	opts Options

	queue   queue.Queue[*ssa.Function]
	visited map[*ssa.Function]bool

	// Identifiers of globals and functions whose base constraint has been
	// emitted.
	named map[ssa.Value]bool

	constraints int
}

func New(prog *ssa.Program, sink andersen.Sink, opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	return &Extractor{
		prog:    prog,
		sink:    sink,
		opts:    opts,
		visited: make(map[*ssa.Function]bool),
		named:   make(map[ssa.Value]bool),
	}
}

// Run generates constraints for every function reachable from the init and
// main functions of the given packages.
func (e *Extractor) Run(mains []*ssa.Package) {
	for _, pkg := range mains {
		for _, name := range [...]string{"init", "main"} {
			if fun := pkg.Func(name); fun != nil {
				e.discover(fun)
			}
		}
	}

	if e.opts.AllFunctions {
		for fun := range ssautil.AllFunctions(e.prog) {
			e.discover(fun)
		}
	}

	for !e.queue.Empty() {
		e.processFunc(e.queue.Pop())
	}

	e.opts.Logger.WithFields(log.Fields{
		"functions":   len(e.visited),
		"constraints": e.constraints,
	}).Debug("Extracted constraints")
}

// Reachable returns the functions constraints were generated for.
func (e *Extractor) Reachable() map[*ssa.Function]bool {
	return e.visited
}

// Ident returns the identifier of the variable holding the value v.
// Constants have no identifier.
func (e *Extractor) Ident(v ssa.Value) string {
	switch v := v.(type) {
	case *ssa.Global:
		return v.String()
	case *ssa.Function:
		return v.String()
	default:
		if v.Parent() == nil {
			return v.Name()
		}
		return fmt.Sprintf("%s.%s", v.Parent(), v.Name())
	}
}

// Object returns the identifier of the abstract object allocated by v, which
// must be an allocating instruction, a global or a function.
func (e *Extractor) Object(v ssa.Value) string {
	return "obj:" + e.Ident(v)
}

func returnVar(fun *ssa.Function) string {
	return "ret:" + fun.String()
}

func (e *Extractor) emit(c andersen.Constraint) {
	e.constraints++
	e.sink.Add(c)
}

// ident is like Ident, but also emits the base constraint of globals and
// functions the first time they are seen. It reports false for values
// without an identifier.
func (e *Extractor) ident(v ssa.Value) (string, bool) {
	switch v := v.(type) {
	case *ssa.Const, *ssa.Builtin:
		return "", false
	case *ssa.Global, *ssa.Function:
		if !e.named[v] {
			e.named[v] = true
			e.emit(andersen.Base{Super: e.Ident(v), Sub: e.Object(v)})
		}
	}
	return e.Ident(v), true
}

func (e *Extractor) simple(from, to ssa.Value) {
	if sub, ok := e.ident(from); ok {
		if super, ok := e.ident(to); ok {
			e.emit(andersen.Simple{Sub: sub, Super: super})
		}
	}
}

// load emits to = *from.
func (e *Extractor) load(from, to ssa.Value) {
	if sub, ok := e.ident(from); ok {
		if super, ok := e.ident(to); ok {
			e.emit(andersen.Load(sub, super))
		}
	}
}

// store emits *addr = val.
func (e *Extractor) store(val, addr ssa.Value) {
	if sub, ok := e.ident(val); ok {
		if super, ok := e.ident(addr); ok {
			e.emit(andersen.Store(sub, super))
		}
	}
}

func (e *Extractor) alloc(v ssa.Value) {
	e.emit(andersen.Base{Super: e.Ident(v), Sub: e.Object(v)})
}

func (e *Extractor) discover(fun *ssa.Function) {
	if !e.visited[fun] {
		e.visited[fun] = true
		e.queue.Push(fun)
	}
}

// bind connects the arguments and result of a call to a statically known
// callee.
func (e *Extractor) bind(fun *ssa.Function, args []ssa.Value, rval *ssa.Call) {
	e.discover(fun)

	if len(args) != len(fun.Params) {
		log.Panicf("call to %v with %d arguments, expected %d", fun, len(args), len(fun.Params))
	}

	for i, param := range fun.Params {
		e.simple(args[i], param)
	}

	if rval != nil {
		e.emit(andersen.Simple{Sub: returnVar(fun), Super: e.Ident(rval)})
	}
}

func (e *Extractor) builtin(call ssa.CallInstruction) {
	common := call.Common()
	rval := call.Value()

	switch common.Value.Name() {
	case "append":
		// The result is either the first argument or a new backing array
		// holding the elements of both arguments.
		e.alloc(rval)
		e.simple(common.Args[0], rval)
		elem := e.Ident(rval) + "[*]"
		for _, arg := range common.Args {
			if src, ok := e.ident(arg); ok {
				e.emit(andersen.Load(src, elem))
			}
		}
		e.emit(andersen.Store(elem, e.Ident(rval)))

	case "copy":
		dst, dok := e.ident(common.Args[0])
		src, sok := e.ident(common.Args[1])
		if dok && sok {
			tmp := fmt.Sprintf("%s[*]", dst)
			e.emit(andersen.Load(src, tmp))
			e.emit(andersen.Store(tmp, dst))
		}

	case "recover":
		if rval != nil {
			e.emit(andersen.Simple{Sub: PanicVar, Super: e.Ident(rval)})
		}

	case "ssa:wrapnilchk":
		e.simple(common.Args[0], rval)
	}
}

func (e *Extractor) call(call ssa.CallInstruction) {
	common := call.Common()

	switch {
	case common.IsInvoke():
		// Dynamically dispatched.

	case isBuiltin(common.Value):
		e.builtin(call)

	default:
		if callee := common.StaticCallee(); callee != nil {
			e.bind(callee, common.Args, call.Value())
		}
	}
}

func isBuiltin(v ssa.Value) bool {
	_, ok := v.(*ssa.Builtin)
	return ok
}

func (e *Extractor) processFunc(fun *ssa.Function) {
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			switch t := insn.(type) {
			case ssa.CallInstruction:
				e.call(t)

			case *ssa.Alloc, *ssa.MakeSlice, *ssa.MakeMap, *ssa.MakeChan:
				e.alloc(t.(ssa.Value))

			case *ssa.MakeInterface:
				e.alloc(t)
				e.store(t.X, t)

			case *ssa.MakeClosure:
				fn := t.Fn.(*ssa.Function)
				e.discover(fn)
				e.emit(andersen.Base{Super: e.Ident(t), Sub: e.Object(fn)})
				for i, b := range t.Bindings {
					e.simple(b, fn.FreeVars[i])
				}

			case *ssa.UnOp:
				switch t.Op {
				case token.MUL, token.ARROW:
					e.load(t.X, t)
				}

			case *ssa.FieldAddr:
				e.simple(t.X, t)
			case *ssa.IndexAddr:
				e.simple(t.X, t)
			case *ssa.Field:
				e.simple(t.X, t)
			case *ssa.Index:
				e.simple(t.X, t)
			case *ssa.Slice:
				e.simple(t.X, t)
			case *ssa.SliceToArrayPointer:
				e.simple(t.X, t)
			case *ssa.ChangeType:
				e.simple(t.X, t)
			case *ssa.ChangeInterface:
				e.simple(t.X, t)
			case *ssa.Convert:
				e.simple(t.X, t)
			case *ssa.Extract:
				e.simple(t.Tuple, t)
			case *ssa.Range:
				e.simple(t.X, t)

			case *ssa.Phi:
				for _, edge := range t.Edges {
					e.simple(edge, t)
				}

			case *ssa.Lookup:
				if _, isMap := t.X.Type().Underlying().(*types.Map); isMap {
					e.load(t.X, t)
				}

			case *ssa.TypeAssert:
				if _, isItf := t.AssertedType.Underlying().(*types.Interface); isItf {
					e.simple(t.X, t)
				} else {
					e.load(t.X, t)
				}

			case *ssa.Next:
				if !t.IsString {
					e.load(t.Iter, t)
				}

			case *ssa.Select:
				for _, st := range t.States {
					if st.Dir == types.RecvOnly {
						e.load(st.Chan, t)
					} else {
						e.store(st.Send, st.Chan)
					}
				}

			case *ssa.Store:
				e.store(t.Val, t.Addr)

			case *ssa.MapUpdate:
				e.store(t.Key, t.Map)
				e.store(t.Value, t.Map)

			case *ssa.Send:
				e.store(t.X, t.Chan)

			case *ssa.Return:
				for _, res := range t.Results {
					if sub, ok := e.ident(res); ok {
						e.emit(andersen.Simple{Sub: sub, Super: returnVar(fun)})
					}
				}

			case *ssa.Panic:
				if sub, ok := e.ident(t.X); ok {
					e.emit(andersen.Simple{Sub: sub, Super: PanicVar})
				}
			}
		}
	}
}
