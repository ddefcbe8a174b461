package internal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Target registry errors.
var (
	ErrUnknownTarget   = errors.New("gatehouse: unknown target")
	ErrDuplicateTarget = errors.New("gatehouse: duplicate target")
)

// TargetKind is how a target string resolved.
type TargetKind int

const (
	KindCallable TargetKind = iota
	KindControllerMethod
	KindModuleMethod
)

func (k TargetKind) String() string {
	switch k {
	case KindCallable:
		return "callable"
	case KindControllerMethod:
		return "controller"
	case KindModuleMethod:
		return "module"
	default:
		return "unknown"
	}
}

// Capability marks which access rules a controller opts into.
type Capability uint8

const (
	// CapFront is a public controller.
	CapFront Capability = 1 << iota
	// CapBackend requires an authenticated session.
	CapBackend
	// CapAuthGated serves anonymous visitors only, e.g. the login page.
	CapAuthGated
	// CapAPI requires HTTP Basic credentials.
	CapAPI
)

// Category is the access rule the dispatcher applies to a target.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryFront
	CategoryBackend
	CategoryAuthGated
	CategoryAPI
	CategoryModule
)

func (c Category) String() string {
	switch c {
	case CategoryFront:
		return "front"
	case CategoryBackend:
		return "backend"
	case CategoryAuthGated:
		return "auth-gated"
	case CategoryAPI:
		return "api"
	case CategoryModule:
		return "module"
	default:
		return "unclassified"
	}
}

// Category resolves a capability set to a single category.
// Precedence: AuthGated, Backend, Front, API.
func (c Capability) Category() Category {
	switch {
	case c&CapAuthGated != 0:
		return CategoryAuthGated
	case c&CapBackend != 0:
		return CategoryBackend
	case c&CapFront != 0:
		return CategoryFront
	case c&CapAPI != 0:
		return CategoryAPI
	default:
		return CategoryUnclassified
	}
}

// Method is a controller method expression, e.g. (*Admin).Edit.
type Method[C any] func(ctrl C, c Context, args ...any) error

// Methods maps dispatchable method names to their implementations.
type Methods[C any] map[string]Method[C]

// controllerDef is a registered controller with its methods erased to any.
type controllerDef struct {
	factory func() any
	methods map[string]func(ctrl any, c Context, args ...any) error
	caps    Capability
}

// Targets holds every callable, controller and module controller that
// route entries may name.
type Targets struct {
	funcs       map[string]TargetFunc
	controllers map[string]*controllerDef
	modules     map[string]map[string]*controllerDef
	errs        []error
	mu          sync.RWMutex
}

// NewTargets creates an empty registry.
func NewTargets() *Targets {
	return &Targets{
		funcs:       make(map[string]TargetFunc),
		controllers: make(map[string]*controllerDef),
		modules:     make(map[string]map[string]*controllerDef),
	}
}

// Func registers a plain callable under name.
// A registered name always wins over controller resolution, even if it contains "@".
func (t *Targets) Func(name string, fn TargetFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.funcs[name]; ok || name == "" || fn == nil {
		t.errs = append(t.errs, fmt.Errorf("%w: func %q", ErrDuplicateTarget, name))
		return
	}
	t.funcs[name] = fn
}

// Controller registers an application controller.
// factory runs once per dispatched request, after the access check passed.
//
// Example:
//
//	gatehouse.Controller(targets, "Admin", gatehouse.CapBackend, NewAdmin, gatehouse.Methods[*Admin]{
//	    "index": (*Admin).Index,
//	    "edit":  (*Admin).Edit,
//	})
func Controller[C any](t *Targets, name string, caps Capability, factory func() C, methods Methods[C]) {
	def := newControllerDef(caps, factory, methods)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.controllers[name]; ok || name == "" {
		t.errs = append(t.errs, fmt.Errorf("%w: controller %q", ErrDuplicateTarget, name))
		return
	}
	t.controllers[name] = def
}

// ModuleController registers a controller that belongs to an installed module.
// Module targets skip the access check; a module guards its own methods.
func ModuleController[C any](t *Targets, module, name string, factory func() C, methods Methods[C]) {
	def := newControllerDef(0, factory, methods)

	t.mu.Lock()
	defer t.mu.Unlock()

	byName, ok := t.modules[module]
	if !ok {
		byName = make(map[string]*controllerDef)
		t.modules[module] = byName
	}
	if _, ok := byName[name]; ok || module == "" || name == "" {
		t.errs = append(t.errs, fmt.Errorf("%w: module controller %q::%q", ErrDuplicateTarget, module, name))
		return
	}
	byName[name] = def
}

func newControllerDef[C any](caps Capability, factory func() C, methods Methods[C]) *controllerDef {
	def := &controllerDef{
		caps:    caps,
		factory: func() any { return factory() },
		methods: make(map[string]func(any, Context, ...any) error, len(methods)),
	}
	for name, m := range methods {
		def.methods[name] = func(ctrl any, c Context, args ...any) error {
			return m(ctrl.(C), c, args...)
		}
	}
	return def
}

// Err reports registration errors collected so far.
func (t *Targets) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return errors.Join(t.errs...)
}

// Names lists every resolvable target string, sorted.
func (t *Targets) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var names []string
	for name := range t.funcs {
		names = append(names, name)
	}
	for ctrl, def := range t.controllers {
		for m := range def.methods {
			names = append(names, ctrl+"@"+m)
		}
	}
	for mod, byName := range t.modules {
		for ctrl, def := range byName {
			for m := range def.methods {
				names = append(names, mod+"::"+ctrl+"@"+m)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Resolved is a target string bound to its implementation.
type Resolved struct {
	fn         TargetFunc
	def        *controllerDef
	Target     string
	Module     string
	Controller string
	Method     string
	Kind       TargetKind
	Category   Category
}

// Invoke runs the target. Controllers are constructed here, never earlier.
func (r Resolved) Invoke(c Context, args ...any) error {
	if r.fn != nil {
		return r.fn(c, args...)
	}
	ctrl := r.def.factory()
	return r.def.methods[r.Method](ctrl, c, args...)
}

// Resolve binds a target string.
//
// Grammar, in order: a registered callable name; "module::Controller@method";
// "Controller@method".
func (t *Targets) Resolve(target string) (Resolved, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if fn, ok := t.funcs[target]; ok {
		return Resolved{fn: fn, Target: target, Kind: KindCallable, Category: CategoryFront}, nil
	}

	class, method, ok := strings.Cut(target, "@")
	if !ok || class == "" || method == "" {
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	if module, ctrl, isModule := strings.Cut(class, "::"); isModule {
		def := t.modules[module][ctrl]
		if def == nil || def.methods[method] == nil {
			return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
		}
		return Resolved{
			def:        def,
			Target:     target,
			Module:     module,
			Controller: ctrl,
			Method:     method,
			Kind:       KindModuleMethod,
			Category:   CategoryModule,
		}, nil
	}

	def := t.controllers[class]
	if def == nil || def.methods[method] == nil {
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return Resolved{
		def:        def,
		Target:     target,
		Controller: class,
		Method:     method,
		Kind:       KindControllerMethod,
		Category:   def.caps.Category(),
	}, nil
}
