package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateStage is returned by Register when a stage name is already
// taken.
var ErrDuplicateStage = errors.New("duplicate stage name")

// UnknownStageError is returned when a requested stage name does not exist
// in the registry. This is a configuration error, not a runtime one.
type UnknownStageError struct {
	Name string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Name)
}

// UnknownDependencyError is returned by Validate when a stage depends on a
// name that was never registered.
type UnknownDependencyError struct {
	Stage      string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("stage %q depends on unknown stage %q", e.Stage, e.Dependency)
}

// CycleError is returned when the dependency graph contains a cycle. A
// cycle is a programming error in the registry definition: always fatal,
// never retried.
type CycleError struct {
	Stages []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among stages: %s", strings.Join(e.Stages, ", "))
}

// Registry is the ordered collection of known stages. Declaration order is
// significant: it breaks ties among independent stages during resolution,
// keeping execution order reproducible across runs.
type Registry struct {
	order  []Stage
	byName map[string]Stage
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Stage)}
}

// Register adds a stage. Dependency references are checked later by
// Validate, so registration order does not have to be
// dependency-respecting.
func (r *Registry) Register(s Stage) error {
	name := s.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, name)
	}
	r.byName[name] = s
	r.order = append(r.order, s)
	return nil
}

// Validate checks every dependency edge: all references must resolve and
// the graph must be acyclic.
func (r *Registry) Validate() error {
	for _, s := range r.order {
		for _, dep := range s.DependsOn() {
			if _, ok := r.byName[dep]; !ok {
				return &UnknownDependencyError{Stage: s.Name(), Dependency: dep}
			}
		}
	}
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	_, err := r.sort(names)
	return err
}

// Stages returns the registered stages in declaration order.
func (r *Registry) Stages() []Stage {
	out := make([]Stage, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the registered stage names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	return names
}

// Lookup returns the named stage.
func (r *Registry) Lookup(name string) (Stage, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// ResolveOrder expands requested to its transitive dependency closure and
// returns it topologically sorted. Ties among independent stages break by
// declaration order, so repeated calls with the same request produce the
// same sequence.
func (r *Registry) ResolveOrder(requested []string) ([]Stage, error) {
	closure := make(map[string]bool)
	var expand func(name string) error
	expand = func(name string) error {
		s, ok := r.byName[name]
		if !ok {
			return &UnknownStageError{Name: name}
		}
		if closure[name] {
			return nil
		}
		closure[name] = true
		for _, dep := range s.DependsOn() {
			if _, ok := r.byName[dep]; !ok {
				return &UnknownDependencyError{Stage: name, Dependency: dep}
			}
			if err := expand(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range requested {
		if err := expand(name); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(closure))
	for _, s := range r.order {
		if closure[s.Name()] {
			names = append(names, s.Name())
		}
	}
	return r.sort(names)
}

// sort is Kahn's algorithm over the given names, always emitting the
// earliest-declared ready stage first.
func (r *Registry) sort(names []string) ([]Stage, error) {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	indegree := make(map[string]int, len(names))
	for _, n := range names {
		for _, dep := range r.byName[n].DependsOn() {
			if inSet[dep] {
				indegree[n]++
			}
		}
	}

	var sorted []Stage
	emitted := make(map[string]bool, len(names))
	for len(sorted) < len(names) {
		progressed := false
		for _, n := range names {
			if emitted[n] || indegree[n] != 0 {
				continue
			}
			emitted[n] = true
			sorted = append(sorted, r.byName[n])
			for _, m := range names {
				if emitted[m] {
					continue
				}
				for _, dep := range r.byName[m].DependsOn() {
					if dep == n {
						indegree[m]--
					}
				}
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, n := range names {
				if !emitted[n] {
					stuck = append(stuck, n)
				}
			}
			return nil, &CycleError{Stages: stuck}
		}
	}
	return sorted, nil
}
