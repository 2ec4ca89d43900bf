package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kazz187/agentboard/pkg/cerr"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid transition")

// Graph is an immutable edge set over the pipeline statuses.
type Graph struct {
	edges map[Status][]Status
}

// Linear is the default edge set: each status may only advance to the next
// one in pipeline order.
func Linear() *Graph {
	edges := make(map[Status][]Status, len(ordered))
	for i := 0; i < len(ordered)-1; i++ {
		edges[ordered[i]] = []Status{ordered[i+1]}
	}
	return &Graph{edges: edges}
}

func NewGraph(edges map[Status][]Status) (*Graph, error) {
	g := &Graph{edges: make(map[Status][]Status, len(edges))}
	for from, tos := range edges {
		if !from.Valid() {
			return nil, fmt.Errorf("unknown status %q", from)
		}
		for _, to := range tos {
			if !to.Valid() {
				return nil, fmt.Errorf("unknown status %q in transitions of %s", to, from)
			}
			if to == from {
				return nil, fmt.Errorf("self transition on %s", from)
			}
			if !slices.Contains(g.edges[from], to) {
				g.edges[from] = append(g.edges[from], to)
			}
		}
	}
	return g, nil
}

// Edges returns a copy of the edge set.
func (g *Graph) Edges() map[Status][]Status {
	out := make(map[Status][]Status, len(g.edges))
	for k, v := range g.edges {
		out[k] = slices.Clone(v)
	}
	return out
}

func (g *Graph) Allowed(from, to Status) bool {
	return slices.Contains(g.edges[from], to)
}

// Validate returns an InvalidArgument error wrapping ErrInvalidTransition
// when to is not directly reachable from from.
func (g *Graph) Validate(from, to Status) error {
	if !to.Valid() {
		return cerr.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if !g.Allowed(from, to) {
		return invalidTransition(from, to)
	}
	return nil
}

// Path returns the shortest sequence of statuses leading from from to to,
// excluding from itself. from == to yields an empty path.
func (g *Graph) Path(from, to Status) ([]Status, error) {
	if !to.Valid() {
		return nil, cerr.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if from == to {
		return nil, nil
	}
	prev := map[Status]Status{from: ""}
	queue := []Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []Status
				for s := to; s != from; s = prev[s] {
					path = append(path, s)
				}
				slices.Reverse(path)
				return path, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, invalidTransition(from, to)
}

func invalidTransition(from, to Status) error {
	return cerr.NewError(cerr.InvalidArgument,
		fmt.Sprintf("cannot move task from %s to %s", from, to),
		fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition))
}
