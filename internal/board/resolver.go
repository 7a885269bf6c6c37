package board

import "strings"

const (
	// BranchLanePrefix marks the targets of conditional edges that leave the
	// regular loop for the inner lane.
	BranchLanePrefix = "D"

	// RailwayWaypoint is the forced first hop of an alternate route.
	RailwayWaypoint = "D5"
)

// SelectNextEdge picks the edge a walker follows out of a node. Precedence:
//
//  1. the first normal edge
//  2. the first conditional edge whose target is not on the branch lane
//  3. the first conditional edge
//  4. the first edge in stored order
//
// It reports false when candidates is empty.
func SelectNextEdge(candidates []Edge) (Edge, bool) {
	if len(candidates) == 0 {
		return Edge{}, false
	}

	for _, e := range candidates {
		if e.Type == EdgeNormal {
			return e, true
		}
	}

	firstConditional := -1
	for i, e := range candidates {
		if e.Type != EdgeConditional {
			continue
		}
		if !strings.HasPrefix(e.To, BranchLanePrefix) {
			return e, true
		}
		if firstConditional == -1 {
			firstConditional = i
		}
	}
	if firstConditional != -1 {
		return candidates[firstConditional], true
	}

	return candidates[0], true
}

// outgoingIndex groups edges by source node, keeping stored order.
func outgoingIndex(edges []Edge) map[string][]Edge {
	idx := make(map[string][]Edge)
	for _, e := range edges {
		idx[e.From] = append(idx[e.From], e)
	}
	return idx
}

// MaxSteps caps a single walk. Dice rolls stay far below it.
const MaxSteps = 100

// ResolveMove walks steps edges from start. A node without outgoing edges
// fails the whole walk with *NoOutgoingEdgeError.
func ResolveMove(edges []Edge, start string, steps int) (Route, error) {
	if steps < 1 || steps > MaxSteps {
		return Route{}, invalidArgument("steps must be between 1 and %d, got %d", MaxSteps, steps)
	}
	if start == "" {
		return Route{}, invalidArgument("start node is required")
	}

	idx := outgoingIndex(edges)
	current := start
	path := []string{start}

	for range steps {
		next, ok := SelectNextEdge(idx[current])
		if !ok {
			return Route{}, &NoOutgoingEdgeError{Node: current}
		}
		current = next.To
		path = append(path, current)
	}

	return Route{EndNode: current, Path: path}, nil
}

// ResolveAlternateMove computes the railway route: the first hop must go to
// RailwayWaypoint, every later hop takes the first outgoing edge regardless of
// type. A dead end stops the walk early. It reports false when start has no
// edge to the way-point.
func ResolveAlternateMove(edges []Edge, start string, steps int) (*Route, bool) {
	if steps < 1 || steps > MaxSteps {
		return nil, false
	}

	hasWaypointEdge := false
	for _, e := range edges {
		if e.From == start && e.To == RailwayWaypoint {
			hasWaypointEdge = true
			break
		}
	}
	if !hasWaypointEdge {
		return nil, false
	}

	idx := outgoingIndex(edges)
	current := RailwayWaypoint
	path := []string{start, current}

	for range steps - 1 {
		out := idx[current]
		if len(out) == 0 {
			break
		}
		current = out[0].To
		path = append(path, current)
	}

	return &Route{EndNode: current, Path: path}, true
}

// PassedStart reports whether startNode appears anywhere in path after its
// first element.
func PassedStart(path []string, startNode string) bool {
	if startNode == "" {
		return false
	}
	for i := 1; i < len(path); i++ {
		if path[i] == startNode {
			return true
		}
	}
	return false
}

// CanUseShortcut reports whether any shortcut edge targets node.
func CanUseShortcut(edges []Edge, node string) bool {
	for _, e := range edges {
		if e.Type == EdgeShortcut && e.To == node {
			return true
		}
	}
	return false
}
