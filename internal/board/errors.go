package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("INVALID_ARGUMENT")
	ErrBoardNotFound   = errors.New("BOARD_NOT_FOUND: Board not found")
	ErrNodeNotFound    = errors.New("NODE_NOT_FOUND: Node not found")
	ErrEdgeNotFound    = errors.New("EDGE_NOT_FOUND: Edge not found")
	ErrNodeExists      = errors.New("NODE_EXISTS: Node id already exists on this board")
	ErrNoOutgoingEdge  = errors.New("NO_OUTGOING_EDGE")
)

// NoOutgoingEdgeError reports the node at which a walk got stuck. It means the
// board data is incomplete, not that the caller asked for something wrong.
type NoOutgoingEdgeError struct {
	Node string
}

func (e *NoOutgoingEdgeError) Error() string {
	return fmt.Sprintf("NO_OUTGOING_EDGE: No outgoing edge from node %q", e.Node)
}

func (e *NoOutgoingEdgeError) Unwrap() error {
	return ErrNoOutgoingEdge
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
