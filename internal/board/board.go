package board

import "time"

type NodeType string

const (
	NodeStart     NodeType = "start"
	NodeProperty  NodeType = "property"
	NodeChallenge NodeType = "challenge"
	NodeChance    NodeType = "chance"
	NodeSpecial   NodeType = "special"
	NodeShortcut  NodeType = "shortcut"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeStart, NodeProperty, NodeChallenge, NodeChance, NodeSpecial, NodeShortcut:
		return true
	}
	return false
}

type EdgeType string

const (
	EdgeNormal      EdgeType = "normal"
	EdgeShortcut    EdgeType = "shortcut"
	EdgeBranch      EdgeType = "branch"
	EdgeConditional EdgeType = "conditional"
)

func (t EdgeType) Valid() bool {
	switch t {
	case EdgeNormal, EdgeShortcut, EdgeBranch, EdgeConditional:
		return true
	}
	return false
}

// Board is a named game map. The topology lives in its nodes and edges.
type Board struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartNode  string    `json:"startNode"`
	MaxPlayers int       `json:"maxPlayers"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Node struct {
	BoardID     string     `json:"boardId"`
	NodeID      string     `json:"nodeId"`
	Name        string     `json:"name"`
	Type        NodeType   `json:"type"`
	Description string     `json:"description,omitempty"`
	Challenge   *Challenge `json:"challenge,omitempty"`
	Chance      *Chance    `json:"chance,omitempty"`
	Shortcut    *Shortcut  `json:"shortcut,omitempty"`
	Property    *Property  `json:"property,omitempty"`
}

type Challenge struct {
	Type    string `json:"type"` // vocabulary, culture, story, action, train
	Title   string `json:"title"`
	Content string `json:"content"`
	Reward  string `json:"reward"`
}

type Chance struct {
	Type    string `json:"type"` // positive, negative, neutral
	Title   string `json:"title"`
	Content string `json:"content"`
	Effect  string `json:"effect"`
}

type Shortcut struct {
	Target      string `json:"target"`
	Description string `json:"description"`
}

type Property struct {
	Price *int   `json:"price,omitempty"`
	Rent  *int   `json:"rent,omitempty"`
	Color string `json:"color,omitempty"`
}

// Edge is a directed, typed connection between two nodes of one board.
// Seq is the storage order; stores return edges sorted by it.
type Edge struct {
	ID        string     `json:"id"`
	BoardID   string     `json:"boardId"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Type      EdgeType   `json:"type"`
	Condition *Condition `json:"condition,omitempty"`
	Seq       int64      `json:"seq"`
}

type Condition struct {
	RequiredChallenge string `json:"requiredChallenge,omitempty"`
	RequiredItem      string `json:"requiredItem,omitempty"`
}

// Route is the outcome of walking a board: the node landed on and every node
// visited on the way, start included.
type Route struct {
	EndNode string   `json:"newPosition"`
	Path    []string `json:"path"`
}

type MoveResult struct {
	NewPosition     string   `json:"newPosition"`
	Path            []string `json:"path"`
	PositionInfo    *Node    `json:"positionInfo"`
	PassedStart     bool     `json:"passedStart"`
	RoundCompleted  bool     `json:"roundCompleted"`
	CanUseShortcut  bool     `json:"canUseShortcut"`
	AlternativePath *Route   `json:"alternativePath,omitempty"`
}

type MapInfo struct {
	Board Board  `json:"board"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
