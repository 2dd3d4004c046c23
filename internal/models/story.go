package models

import (
	"errors"
	"fmt"
	"time"
)

// Ограничения дерева по умолчанию.
const (
	DefaultMaxDepth   = 3
	DefaultMaxOptions = 2
)

// ErrInvalidTree возвращается ValidateTree при нарушении структуры истории.
var ErrInvalidTree = errors.New("invalid story tree")

// Story - одна сгенерированная история, привязанная к сессии.
type Story struct {
	ID        int64        `json:"id" db:"id"`
	Title     string       `json:"title" db:"title"`
	SessionID string       `json:"session_id" db:"session_id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	Nodes     []*StoryNode `json:"nodes,omitempty" db:"-"`
}

// StoryNode - один шаг истории. Концовка не имеет вариантов.
type StoryNode struct {
	ID              int64    `json:"id" db:"id"`
	StoryID         int64    `json:"story_id" db:"story_id"`
	Content         string   `json:"content" db:"content"`
	IsEnding        bool     `json:"is_ending" db:"is_ending"`
	IsWinningEnding bool     `json:"is_winning_ending" db:"is_winning_ending"`
	IsRoot          bool     `json:"is_root" db:"is_root"`
	Options         []Option `json:"options" db:"options"`
}

// Option - вариант выбора, ведущий к дочернему узлу. Порядок значим.
type Option struct {
	Text   string `json:"text"`
	NodeID int64  `json:"node_id"`
}

// Root возвращает корневой узел или nil, если узлы не загружены.
func (s *Story) Root() *StoryNode {
	for _, n := range s.Nodes {
		if n.IsRoot {
			return n
		}
	}
	return nil
}

// Node ищет узел истории по ID.
func (s *Story) Node(id int64) *StoryNode {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// ValidateTree проверяет, что узлы образуют корректное дерево:
// ровно один корень, глубина не больше maxDepth ребер, не больше maxOptions
// вариантов у узла, у концовок нет вариантов, все узлы достижимы из корня
// и ссылки указывают только на узлы этой истории.
func ValidateTree(nodes []*StoryNode, maxDepth, maxOptions int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%w: story has no nodes", ErrInvalidTree)
	}

	byID := make(map[int64]*StoryNode, len(nodes))
	var root *StoryNode
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidTree, n.ID)
		}
		byID[n.ID] = n
		if n.IsRoot {
			if root != nil {
				return fmt.Errorf("%w: more than one root (%d, %d)", ErrInvalidTree, root.ID, n.ID)
			}
			root = n
		}
	}
	if root == nil {
		return fmt.Errorf("%w: no root node", ErrInvalidTree)
	}

	type item struct {
		node  *StoryNode
		depth int
	}
	visited := map[int64]bool{root.ID: true}
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > maxDepth {
			return fmt.Errorf("%w: node %d at depth %d exceeds max depth %d", ErrInvalidTree, cur.node.ID, cur.depth, maxDepth)
		}
		if len(cur.node.Options) > maxOptions {
			return fmt.Errorf("%w: node %d has %d options, max %d", ErrInvalidTree, cur.node.ID, len(cur.node.Options), maxOptions)
		}
		if cur.node.IsEnding && len(cur.node.Options) > 0 {
			return fmt.Errorf("%w: ending node %d has options", ErrInvalidTree, cur.node.ID)
		}
		for _, opt := range cur.node.Options {
			child, ok := byID[opt.NodeID]
			if !ok {
				return fmt.Errorf("%w: node %d references unknown node %d", ErrInvalidTree, cur.node.ID, opt.NodeID)
			}
			if visited[child.ID] {
				return fmt.Errorf("%w: node %d is referenced more than once", ErrInvalidTree, child.ID)
			}
			visited[child.ID] = true
			queue = append(queue, item{child, cur.depth + 1})
		}
	}

	if len(visited) != len(nodes) {
		for _, n := range nodes {
			if !visited[n.ID] {
				return fmt.Errorf("%w: node %d is unreachable from root", ErrInvalidTree, n.ID)
			}
		}
	}
	return nil
}
