package models

import (
	"errors"
	"fmt"
)

// ConditionNodeType discriminates the condition tree union.
type ConditionNodeType string

const (
	ConditionNodeLeaf ConditionNodeType = "condition"
	ConditionNodeAnd  ConditionNodeType = "and"
	ConditionNodeOr   ConditionNodeType = "or"
	ConditionNodeNot  ConditionNodeType = "not"
)

var (
	ErrInvalidConditionNodeType = errors.New("invalid condition node type")
	ErrEmptyConditionExpression = errors.New("condition expression is empty")
	ErrInvalidBlockArity        = errors.New("invalid condition block arity")
)

// ConditionNode is a node in a nested boolean condition tree. A leaf carries an
// expression string evaluated against the firing context; a block combines its
// children with AND, OR or NOT. Trees are immutable once attached to an
// automation and replaced wholesale on edit.
type ConditionNode struct {
	Type ConditionNodeType `json:"type"`

	// Expression is set for leaf nodes only.
	Expression string `json:"expression,omitempty"`

	// Conditions are set for block nodes only. NOT takes exactly one child,
	// AND and OR take one or more.
	Conditions []*ConditionNode `json:"conditions,omitempty"`
}

// Validate checks the structural invariants of the tree recursively.
func (n *ConditionNode) Validate() error {
	switch n.Type {
	case ConditionNodeLeaf:
		if n.Expression == "" {
			return ErrEmptyConditionExpression
		}

		if len(n.Conditions) != 0 {
			return fmt.Errorf("%w: leaf node carries %d children", ErrInvalidBlockArity, len(n.Conditions))
		}

		return nil
	case ConditionNodeNot:
		if len(n.Conditions) != 1 {
			return fmt.Errorf("%w: NOT block requires exactly one child, got %d", ErrInvalidBlockArity, len(n.Conditions))
		}
	case ConditionNodeAnd, ConditionNodeOr:
		if len(n.Conditions) == 0 {
			return fmt.Errorf("%w: %s block requires at least one child", ErrInvalidBlockArity, n.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidConditionNodeType, n.Type)
	}

	if n.Expression != "" {
		return fmt.Errorf("%w: %s block carries an expression", ErrInvalidBlockArity, n.Type)
	}

	for _, child := range n.Conditions {
		if err := child.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Leaf builds a leaf condition node.
func Leaf(expression string) *ConditionNode {
	return &ConditionNode{Type: ConditionNodeLeaf, Expression: expression}
}

// And builds an AND block.
func And(children ...*ConditionNode) *ConditionNode {
	return &ConditionNode{Type: ConditionNodeAnd, Conditions: children}
}

// Or builds an OR block.
func Or(children ...*ConditionNode) *ConditionNode {
	return &ConditionNode{Type: ConditionNodeOr, Conditions: children}
}

// Not builds a NOT block.
func Not(child *ConditionNode) *ConditionNode {
	return &ConditionNode{Type: ConditionNodeNot, Conditions: []*ConditionNode{child}}
}
