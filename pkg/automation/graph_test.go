package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pubflow/pubflow/pkg/models"
)

func sequential(id, source, target string) *models.Automation {
	return &models.Automation{
		ID:                     id,
		ActionInstanceID:       target,
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &source,
	}
}

func TestBuildGraphSkipsRegularAndExcluded(t *testing.T) {
	automations := []*models.Automation{
		{ID: "r1", ActionInstanceID: "a", Event: models.EventPubEnteredStage},
		sequential("s1", "a", "b"),
		sequential("s2", "b", "c"),
	}

	g := buildGraph(automations, "s2")

	assert.Equal(t, []string{"b"}, g["a"])
	assert.Empty(t, g["b"])
}

func TestReachable(t *testing.T) {
	g := make(graph)
	g.addEdge("a", "b")
	g.addEdge("b", "c")
	g.addEdge("c", "d")

	assert.True(t, g.reachable("a", "d"))
	assert.True(t, g.reachable("b", "c"))
	assert.False(t, g.reachable("d", "a"))
	assert.False(t, g.reachable("c", "b"))

	// Trivially reachable from itself.
	assert.True(t, g.reachable("a", "a"))
}

func TestReachableDiamond(t *testing.T) {
	g := make(graph)
	g.addEdge("a", "b")
	g.addEdge("a", "c")
	g.addEdge("b", "d")
	g.addEdge("c", "d")

	assert.True(t, g.reachable("a", "d"))
	assert.False(t, g.reachable("b", "c"))
}

func TestLongestPath(t *testing.T) {
	tests := []struct {
		name     string
		edges    [][2]string
		expected int
	}{
		{
			name:     "empty graph",
			expected: 0,
		},
		{
			name:     "single edge",
			edges:    [][2]string{{"a", "b"}},
			expected: 1,
		},
		{
			name:     "chain of three edges",
			edges:    [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}},
			expected: 3,
		},
		{
			name:     "diamond counts longest branch",
			edges:    [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "e"}},
			expected: 3,
		},
		{
			name:     "disjoint chains",
			edges:    [][2]string{{"a", "b"}, {"x", "y"}, {"y", "z"}},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := make(graph)
			for _, edge := range tt.edges {
				g.addEdge(edge[0], edge[1])
			}

			assert.Equal(t, tt.expected, g.longestPath())
		})
	}
}
