package engine

import (
	"strings"

	"gonum.org/v1/gonum/floats"
)

// EuclideanDistance calculates the straight-line distance between two positions
func EuclideanDistance(from, to Position) float64 {
	return floats.Distance(
		[]float64{float64(from.Row), float64(from.Col)},
		[]float64{float64(to.Row), float64(to.Col)},
		2,
	)
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.Row-to.Row) + abs(from.Col-to.Col)
}

// ShortestPath finds a shortest action sequence from the start cell to the
// goal that never enters a penalty cell. The bool is false when the goal is
// unreachable.
func ShortestPath(g Grid) ([]Action, bool) {
	start := g.Start()
	if start == g.Goal {
		return []Action{}, true
	}

	type link struct {
		prev   Position
		action Action
	}
	visited := map[Position]link{start: {}}
	queue := []Position{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for a := ActionUp; a <= ActionLeft; a++ {
			next, moved := g.Next(cur, a)
			if !moved || g.IsPenalty(next) {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = link{prev: cur, action: a}
			if next != g.Goal {
				queue = append(queue, next)
				continue
			}

			var path []Action
			for p := next; p != start; p = visited[p].prev {
				path = append(path, visited[p].action)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}
	}

	return nil, false
}

// BestReturn is the return of an episode that follows a path of n steps and
// ends on the goal.
func BestReturn(r Rewards, n int) float64 {
	if n <= 0 {
		return 0
	}
	return r.Goal + r.Step*float64(n-1)
}

// RenderASCII draws the grid as text, one line per row. A is the agent,
// G the goal, X a penalty cell and . a free cell.
func RenderASCII(s *Snapshot) string {
	if s == nil {
		return ""
	}
	g := Grid{Size: s.GridSize, Goal: s.Goal, Penalties: s.Penalties}
	var b strings.Builder
	for r := 0; r < s.GridSize; r++ {
		for c := 0; c < s.GridSize; c++ {
			p := Position{Row: r, Col: c}
			if p == s.Agent {
				b.WriteByte('A')
				continue
			}
			b.WriteByte(g.cellChar(p))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
