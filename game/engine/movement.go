package engine

import "fmt"

// Grid is the static part of the world: size, goal, penalty cells and rewards.
// It never changes during an episode, so Transition can take it by value.
type Grid struct {
	Size      int        `json:"size"`
	Goal      Position   `json:"goal"`
	Penalties []Position `json:"penalties"`
	Rewards   Rewards    `json:"rewards"`
}

// Start returns the fixed starting cell: bottom-left corner.
func (g Grid) Start() Position {
	return Position{Row: g.Size - 1, Col: 0}
}

// InBounds reports whether p lies on the grid
func (g Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.Size && p.Col >= 0 && p.Col < g.Size
}

// IsPenalty reports whether p is one of the penalty cells
func (g Grid) IsPenalty(p Position) bool {
	for _, pen := range g.Penalties {
		if pen == p {
			return true
		}
	}
	return false
}

// Spaces returns the action and observation spaces of the grid
func (g Grid) Spaces() (ActionSpace, ObservationSpace) {
	return ActionSpace{N: NumActions}, ObservationSpace{Low: 0, High: g.Size - 1, Shape: [1]int{2}}
}

// Reset returns the initial state of a fresh episode.
func (g Grid) Reset() (State, Info) {
	start := g.Start()
	return State{Agent: start}, g.info(start)
}

// Next applies the action table to p. The bool is false when the guard for
// the move fails, in which case p is returned unchanged.
func (g Grid) Next(p Position, a Action) (Position, bool) {
	switch a {
	case ActionUp:
		if p.Row > 0 {
			return Position{Row: p.Row - 1, Col: p.Col}, true
		}
	case ActionDown:
		if p.Row < g.Size-1 {
			return Position{Row: p.Row + 1, Col: p.Col}, true
		}
	case ActionRight:
		if p.Col < g.Size-1 {
			return Position{Row: p.Row, Col: p.Col + 1}, true
		}
	case ActionLeft:
		if p.Col > 0 {
			return Position{Row: p.Row, Col: p.Col - 1}, true
		}
	}
	return p, false
}

// Transition computes the successor of s under action a. It never mutates its
// inputs; callers own the state and thread it through successive calls.
func (g Grid) Transition(s State, a Action) (State, StepResult) {
	result := StepResult{
		Action: a,
		From:   s.Agent,
		To:     s.Agent,
	}

	if s.Terminated {
		result.Outcome = OutcomeAlreadyTerminated
		result.Return = s.Return
		result.Terminated = true
		result.Reason = s.Reason
		result.Info = g.info(s.Agent)
		result.Diagnostic = fmt.Sprintf("episode already terminated (%s); call reset before stepping", s.Reason)
		return s, result
	}

	next := s
	switch {
	case !a.Valid():
		result.Outcome = OutcomeInvalidAction
		result.Diagnostic = fmt.Sprintf("invalid action %d: select a number from 0 to %d", int(a), NumActions-1)
	default:
		pos, moved := g.Next(s.Agent, a)
		if moved {
			result.Outcome = OutcomeMoved
			next.Agent = pos
		} else {
			result.Outcome = OutcomeBlocked
		}
	}

	switch {
	case next.Agent == g.Goal:
		result.Reward = g.Rewards.Goal
		next.Terminated = true
		next.Reason = ReasonGoal
	case g.IsPenalty(next.Agent):
		result.Reward = g.Rewards.Penalty
		next.Terminated = true
		next.Reason = ReasonPenalty
	default:
		result.Reward = g.Rewards.Step
		next.Terminated = false
		next.Reason = ReasonNone
	}

	next.Return += result.Reward
	next.Steps++

	result.To = next.Agent
	result.Return = next.Return
	result.Terminated = next.Terminated
	result.Reason = next.Reason
	result.Info = g.info(next.Agent)
	return next, result
}

func (g Grid) info(p Position) Info {
	return Info{DistanceToGoal: EuclideanDistance(p, g.Goal)}
}

// localView3x3 renders the 3x3 neighbourhood around the agent. A is the agent,
// G the goal, X a penalty cell, . a free cell and # off-grid.
func (g Grid) localView3x3(agent Position) []string {
	lines := make([]string, 0, 3)
	for dr := -1; dr <= 1; dr++ {
		row := make([]byte, 0, 3)
		for dc := -1; dc <= 1; dc++ {
			p := Position{Row: agent.Row + dr, Col: agent.Col + dc}
			if dr == 0 && dc == 0 {
				row = append(row, 'A')
				continue
			}
			row = append(row, g.cellChar(p))
		}
		lines = append(lines, string(row))
	}
	return lines
}

func (g Grid) cellChar(p Position) byte {
	switch {
	case !g.InBounds(p):
		return '#'
	case p == g.Goal:
		return 'G'
	case g.IsPenalty(p):
		return 'X'
	default:
		return '.'
	}
}
