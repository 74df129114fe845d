package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
	"github.com/wricardo/mcp-training/gridworld/game/service"
)

const instructions = `Grid World Environment - Complete Instructions

OBJECTIVE:
Move the agent from the start cell to the goal. The start cell is always the
bottom-left corner (row N-1, column 0) of an N x N grid.

ACTIONS:
• 0 = up    (row - 1)
• 1 = down  (row + 1)
• 2 = right (column + 1)
• 3 = left  (column - 1)
A move that would leave the grid is blocked: the agent stays put and the
step still counts. Any other action index is invalid: nothing moves, the
step reward is charged and a diagnostic is returned.

REWARDS (default table, configs may override it):
• Entering the goal:        +100, episode ends
• Entering a penalty cell:  -2, episode ends
• Any other step:           -0.05
The reward of a step is decided by the cell the agent ends up on, checked in
that order. The return reported after every step is the sum of all rewards
since the last reset.

EPISODES:
• An episode ends on the goal or on a penalty cell.
• Stepping after the end does nothing: reward 0, outcome already_terminated.
• reset_env (or reset=true on step/bulk_step) starts a new episode.

OBSERVATION:
The observation is the agent cell as (row, col). The info carries
distance_to_goal, the straight-line distance from the agent to the goal.

GRID LEGEND:
• A - Agent (current position)
• G - Goal
• X - Penalty cell
• . - Free cell
• # - Outside the grid (local 3x3 view only)

STRATEGY:
- Use describe_cell or the local 3x3 view before stepping next to an X.
- Every extra step costs 0.05, so the shortest safe path gives the best return.
- Use bulk_step once a route is planned; it stops as soon as the episode ends.

SESSION MANAGEMENT:
- Multiple sessions can run simultaneously, each with its own grid and episode.
- Each session has a unique 4-character ID.
- list_configs shows the grids available for create_session.`

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.Snapshot))
}

func formatSnapshot(s *engine.Snapshot) string {
	if s == nil {
		return "No snapshot available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Observation: %s | Return: %.2f | Steps: %d | Episode: %d | Distance to goal: %.2f\n\n",
		s.Agent, s.Return, s.Steps, s.Episode, s.Info.DistanceToGoal)

	if len(s.LocalView3x3) == 3 {
		b.WriteString("Local 3x3:\n")
		for _, line := range s.LocalView3x3 {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(engine.RenderASCII(s))

	if s.Terminated {
		switch s.Reason {
		case engine.ReasonGoal:
			b.WriteString("\n🎉 GOAL REACHED")
		case engine.ReasonPenalty:
			b.WriteString("\n💀 PENALTY CELL")
		default:
			b.WriteString("\nEPISODE OVER")
		}
	} else if pm := possibleMoves(s); len(pm) > 0 {
		b.WriteString("\nPossible moves: " + strings.Join(pm, ","))
	}

	if s.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", s.Message)
	}

	return b.String()
}

// possibleMoves lists the actions that are not blocked by the boundary,
// marking the ones that end the episode
func possibleMoves(s *engine.Snapshot) []string {
	g := engine.Grid{Size: s.GridSize, Goal: s.Goal, Penalties: s.Penalties}
	var moves []string
	for a := engine.ActionUp; a <= engine.ActionLeft; a++ {
		next, ok := g.Next(s.Agent, a)
		if !ok {
			continue
		}
		label := fmt.Sprintf("%d=%s", int(a), a)
		switch {
		case next == g.Goal:
			label += "(goal)"
		case g.IsPenalty(next):
			label += "(penalty)"
		}
		moves = append(moves, label)
	}
	return moves
}

func stepSummary(r engine.StepResult) string {
	line := fmt.Sprintf("%s %s→%s %s reward=%.2f return=%.2f",
		r.Action, r.From, r.To, r.Outcome, r.Reward, r.Return)
	if r.Terminated && r.Reason != engine.ReasonNone {
		line += " [" + string(r.Reason) + "]"
	}
	return line
}

func formatStepLine(idx int, r engine.StepResult) string {
	return fmt.Sprintf("%d. %s\n", idx, stepSummary(r))
}

func formatStepResponse(resp *service.StepResponse) string {
	var b strings.Builder
	r := resp.Result

	switch r.Outcome {
	case engine.OutcomeMoved:
		b.WriteString("✓ Moved\n")
	case engine.OutcomeBlocked:
		b.WriteString("✗ Blocked by the boundary\n")
	case engine.OutcomeInvalidAction:
		b.WriteString("✗ Invalid action\n")
	case engine.OutcomeAlreadyTerminated:
		b.WriteString("✗ Episode already over\n")
	}

	b.WriteString("Step: " + stepSummary(r) + "\n")
	if r.Diagnostic != "" {
		fmt.Fprintf(&b, "Diagnostic: %s\n", r.Diagnostic)
	}

	if len(resp.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range resp.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatSnapshot(resp.Snapshot))
	return b.String()
}

func formatBulkStepResult(sessionID string, result *service.BulkStepResult) string {
	var b strings.Builder

	configName := ""
	gridSize := 0
	if result.Snapshot != nil {
		configName = result.Snapshot.ConfigName
		gridSize = result.Snapshot.GridSize
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s • Grid: %dx%d\n", sessionID, configName, gridSize, gridSize)

	fmt.Fprintf(&b, "Executed %d/%d steps", result.StepsExecuted, result.RequestedSteps)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Return: %.2f → %.2f (%+.2f)\n", result.StartReturn, result.EndReturn, result.ReturnDelta)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s", result.StoppedReason)
		if result.StoppedOnStep > 0 {
			fmt.Fprintf(&b, " on step %d", result.StoppedOnStep)
		}
		b.WriteString("\n")
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for i, s := range result.Steps {
			b.WriteString(formatStepLine(i+1, s))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step History (Page %d/%d), total across episodes: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		fmt.Fprintf(&b, "%d. [ep %d] %s %s→%s %s reward=%.2f return=%.2f\n",
			move.MoveNumber, move.Episode, move.Action, move.From, move.To, move.Outcome, move.Reward, move.Return)
	}

	return b.String()
}

func formatCurrentEpisode(s *engine.Snapshot) string {
	header := fmt.Sprintf("Current Episode %d, Steps: %d\n\n", s.Episode, s.CurrentMovesCount)
	if len(s.CurrentMoves) == 0 {
		return header + "(no steps in current episode)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, move := range s.CurrentMoves {
		fmt.Fprintf(&b, "%d. %s %s→%s %s return=%.2f\n", i+1, move.Action, move.From, move.To, move.Outcome, move.Return)
	}
	return b.String()
}

func describeCell(s *engine.Snapshot, p engine.Position) (string, error) {
	g := engine.Grid{Size: s.GridSize, Goal: s.Goal, Penalties: s.Penalties}
	if !g.InBounds(p) {
		return "", fmt.Errorf("cell %s is out of bounds; grid is %dx%d (0-%d for row and col)",
			p, s.GridSize, s.GridSize, s.GridSize-1)
	}

	char, kind, note := ".", "Free", "Entering costs the step reward"
	switch {
	case p == s.Goal:
		char, kind, note = "G", "Goal", "Entering ends the episode with the goal reward"
	case g.IsPenalty(p):
		char, kind, note = "X", "Penalty", "Entering ends the episode with the penalty reward"
	}
	if p == s.Start {
		note += "; this is the start cell"
	}
	if p == s.Agent {
		char = "A"
		note += "; the agent is here"
	}

	return fmt.Sprintf(`Cell %s:
━━━━━━━━━━━━━━━━━━━━━━━━
Character: %s
Type: %s
Terminal: %v
Distance to goal: %.2f
Manhattan distance from agent: %d
Note: %s`,
		p, char, kind,
		p == s.Goal || g.IsPenalty(p),
		engine.EuclideanDistance(p, s.Goal),
		engine.ManhattanDistance(s.Agent, p),
		note), nil
}
