// Package engine provides the transition engine of the grid world environment.
//
// The engine package implements:
//   - A pure state-transition function over a 2D integer coordinate
//   - Boundary-clamped discrete moves (up, down, right, left)
//   - Goal and penalty termination with an accumulated episode return
//   - Environment configuration loading and validation (JSON or YAML)
//   - A mutable Environment wrapper with the standard reset/step interface
//
// Core Types:
//
// Grid is the static world (size, goal, penalty cells, rewards). State is the
// episode state a caller threads through Grid.Transition, which returns the
// successor state together with a StepResult tagged with an Outcome
// (moved, blocked, invalid_action, already_terminated). Environment keeps the
// state between calls for callers that prefer the familiar shape:
//
//	env, err := engine.NewEnvironment(6, engine.Position{Row: 0, Col: 4})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := env.AddPenaltyCell(engine.Position{Row: 2, Col: 2}); err != nil {
//		log.Fatal(err)
//	}
//
//	obs, info := env.Reset()
//	obs, ret, done, info := env.Step(int(engine.ActionUp))
//
// Rules:
//
// The agent starts in the bottom-left cell. Moves that would leave the grid
// are dropped. Entering the goal adds 100 and ends the episode, entering a
// penalty cell adds -2 and ends the episode, any other step adds -0.05. The
// reward returned by Step is the running total of the episode. Stepping a
// terminated episode leaves it unchanged until Reset is called.
package engine
