// Package statemachine implements small finite-state machines whose state is
// persisted outside the process between steps.
//
// A Definition holds the transition table. It is built once at startup and
// shared. Each request restores a Machine at the persisted state with Start,
// fires one or more events and persists the resulting Current state.
//
//	const (
//	    Idle    = statemachine.StringState("idle")
//	    Running = statemachine.StringState("running")
//	    Start   = statemachine.StringEvent("start")
//	)
//
//	def := statemachine.MustNew(
//	    statemachine.WithTransition(Idle, Running, Start,
//	        statemachine.WithActions(notify),
//	    ),
//	)
//	m, _ := def.Start(Idle)
//	_ = m.Fire(ctx, Start, nil)
//
// Guards veto a transition based on runtime data. Actions run after guards
// pass and before the state changes; a failing action aborts the transition.
//
// Use IsNoTransitionAvailableError and IsTransitionRejectedError to tell
// "transition not defined" from "guard rejected".
package statemachine
