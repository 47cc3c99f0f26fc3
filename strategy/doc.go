// Package strategy provides the built-in [actorsched.Strategy]
// implementations: an unfair random explorer, a fair depth-first
// backtracking explorer, priority-bounded and delay-bounded randomized
// explorers, a combo strategy chaining a bounded prefix strategy into an
// unbounded suffix strategy, and a deterministic replay strategy.
package strategy
