// Package planner computes reconciliation plans.
//
// Everything here is pure: Select narrows the desired set to the in-scope
// subset, and Build turns desired, selection, and a snapshot of existing
// submodules into an ordered Plan of add/update/remove operations. No
// repository state is touched; the engine's executor applies the plan.
package planner
