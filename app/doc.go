// Package app assembles the planning service from configuration: the count
// source with its optional cache, the history loader, the planner and the
// consumers of published plans.
package app
