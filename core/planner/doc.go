// Package planner ties the history loader, forecast engine and fleet
// allocator together. A Planner turns a Request into a model.Plan and
// announces it on the event bus for metrics, journaling and publication.
package planner
