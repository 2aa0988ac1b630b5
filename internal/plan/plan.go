// Package plan collects generated SQL statements into an ordered,
// reversible execution plan. Operations that sequence multiple statements
// (enum reconciliation before CREATE TABLE, FK drops before column
// removal) record each step with its rollback counterpart so a plan can
// be printed, applied, or undone as a unit.
package plan

import "strings"

// Step is one statement of a plan, with an optional rollback statement
// and a human-readable note.
type Step struct {
	SQL      string
	Rollback string
	Note     string
}

// Plan is an ordered list of steps.
type Plan struct {
	Steps []Step
}

// Add appends a forward-only statement.
func (p *Plan) Add(sql string) {
	if sql = strings.TrimSpace(sql); sql == "" {
		return
	}
	p.Steps = append(p.Steps, Step{SQL: sql})
}

// AddWithRollback appends a statement paired with its undo statement.
func (p *Plan) AddWithRollback(sql, rollback string) {
	sql = strings.TrimSpace(sql)
	rollback = strings.TrimSpace(rollback)
	if sql == "" && rollback == "" {
		return
	}
	p.Steps = append(p.Steps, Step{SQL: sql, Rollback: rollback})
}

// AddNote appends an informational note carrying no SQL.
func (p *Plan) AddNote(note string) {
	if note = strings.TrimSpace(note); note == "" {
		return
	}
	p.Steps = append(p.Steps, Step{Note: note})
}

// Statements returns the forward statements in execution order.
func (p *Plan) Statements() []string {
	var out []string
	for _, s := range p.Steps {
		if s.SQL != "" {
			out = append(out, s.SQL)
		}
	}
	return out
}

// RollbackStatements returns the undo statements in reverse order, so the
// last applied step is undone first.
func (p *Plan) RollbackStatements() []string {
	var out []string
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if r := p.Steps[i].Rollback; r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Notes returns the informational notes in order.
func (p *Plan) Notes() []string {
	var out []string
	for _, s := range p.Steps {
		if s.Note != "" {
			out = append(out, s.Note)
		}
	}
	return out
}

// Empty reports whether the plan carries no statements.
func (p *Plan) Empty() bool {
	return len(p.Statements()) == 0
}
