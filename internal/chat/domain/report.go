package domain

import (
	"fmt"
	"strings"
)

// ReportAction what happened to an incident report
type ReportAction string

const (
	// ReportCreated report was filed
	ReportCreated ReportAction = "created"
	// ReportUpdated report was triaged or edited
	ReportUpdated ReportAction = "updated"
)

// ReportEvent incident report lifecycle notice consumed from the report workflow
type ReportEvent struct {
	ReportID   string       `json:"reportId"`
	Title      string       `json:"title"`
	Categories []string     `json:"categories"`
	Status     string       `json:"status"`
	Action     ReportAction `json:"action"`
}

// Validate check the event can be rendered
func (e ReportEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Msg: "report title is required"}
	}
	if e.Action != ReportCreated && e.Action != ReportUpdated {
		return &ValidationError{Msg: fmt.Sprintf("unknown report action %q", e.Action)}
	}
	return nil
}

// SystemText chat line announcing the report change
func (e ReportEvent) SystemText() string {
	return fmt.Sprintf("Case %s: %s has been %s. Status: %s",
		strings.Join(e.Categories, " || "), e.Title, e.Action, e.Status)
}
