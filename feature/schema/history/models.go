package history

import (
	"encoding/json"
	"strings"
	"time"

	"schema-manager/core/reconcile"
	"schema-manager/core/schema/diff"
)

// Run is one persisted reconcile or ensure run.
type Run struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RunID      string    `gorm:"column:run_id;size:36;uniqueIndex;not null" json:"run_id"`
	Kind       string    `gorm:"column:kind;size:16;not null" json:"kind"`
	DryRun     bool      `gorm:"column:dry_run" json:"dry_run"`
	StartedAt  time.Time `gorm:"column:started_at;index" json:"started_at"`
	FinishedAt time.Time `gorm:"column:finished_at" json:"finished_at"`
	Total      int       `gorm:"column:total" json:"total"`
	Failed     int       `gorm:"column:failed" json:"failed"`

	Collections []RunCollection `gorm:"foreignKey:RunID;references:RunID" json:"collections,omitempty"`
}

// TableName overrides the table name.
func (Run) TableName() string {
	return "schema_runs"
}

// RunCollection is the outcome of one collection within a run.
type RunCollection struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RunID      string `gorm:"column:run_id;size:36;index;not null" json:"-"`
	Position   int    `gorm:"column:position" json:"position"`
	Collection string `gorm:"column:collection;size:255" json:"collection"`
	Status     string `gorm:"column:status;size:16" json:"status"`
	Sections   string `gorm:"column:sections;size:255" json:"sections,omitempty"`
	Changes    string `gorm:"column:changes;type:text" json:"changes,omitempty"` // JSON encoded []diff.Change
	StatusCode int    `gorm:"column:status_code" json:"status_code,omitempty"`
	Error      string `gorm:"column:error;type:text" json:"error,omitempty"`
}

// TableName overrides the table name.
func (RunCollection) TableName() string {
	return "schema_run_collections"
}

// FromReport converts a report into its persisted form.
func FromReport(report *reconcile.Report) Run {
	run := Run{
		RunID:      report.RunID,
		Kind:       report.Kind,
		DryRun:     report.DryRun,
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: report.FinishedAt.UTC(),
		Total:      len(report.Results),
		Failed:     report.Failed(),
	}
	for i, res := range report.Results {
		rc := RunCollection{
			RunID:      report.RunID,
			Position:   i,
			Collection: res.Collection,
			Status:     string(res.Status),
			Sections:   strings.Join(res.Sections, ","),
			StatusCode: res.StatusCode,
			Error:      res.Error,
		}
		if len(res.Changes) > 0 {
			if data, err := json.Marshal(res.Changes); err == nil {
				rc.Changes = string(data)
			}
		}
		run.Collections = append(run.Collections, rc)
	}
	return run
}

// Result converts a persisted collection outcome back to a reconcile.Result.
func (rc RunCollection) Result() reconcile.Result {
	res := reconcile.Result{
		Collection: rc.Collection,
		Status:     reconcile.Status(rc.Status),
		StatusCode: rc.StatusCode,
		Error:      rc.Error,
	}
	if rc.Sections != "" {
		res.Sections = strings.Split(rc.Sections, ",")
	}
	if rc.Changes != "" {
		var changes []diff.Change
		if err := json.Unmarshal([]byte(rc.Changes), &changes); err == nil {
			res.Changes = changes
		}
	}
	return res
}
