package reconcile

import (
	"time"

	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"
)

// Status is the outcome of reconciling a single collection.
type Status string

const (
	// StatusCreated means the collection was absent and has been created.
	StatusCreated Status = "created"
	// StatusPatched means a non-empty patch was sent and accepted.
	StatusPatched Status = "patched"
	// StatusUpToDate means the remote already matched the target.
	StatusUpToDate Status = "up_to_date"
	// StatusFailed means the create or patch was rejected or could not be sent.
	StatusFailed Status = "failed"
	// StatusWouldCreate is the dry-run counterpart of StatusCreated.
	StatusWouldCreate Status = "would_create"
	// StatusWouldPatch is the dry-run counterpart of StatusPatched.
	StatusWouldPatch Status = "would_patch"
)

// Result is the reconciliation outcome for one collection.
type Result struct {
	// Collection is the target collection name.
	Collection string `json:"collection"`

	// Status is the outcome.
	Status Status `json:"status"`

	// Sections lists the patch sections that were (or would be) written.
	Sections []string `json:"sections,omitempty"`

	// Changes is the human-readable change summary.
	Changes []diff.Change `json:"changes,omitempty"`

	// StatusCode is the remote HTTP status of a failed write, if any.
	StatusCode int `json:"status_code,omitempty"`

	// Error holds the failure message.
	Error string `json:"error,omitempty"`
}

// Report is the outcome of one run, in target order.
type Report struct {
	// RunID identifies the run in logs and history.
	RunID string `json:"run_id"`

	// Kind is "reconcile" or "ensure".
	Kind string `json:"kind"`

	// DryRun is true when nothing was written.
	DryRun bool `json:"dry_run"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Results has one entry per target collection.
	Results []Result `json:"results"`
}

// Failed returns the number of failed collections.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Summary counts results per status.
func (r *Report) Summary() map[Status]int {
	out := make(map[Status]int)
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// ActionType is the write planned for a collection.
type ActionType string

const (
	// ActionCreate creates an absent collection from the full target body.
	ActionCreate ActionType = "create"
	// ActionPatch sends a sparse patch to an existing collection.
	ActionPatch ActionType = "patch"
	// ActionNone means the collection is already up to date.
	ActionNone ActionType = "none"
	// ActionFail means planning itself failed and nothing can be written.
	ActionFail ActionType = "fail"
)

// Action is the planned write for one collection.
type Action struct {
	// Type specifies the write to perform.
	Type ActionType `json:"type"`

	// Collection is the target collection name.
	Collection string `json:"collection"`

	// Target addresses the remote collection: its id when known, else its name.
	Target string `json:"target,omitempty"`

	// Body is the full target definition, set for ActionCreate.
	Body schema.Collection `json:"-"`

	// Patch is the sparse update, set for ActionPatch.
	Patch diff.Patch `json:"-"`

	// Changes is the change summary of the patch.
	Changes []diff.Change `json:"changes,omitempty"`

	// Reason explains ActionFail, or why a create follows a failed lookup.
	Reason string `json:"reason,omitempty"`
}

// Options controls reconcile behavior.
type Options struct {
	// DryRun prevents any write if true.
	DryRun bool

	// Reserved lists the field names that are never removed by omission.
	// If nil, diff.DefaultReserved is used.
	Reserved []string
}
