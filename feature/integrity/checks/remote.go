package checks

import (
	"context"
	"fmt"

	"schema-manager/core/schema"
)

// Remote is the part of the PocketBase client the remote check needs.
type Remote interface {
	Authenticate(ctx context.Context) error
	ListCollections(ctx context.Context) ([]schema.Collection, error)
}

// RemoteReport is the result of a remote check.
type RemoteReport struct {
	Reachable   bool     `json:"reachable"`
	Collections int      `json:"collections"`
	Missing     []string `json:"missing"`
	Error       string   `json:"error,omitempty"`
}

// CheckRemote authenticates, lists collections and reports which of the expected
// collections do not exist yet.
func CheckRemote(ctx context.Context, remote Remote, expected []string) (*RemoteReport, error) {
	report := &RemoteReport{Missing: []string{}}

	if err := remote.Authenticate(ctx); err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("remote authentication failed: %w", err)
	}

	all, err := remote.ListCollections(ctx)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	report.Reachable = true
	report.Collections = len(all)

	present := make(map[string]struct{}, len(all))
	for _, c := range all {
		present[c.Name] = struct{}{}
	}
	for _, name := range expected {
		if _, ok := present[name]; !ok {
			report.Missing = append(report.Missing, name)
		}
	}
	return report, nil
}
