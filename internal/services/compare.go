package services

import "vulx/internal/models"

// ScanDiff classifies findings between an older and a newer scan.
type ScanDiff struct {
	OlderScanID        string           `json:"olderScanId"`
	NewerScanID        string           `json:"newerScanId"`
	NewFindings        []models.Finding `json:"newFindings"`
	ResolvedFindings   []models.Finding `json:"resolvedFindings"`
	PersistingFindings []models.Finding `json:"persistingFindings"`
	Summary            DiffSummary      `json:"summary"`
}

type DiffSummary struct {
	New                int                     `json:"new"`
	Resolved           int                     `json:"resolved"`
	Persisting         int                     `json:"persisting"`
	NewBySeverity      map[models.Severity]int `json:"newBySeverity"`
	ResolvedBySeverity map[models.Severity]int `json:"resolvedBySeverity"`
}

// DiffFindings is an exact set difference on (type, endpoint, method).
// Every newer finding is either new or persisting; every older finding whose
// key is absent from the newer scan is resolved.
func DiffFindings(older, newer []models.Finding) ScanDiff {
	olderKeys := make(map[models.FindingKey]struct{}, len(older))
	for i := range older {
		olderKeys[older[i].Key()] = struct{}{}
	}
	newerKeys := make(map[models.FindingKey]struct{}, len(newer))
	for i := range newer {
		newerKeys[newer[i].Key()] = struct{}{}
	}

	diff := ScanDiff{
		NewFindings:        []models.Finding{},
		ResolvedFindings:   []models.Finding{},
		PersistingFindings: []models.Finding{},
		Summary: DiffSummary{
			NewBySeverity:      make(map[models.Severity]int),
			ResolvedBySeverity: make(map[models.Severity]int),
		},
	}

	for _, f := range newer {
		if _, ok := olderKeys[f.Key()]; ok {
			diff.PersistingFindings = append(diff.PersistingFindings, f)
			continue
		}
		diff.NewFindings = append(diff.NewFindings, f)
		diff.Summary.NewBySeverity[f.Severity]++
	}
	for _, f := range older {
		if _, ok := newerKeys[f.Key()]; ok {
			continue
		}
		diff.ResolvedFindings = append(diff.ResolvedFindings, f)
		diff.Summary.ResolvedBySeverity[f.Severity]++
	}

	models.SortFindings(diff.NewFindings)
	models.SortFindings(diff.ResolvedFindings)
	models.SortFindings(diff.PersistingFindings)

	diff.Summary.New = len(diff.NewFindings)
	diff.Summary.Resolved = len(diff.ResolvedFindings)
	diff.Summary.Persisting = len(diff.PersistingFindings)
	return diff
}
