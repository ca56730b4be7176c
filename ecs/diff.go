package ecs

import "fmt"

// FieldDiff names one component field whose value disagreed between two
// snapshots of (nominally) the same frame.
type FieldDiff struct {
	Entity    ID
	Component string
	Field     string
	Want      int32
	Got       int32
}

func (d FieldDiff) String() string {
	return fmt.Sprintf("entity %d: %s.%s = %d, want %d", d.Entity, d.Component, d.Field, d.Got, d.Want)
}

// Diff compares two snapshots field by field and returns every disagreement,
// for desync diagnostics only — it is never on the hot simulation path.
// Nothing in the engine calls it automatically; its result is what
// consensusync.Tracker.RecordMismatchDiagnostic caches per (frame, peer).
func Diff(want, got Snapshot) []FieldDiff {
	gotByID := make(map[ID]SnapshotEntity, len(got.Entities))
	for _, se := range got.Entities {
		gotByID[se.ID] = se
	}

	var diffs []FieldDiff
	seen := make(map[ID]bool, len(want.Entities))
	for _, wse := range want.Entities {
		seen[wse.ID] = true
		gse, ok := gotByID[wse.ID]
		if !ok {
			diffs = append(diffs, FieldDiff{Entity: wse.ID, Component: "<entity>", Field: "presence", Want: 1, Got: 0})
			continue
		}
		for component, wantFields := range wse.Fields {
			gotFields := gse.Fields[component]
			for field, wantVal := range wantFields {
				gotVal := gotFields[field]
				if gotVal != wantVal {
					diffs = append(diffs, FieldDiff{
						Entity: wse.ID, Component: component, Field: field,
						Want: wantVal, Got: gotVal,
					})
				}
			}
		}
	}
	for id := range gotByID {
		if !seen[id] {
			diffs = append(diffs, FieldDiff{Entity: id, Component: "<entity>", Field: "presence", Want: 0, Got: 1})
		}
	}
	return diffs
}
