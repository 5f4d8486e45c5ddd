package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mercator-hq/tripwire/pkg/eventlog"
)

// csvHeader is the fixed column set of a CSV export. Structured columns
// (snapshot, diff, meta) are JSON-encoded cells.
var csvHeader = []string{
	"id", "entity", "entity_id", "label", "policy", "op", "seq",
	"snapshot", "diff", "meta", "created_at",
}

// CSV writes the events as CSV with a header row.
func CSV(w io.Writer, events []*eventlog.Event) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, ev := range events {
		record, err := csvRecord(ev)
		if err != nil {
			return err
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRecord(ev *eventlog.Event) ([]string, error) {
	snapshot, err := jsonCell(ev.Snapshot)
	if err != nil {
		return nil, err
	}
	diff, err := jsonCell(ev.Diff)
	if err != nil {
		return nil, err
	}
	meta, err := jsonCell(ev.Meta)
	if err != nil {
		return nil, err
	}

	return []string{
		ev.ID,
		ev.Entity,
		ev.EntityID,
		ev.Label,
		ev.Policy,
		string(ev.Op),
		fmt.Sprintf("%d", ev.Seq),
		snapshot,
		diff,
		meta,
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func jsonCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case map[string]eventlog.FieldChange:
		if val == nil {
			return "", nil
		}
	case map[string]string:
		if val == nil {
			return "", nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}
