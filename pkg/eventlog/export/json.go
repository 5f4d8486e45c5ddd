package export

import (
	"encoding/json"
	"io"

	"mercator-hq/tripwire/pkg/eventlog"
)

// JSON writes the events as an indented JSON array.
func JSON(w io.Writer, events []*eventlog.Event) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if events == nil {
		events = []*eventlog.Event{}
	}
	return enc.Encode(events)
}
