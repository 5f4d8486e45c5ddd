package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tripwire/pkg/eventlog"
	"mercator-hq/tripwire/pkg/eventlog/export"
	"mercator-hq/tripwire/pkg/eventlog/storage"
)

var eventsFlags struct {
	db       string
	entity   string
	entityID string
	label    string
	since    string
	until    string
	afterSeq uint64
	limit    int
	format   string
	output   string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query and export the audit event log",
	Long: `Query and export audit events recorded by the policy engine.

Events are stored in a SQLite database. Filters combine with AND; an
unset filter matches everything.`,
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events matching the filters",
	Long: `List events matching the filters as a table.

Examples:
  # All events for one entity
  tripwire events list --db events.db --entity order

  # One row's stream after a known sequence
  tripwire events list --db events.db --entity order --entity-id 42 --after-seq 10

  # A time window
  tripwire events list --db events.db --since 2026-08-01T00:00:00Z --until 2026-08-02T00:00:00Z`,
	RunE: listEvents,
}

var eventsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events as JSON or CSV",
	Long: `Export events matching the filters to a file or stdout.

Examples:
  # JSON to stdout
  tripwire events export --db events.db --entity order

  # CSV to a file
  tripwire events export --db events.db --format csv --output events.csv`,
	RunE: exportEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsExportCmd)

	eventsCmd.PersistentFlags().StringVar(&eventsFlags.db, "db", "data/events.db", "event database path")
	eventsCmd.PersistentFlags().StringVar(&eventsFlags.entity, "entity", "", "filter by entity name")
	eventsCmd.PersistentFlags().StringVar(&eventsFlags.entityID, "entity-id", "", "filter by row identity key")
	eventsCmd.PersistentFlags().StringVar(&eventsFlags.label, "label", "", "filter by event label")
	eventsCmd.PersistentFlags().StringVar(&eventsFlags.since, "since", "", "inclusive lower time bound (RFC3339)")
	eventsCmd.PersistentFlags().StringVar(&eventsFlags.until, "until", "", "exclusive upper time bound (RFC3339)")
	eventsCmd.PersistentFlags().Uint64Var(&eventsFlags.afterSeq, "after-seq", 0, "skip events with sequence <= N (requires --entity)")
	eventsCmd.PersistentFlags().IntVar(&eventsFlags.limit, "limit", 0, "maximum number of events (0 = no cap)")

	eventsExportCmd.Flags().StringVar(&eventsFlags.format, "format", "json", "export format: json, csv")
	eventsExportCmd.Flags().StringVarP(&eventsFlags.output, "output", "o", "", "output file (default: stdout)")
}

func buildQuery() (*eventlog.Query, error) {
	q := &eventlog.Query{
		Entity:   eventsFlags.entity,
		EntityID: eventsFlags.entityID,
		Label:    eventsFlags.label,
		AfterSeq: eventsFlags.afterSeq,
		Limit:    eventsFlags.limit,
	}

	if eventsFlags.since != "" {
		t, err := time.Parse(time.RFC3339, eventsFlags.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		q.Since = &t
	}
	if eventsFlags.until != "" {
		t, err := time.Parse(time.RFC3339, eventsFlags.until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		q.Until = &t
	}

	return q, nil
}

func queryEvents(cmd *cobra.Command) ([]*eventlog.Event, error) {
	q, err := buildQuery()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(eventsFlags.db); err != nil {
		return nil, fmt.Errorf("event database not found: %w", err)
	}

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: eventsFlags.db})
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}
	defer store.Close()

	return store.Query(cmd.Context(), q)
}

func listEvents(cmd *cobra.Command, args []string) error {
	events, err := queryEvents(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tENTITY\tID\tSEQ\tOP\tLABEL\tPOLICY")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			ev.CreatedAt.UTC().Format(time.RFC3339),
			ev.Entity,
			ev.EntityID,
			ev.Seq,
			ev.Op,
			ev.Label,
			ev.Policy,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d event(s)\n", len(events))
	return nil
}

func exportEvents(cmd *cobra.Command, args []string) error {
	events, err := queryEvents(cmd)
	if err != nil {
		return err
	}

	out := os.Stdout
	if eventsFlags.output != "" {
		f, err := os.Create(eventsFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch eventsFlags.format {
	case "json":
		err = export.JSON(out, events)
	case "csv":
		err = export.CSV(out, events)
	default:
		return fmt.Errorf("unknown format %q (expected json or csv)", eventsFlags.format)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if eventsFlags.output != "" {
		fmt.Printf("exported %d event(s) to %s\n", len(events), eventsFlags.output)
	}
	return nil
}
