// Package export renders event-log query results as JSON or CSV for
// offline analysis and compliance hand-off.
package export
