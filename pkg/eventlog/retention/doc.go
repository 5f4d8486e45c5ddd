// Package retention prunes the event log by age and by total count, either
// on demand or on a cron schedule. Pruning is the only path that removes
// events; the engine itself never deletes.
package retention
