// Package source loads declarative policy definitions from YAML files,
// directories, or a Git repository, and turns them into registrable
// policies. It also provides a filesystem watcher so a running registry can
// be rebuilt when definitions change on disk.
//
// Declarative definitions cover the policy kinds that need no Go code:
// protect, append_only, read_only, soft_delete, versioned, fsm, and audit.
// Custom Transform functions must be registered programmatically.
package source
