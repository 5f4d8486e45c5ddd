// Package storage provides event log backends: an in-memory store for tests
// and embedded use, and a SQLite store for durable single-node deployments.
package storage
