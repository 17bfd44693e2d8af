// Package id generates 128-bit, lexicographically sortable identifiers.
// InSOC uses them as audit-trail keys: sorting the raw bytes sorts records
// by creation time, which makes range scans over the audit keyspace cheap.
package id
