// Package shared holds code used across packages that belongs to no single
// layer. Today that is the testutil subpackage: a slog capture handler for
// asserting on log output, and fixtures that write admissions datasets to
// temporary directories.
package shared
