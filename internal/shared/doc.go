// Package shared holds helpers used across packages. Its testutil
// subpackage captures slog output and writes fixture workbooks for tests.
package shared
