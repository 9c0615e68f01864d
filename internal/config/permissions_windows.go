// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package config

// WarnInsecurePermissions is a no-op on Windows, where POSIX permission bits
// do not reflect the real ACLs.
func WarnInsecurePermissions(path string) {}
