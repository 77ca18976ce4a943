// Package workspace manages the per-job working directories that repositories
// are cloned into, and sweeps up directories left behind by crashed runs.
package workspace
