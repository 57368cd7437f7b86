// Package demo is a small garden-supply catalog used by the verdant
// command and its tests. It exercises every page kind, a redirecting
// route, and an API whose writes regenerate the affected pages.
package demo
