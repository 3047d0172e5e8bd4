// Package jobs schedules background maintenance: the blob grace-period
// sweep and the orphan/duplicate scan. Jobs run behind panic recovery and
// structured logging; an overrunning job delays its next firing.
package jobs
