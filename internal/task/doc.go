// Package task hosts the background maintenance scheduler and its event
// handlers. The scheduler wakes on a fixed interval, archives done tasks
// older than the retention window, and flags tasks that are due soon;
// exactly one tick runs at a time, and a failed tick never stops the loop.
package task
