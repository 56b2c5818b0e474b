// Package domain contains the core entities of the task tracker: the Task
// with its lifecycle state machine, the archival eligibility policy, and
// the User account model. Entities validate themselves and carry no
// persistence or transport concerns.
package domain
