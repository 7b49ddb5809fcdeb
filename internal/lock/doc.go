// Package lock serializes mutations that touch the same calendar date.
//
// Both implementations hand out a release function from Acquire. Callers
// must invoke it exactly once; extra calls are ignored.
package lock
