// Package pipeline derives the visible page of users from a list snapshot.
//
// Derive composes Filter, Sort and Paginate. Every stage is pure: it never
// mutates its input and returns a new slice, so the same snapshot and State
// always produce the same Page.
package pipeline
