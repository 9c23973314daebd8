// Package session orchestrates one user's task-analysis workflow.
//
// A Session owns the local task buffer, resolves which task source feeds an
// analysis, enforces the single-request-in-flight rule and routes every
// outcome to the presenter or to a user-visible notice.
package session
