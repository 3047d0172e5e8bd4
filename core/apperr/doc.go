// Package apperr defines the error taxonomy used across the service.
//
// Errors are classified into kinds that map directly onto the behavior the
// HTTP layer must exhibit:
//
//   - NotFound, Conflict, Forbidden, InvalidInput: client-visible, returned
//     with their detail message and the matching 4xx status.
//   - Unavailable: an external collaborator failed; callers that only need
//     the collaborator for attribution degrade instead of failing.
//   - PartialReplication: the authoritative write landed but a mirror or
//     index step did not. Logged and left for the reconciliation scanner;
//     never retried synchronously, never rolled back.
//   - Internal: everything else. Detail is logged server-side and suppressed
//     from responses outside the development environment.
//
// Errors wrap their cause, so errors.Is / errors.As keep working through
// the classification.
package apperr
