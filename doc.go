// Package auth is the identity layer of the chapter website backend. It covers
// credential verification, JWT issuance and verification, the role and
// capability model, fiber middleware for protected and public routes, and
// branch scoping for list queries.
//
// Strict and lenient paths:
//   - Verifier.Verify backs protected routes. Every call re-reads the account
//     behind the token, so deactivation and role/permission edits apply on the
//     very next request even though tokens cannot be revoked individually.
//   - Verifier.ResolveOptionalIdentity backs public list routes. It reports a
//     named outcome for every failure; OptionalAuth collapses failures to an
//     anonymous caller and ResolveBranchFilter narrows branch scoped roles to
//     their own branch regardless of the ?branch= query parameter.
//
// Branch slots:
//   - AssignBranchRoleHandler binds a chairperson or counsellor account to a
//     branch. The account write and the branch write share one transaction.
//
// Activity sinks:
//   - ActivitySink receives login, lifecycle, bootstrap and assignment events.
//     Sinks run best-effort (errors are logged) so auditing never blocks a
//     request.
package auth
