/**
 * Package policy implements the error handling of Task, Parallel and Map
 * states: ErrorSet matching, Retry policies and Catch policies.
 * Retry wraps the raw operation, Catch wraps the retried operation, so a
 * catcher only sees errors the retriers gave up on.
 */
package policy
