// Package services implements the HTTP side of lesson sync: a retrying request executor and the lesson endpoints built on it.
//
// # Request Executor
//
// [Client.Execute] sends one request and classifies the response into a [models.RequestOutcome]:
//   - 2xx : success
//   - 401 or an invalid-credential body : fatal, [shared.ErrInvalidCredentials], ends the run
//   - body {"errorType": "locked", "isLocked": <reason>} : retryable lock
//   - 429 : retryable, rate limited (longer base delay, honours Retry-After)
//   - 5xx : retryable, transient
//   - 404 : fatal for the item, [shared.ErrNotFound]
//   - other 4xx : fatal for the item, [shared.ErrRequestRejected]
//
// Retryable outcomes back off exponentially (base delay doubling per attempt) until MaxRetries
// attempts have been made, then fail with a [RequestError] wrapping [shared.ErrRetriesExhausted]
// and the sentinel of the last outcome. Every error carries a human-navigable URL of the resource.
//
// Authentication uses an [oauth2.Transport] with a static token of type "Token".
// All requests share one [rate.Limiter], so concurrent batches stay under the configured pace.
//
// # Endpoints
//
//   - [Client.FetchCollection] : follows "next" cursors until null and concatenates pages in order
//   - [Client.MovePosition] : PATCH {"position": n} for a single lesson
//   - [Client.PostLesson] : multipart lesson import with optional audio
//
// A 2xx body that does not decode into the expected shape is reported as [shared.ErrSchemaDrift].
package services
