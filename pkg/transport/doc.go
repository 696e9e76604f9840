// Package transport serves the authorization API over HTTP.
//
// The adapter extracts the request signals the decision engine consumes
// (client IP from the trusted proxy headers, the Authorization header, the
// bypass token header, query parameter and path tail), maps the verdict to
// 200/401, and hosts the small administrative surface (/status, /reload,
// POST /user). Cross-cutting behavior (panic recovery, request IDs,
// structured request logging, metrics) is HTTP middleware.
package transport
