// Package api implements the HTTP surface of storelens.
//
// New(opts) returns an http.Handler (a chi router) that serves:
//
//	GET  /                — upload form
//	POST /analyze         — multipart orders + inventory; HTML report,
//	                        or ?format=json / ?format=pdf
//	POST /api/v1/analyze  — same input, JSON report
//	GET  /api/v1/health   — {"status":"ok"}
//	GET  /metrics         — Prometheus exposition
//
// Failed analyses map to a status by error kind: schema and upload
// problems give 400, a zero denominator gives 422, anything else 500.
// JSON errors carry {"error", "code"}; the form route answers in plain text.
package api
