// Package quotaapi serves the quota ledger as an internal JSON API over chi.
//
// The API is meant for the build dispatcher and the billing webhook
// consumer, not for end users. It exposes every Ledger operation:
//
//	POST /v1/quota/{userID}/check               {"count": 2}
//	POST /v1/quota/{userID}/consume             {"count": 2}
//	POST /v1/quota/{userID}/refund              {"count": 2}
//	GET  /v1/wallets/{userID}
//	PUT  /v1/subscriptions/{userID}             {"plan": "pro", "expires_at": "..."}
//	POST /v1/subscriptions/{userID}/upgrade     {"plan": "team", "period": "monthly"}
//	POST /v1/subscriptions/{userID}/renew       {"period": "yearly"}
//	POST /v1/subscriptions/{userID}/downgrades  {"plan": "pro", "period": "monthly"}
//
// An omitted body or count on the quota routes means one build. Bodies are
// decoded strictly: unknown fields, trailing data and anything larger than
// MaxBodySize are rejected, and a Content-Type other than JSON gets 415.
//
// # Responses
//
// Every response is an Envelope with either data or error set:
//
//	{"data": {"success": true, "remaining": 4, "limit": 5, "used": 1}}
//	{"error": {"code": "invalid_argument", "message": "count out of range"}}
//
// Running out of quota is a successful consume call with "success": false
// and "reason": "insufficient_quota", so callers branch on the body rather
// than on the status. Errors map as follows:
//
//	invalid input        400 invalid_argument / bad_request
//	unknown wallet       404 wallet_not_found
//	lost race (retried)  409 concurrency_conflict
//	store failure        503 store_unavailable
//	deadline exceeded    504 timeout
//
// Server-side failures are logged with their cause and answered with a
// generic message; client errors carry the validation reason.
//
// # Usage
//
//	h := quotaapi.New(ledger, quotaapi.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//	h.Routes(r)
//
// Handler.Router returns a standalone router for tests and single-purpose
// binaries.
package quotaapi
