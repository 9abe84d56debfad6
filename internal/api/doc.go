// Package api provides the REST calls that bootstrap a push-feed session.
//
// REST endpoint:
//   - Production: https://api.kucoin.com
//
// Every response is wrapped in {code, msg, data}; code "200000" means
// success and anything else is returned as *APIError.
//
// Bootstrap:
//   - POST /api/v1/bullet-public  (unsigned)
//   - POST /api/v1/bullet-private (signed, see package auth)
package api
