// Package fusionsolar is a client for the Huawei FusionSolar northbound API.
//
// Client speaks the wire protocol: session login, XSRF token handling,
// retries and the response envelope. Every data endpoint goes through the
// Fetcher interface so that CachedFetcher can serve repeated requests from
// the response cache. API exposes the typed endpoints on top of a Fetcher.
package fusionsolar
