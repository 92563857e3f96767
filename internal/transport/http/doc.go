// Package http exposes the dashboard over HTTP. Handlers are thin: they
// bind and validate query parameters, call the dashboard service and
// render either a success envelope or an RFC 7807 problem document.
//
// Routes, relative to /api/v1:
//
//	GET  /correlation/selectors
//	GET  /correlation?start=&end=&codes=
//	GET  /stress/selectors
//	GET  /stress?date=&portfolios=&scenarios=
//	GET  /stress/comparison?date=&subject=
//	GET  /stress/history?scenario=&portfolios=
//	GET  /exposure/selectors
//	GET  /exposure?date=&portfolios=
//	GET  /exposure/comparison?date=&subject=
//	GET  /exposure/history?metric=&portfolios=
//	GET  /legend
//	GET  /workbooks
//	GET  /exports
//	GET  /exports/{kind}
//	POST /reload
//
// List parameters accept comma-separated or repeated values. An absent
// list does not filter; a present but empty list selects nothing.
package http
