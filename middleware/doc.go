// Package middleware adapts guard authorization decisions to net/http
// handler chains for applications that serve their SPA shell from Go.
package middleware
