// Package provider holds helpers shared by the concrete provider clients:
// HTTP status categorization and response previews for error context.
package provider

import (
	"net/http"

	"github.com/naturetrace/naturetrace-go/internal/errors"
)

// MaxPreviewLength limits response body excerpts attached to errors.
const MaxPreviewLength = 500

// StatusCategory maps an HTTP status code onto an error category.
// Auth failures are configuration problems (bad or missing API key),
// 429 is throttling, 404 a missing resource, 5xx a provider outage.
func StatusCategory(statusCode int) errors.ErrorCategory {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.CategoryConfiguration
	case statusCode == http.StatusTooManyRequests:
		return errors.CategoryRateLimit
	case statusCode == http.StatusNotFound:
		return errors.CategoryNotFound
	case statusCode >= 500:
		return errors.CategoryNetwork
	default:
		return errors.CategoryHTTP
	}
}

// Preview truncates a response body for safe inclusion in error context.
func Preview(body []byte) string {
	if len(body) > MaxPreviewLength {
		return string(body[:MaxPreviewLength]) + "..."
	}
	return string(body)
}
