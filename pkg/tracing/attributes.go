package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for geocoding operations
const (
	// External service attributes
	AttrServiceName      = "geocode.service.name"
	AttrServiceOperation = "geocode.service.operation"
	AttrServiceURL       = "geocode.service.url"

	// Cache attributes
	AttrCacheType = "geocode.cache.type"
	AttrCacheHit  = "geocode.cache.hit"
	AttrCacheKey  = "geocode.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "geocode.ratelimit.service"
	AttrRateLimitWaitMs  = "geocode.ratelimit.wait_ms"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Service names
const (
	ServiceNominatim = "nominatim"
)

// ServiceAttributes returns attributes for external service calls
func ServiceAttributes(service, operation, url string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrServiceOperation, operation),
		attribute.String(AttrServiceURL, url),
	}
}

// CacheAttributes returns attributes for cache operations
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
