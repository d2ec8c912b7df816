package instrument

import (
	"regexp"
	"strings"

	"storefront/beacon/pkg/telemetry/metrics"
)

const (
	// MaxRouteLength is the longest route label produced for REST paths.
	MaxRouteLength = 100

	// UnknownRoute is used when normalisation leaves nothing behind.
	UnknownRoute = "/unknown"

	// GraphQLRoute is the route of GraphQL requests without an operation name.
	GraphQLRoute = "/graphql"

	apiPrefix = "/api"
)

// numericSegment matches a slash followed by one or more digits.
var numericSegment = regexp.MustCompile(`/\d+`)

// NormalizeRestPath maps a raw request path to a route label. The query
// string is dropped, numeric segments become /:id, a leading "/api" is
// removed as a plain string prefix and the result is capped at MaxRouteLength characters.
//
//	NormalizeRestPath("/api/products/12345?sort=asc") // "/products/:id"
func NormalizeRestPath(rawPath string) string {
	path := rawPath
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	path = numericSegment.ReplaceAllString(path, "/:id")

	path = strings.TrimPrefix(path, apiPrefix)

	path = metrics.TruncateRunes(path, MaxRouteLength)
	if path == "" {
		return UnknownRoute
	}
	return path
}

// NormalizeGraphQLRoute returns the route of a GraphQL request. Requests
// carrying an operation name get one route per operation.
func NormalizeGraphQLRoute(operationName string) string {
	if operationName == "" {
		return GraphQLRoute
	}
	return GraphQLRoute + "/" + operationName
}

// NormalizeRoute picks GraphQL normalisation when rawPath mentions /graphql
// anywhere and REST normalisation otherwise.
func NormalizeRoute(rawPath, operationName string) string {
	if strings.Contains(rawPath, GraphQLRoute) {
		return NormalizeGraphQLRoute(operationName)
	}
	return NormalizeRestPath(rawPath)
}
