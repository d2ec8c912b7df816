package instrument

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// graphQLRequest is the subset of a GraphQL-over-HTTP request body needed
// to find the operation name.
type graphQLRequest struct {
	OperationName string `json:"operationName"`
	Query         string `json:"query"`
}

// operationFromRequest finds the GraphQL operation name of r when no
// operation header was sent. GET requests carry it in the query string;
// other methods in a JSON body, of which at most limit bytes are inspected.
// The body is restored so the handler sees it unchanged.
func operationFromRequest(r *http.Request, limit int) string {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		if name := q.Get("operationName"); name != "" {
			return name
		}
		return operationFromQuery(q.Get("query"))
	}

	if r.Body == nil || r.Body == http.NoBody || limit <= 0 {
		return ""
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)))
	r.Body = restoredBody{
		Reader: io.MultiReader(bytes.NewReader(head), r.Body),
		Closer: r.Body,
	}
	if err != nil {
		return ""
	}

	var req graphQLRequest
	if err := json.Unmarshal(head, &req); err != nil {
		return ""
	}
	if req.OperationName != "" {
		return req.OperationName
	}
	return operationFromQuery(req.Query)
}

// operationFromQuery returns the name of the first named operation in a
// GraphQL document.
func operationFromQuery(query string) string {
	if query == "" {
		return ""
	}
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return ""
	}
	for _, op := range doc.Operations {
		if op.Name != "" {
			return op.Name
		}
	}
	return ""
}

type restoredBody struct {
	io.Reader
	io.Closer
}
