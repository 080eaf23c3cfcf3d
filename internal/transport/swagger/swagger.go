// Package swagger serves the OpenAPI document with a Swagger UI and checks
// incoming requests against it.
package swagger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler serves the Swagger UI pointed at specURL.
func Handler(specURL string) http.Handler {
	return httpSwagger.Handler(httpSwagger.URL(specURL))
}

// Spec is a loaded and validated OpenAPI document. Paths in the document are
// relative to prefix.
type Spec struct {
	Doc    *openapi3.T
	raw    []byte
	router routers.Router
	prefix string
}

func Load(ctx context.Context, path, prefix string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	// Route on paths alone; the prefix is stripped before lookup.
	routed := *doc
	routed.Servers = nil
	router, err := legacy.NewRouter(&routed)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return &Spec{Doc: doc, raw: raw, router: router, prefix: strings.TrimRight(prefix, "/")}, nil
}

func (s *Spec) ServeDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(s.raw)
}

// ValidateRequests rejects requests whose parameters or body do not match
// the document. Paths the document does not describe pass through.
func (s *Spec) ValidateRequests(log *slog.Logger) func(http.Handler) http.Handler {
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lookup := r.Clone(r.Context())
			lookup.URL = &url.URL{Path: strings.TrimPrefix(r.URL.Path, s.prefix), RawQuery: r.URL.RawQuery}

			route, pathParams, err := s.router.FindRoute(lookup)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    lookup,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				log.Warn("request does not match openapi document", "path", r.URL.Path, "error", err)
				status, body := internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed).ToHTTPResponse()
				writeJSON(w, status, body)
				return
			}
			// The validator may have consumed and replaced the body.
			r.Body = lookup.Body
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
