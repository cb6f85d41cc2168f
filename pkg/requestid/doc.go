// Package requestid correlates everything one HTTP request logs.
//
// Every request handled by the entitlement API carries an id in the
// X-Request-ID header. Middleware reuses an incoming id when it is well
// formed (up to 128 characters of letters, digits, "-" and "_") and mints a
// time-ordered UUIDv7 otherwise. The id is echoed in the response header and
// stored in the request context.
//
// # Usage
//
// Install the middleware first, so that handlers and later middleware see the
// id:
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//	r.Use(middleware.Recoverer)
//
// Read it where it is needed:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    id := requestid.FromContext(r.Context()) // "" outside a request
//	    ...
//	}
//
// Attach it to every log record written with the request context by
// registering the extractor on the logger:
//
//	log := logger.New(
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(r.Context(), "plan changed") // ... request_id=0190c3e4-...
//
// Background work started on behalf of a request can carry the id along:
//
//	ctx := requestid.WithContext(context.Background(), requestid.FromContext(r.Context()))
//
// # Trust
//
// Client supplied ids are only checked for shape. They are meant for
// correlation, not for authentication or deduplication.
package requestid
