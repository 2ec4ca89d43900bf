package cerr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kazz187/agentboard/pkg/clog"
)

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSONError writes err as {"code","message"} with the status derived
// from its Code.
func WriteJSONError(ctx context.Context, rw http.ResponseWriter, err error) {
	e := normalize(ctx, err)
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(e.Code.HTTPCode())
	if encErr := json.NewEncoder(rw).Encode(httpError{Code: e.Code.String(), Message: e.Msg}); encErr != nil {
		clog.AddError(ctx, encErr)
	}
}

// NotFoundHandler answers unknown routes with a JSON not_found body.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		WriteJSONError(r.Context(), rw, NewError(NotFound, "route not found", nil))
	})
}
