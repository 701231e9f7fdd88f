package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// pathUUID binds a {name} path parameter as a UUID the way generated
// oapi-codegen servers do. On failure it writes a 422 and returns false.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter %s: must be a UUID", name))
		return openapi_types.UUID{}, false
	}
	return id, true
}

// queryString binds an optional form-style query parameter.
// A missing parameter yields "".
func queryString(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter %s", name))
		return "", false
	}
	return v, true
}
