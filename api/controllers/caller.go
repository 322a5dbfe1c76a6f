package controllers

import (
	"net/http"

	"github.com/angelmondragon/noticecast/api/middleware"
	"github.com/angelmondragon/noticecast/api/responses"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

// requireCaller writes a 401 and returns false when the request carries no
// authenticated identity.
func requireCaller(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Caller, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return middleware.Caller{}, false
	}
	return caller, true
}
