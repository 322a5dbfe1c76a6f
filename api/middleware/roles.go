package middleware

import (
	"net/http"

	"github.com/angelmondragon/noticecast/api/responses"
	"github.com/angelmondragon/noticecast/pkg/enums"
	pkgerrors "github.com/angelmondragon/noticecast/pkg/errors"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

// RequireOperator admits only actors whose token role may issue notices.
func RequireOperator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseRole(RoleFromContext(r.Context()))
			if err != nil || !role.IsOperator() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
