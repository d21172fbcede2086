package middleware

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"integrations-api/internal/auth"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

// Session resolves the caller from the request token and stores the user id
// in the context. It never rejects; handlers decide what an anonymous call gets.
func Session(secret string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if raw := auth.RawToken(r); raw != "" {
				if claims, err := auth.ParseToken(raw, secret); err == nil {
					r = r.WithContext(WithUserID(r.Context(), claims.UserID))
				}
			}
			next(w, r, ps)
		}
	}
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}
