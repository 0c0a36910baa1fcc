package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const accountKey contextKey = "account"

// AccountHeader carries the tenant on every API request.
const AccountHeader = "X-Account-ID"

// RequireAccount rejects requests without an account header and puts
// the account id on the request context.
func RequireAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := r.Header.Get(AccountHeader)
			if account == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "missing " + AccountHeader + " header"})
				return
			}
			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountID returns the account set by RequireAccount, empty when the
// middleware did not run.
func AccountID(ctx context.Context) string {
	account, _ := ctx.Value(accountKey).(string)
	return account
}
