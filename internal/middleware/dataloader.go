package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/consulta/internal/orderloader"
)

type ctxKey string

const orderLoaderKey ctxKey = "orderLoader"

// DataLoaderMiddleware attaches a fresh order loader to each request context.
func DataLoaderMiddleware(source orderloader.Source) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := orderloader.NewOrderLoader(source)
			ctx := context.WithValue(r.Context(), orderLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OrderLoaderFromContext retrieves the request's order loader, or nil.
func OrderLoaderFromContext(ctx context.Context) *orderloader.OrderLoader {
	if l, ok := ctx.Value(orderLoaderKey).(*orderloader.OrderLoader); ok {
		return l
	}
	return nil
}
