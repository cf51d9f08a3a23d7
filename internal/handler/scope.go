package handler

import (
	"net/http"

	"timebank-backend/internal/server/authctx"
	"timebank-backend/internal/store"
)

// scopeFrom resolves the identity scope of a request. Authenticated requests
// get a user scope that syncs; everything else runs in the local-only guest
// scope.
func scopeFrom(r *http.Request) store.Scope {
	if u := authctx.FromContext(r.Context()); u != nil {
		return store.Scope{UserID: u.ID}
	}
	return store.Scope{Guest: true}
}
