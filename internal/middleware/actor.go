// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorHeader names the header the upstream gateway sets after
// authenticating the request. The engine records whatever id it is handed;
// authentication itself happens upstream.
const ActorHeader = "X-Actor-Id"

// Actor stores the authenticated actor id from the request headers in the
// context for audit attribution.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(ActorHeader)
		if actor == "" {
			actor = "anonymous"
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorID returns the actor id stored by Actor, or "anonymous" when the
// middleware did not run.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}
