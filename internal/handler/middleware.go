package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/insights-bff-go/internal/infra/session"
	"github.com/boddenberg/insights-bff-go/internal/port"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const workspaceKey contextKey = "workspace"

// WorkspaceMiddleware resolves the browser's workspace from the sid cookie and
// injects it into the context. A missing, invalid or expired cookie opens a
// new workspace on the first state-changing request; reads get a transient
// one that is never stored. With restore set, a browser holding a token
// cookie opens a workspace right away and picks up its session.
func WorkspaceMiddleware(store *service.WorkspaceStore, cookies *session.Cookies, tokens port.TokenStore, restore bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws := lookupWorkspace(store, cookies, r)
			if ws == nil {
				token, hasToken := "", false
				if restore {
					token, hasToken = tokens.LoadToken(r)
				}

				if isRead(r) && !hasToken {
					ws = store.Transient()
				} else {
					ws = store.Open()
					if err := cookies.SetWorkspace(w, ws.ID); err != nil {
						logger.Error("workspace: set cookie failed", zap.Error(err))
						writeError(w, http.StatusInternalServerError, "internal server error")
						return
					}
					if hasToken {
						if err := ws.Restore(r.Context(), token); err != nil {
							logger.Warn("workspace: restore failed", zap.String("workspace_id", ws.ID), zap.Error(err))
						} else {
							logger.Debug("workspace: session restored", zap.String("workspace_id", ws.ID))
						}
					}
				}
			}

			ctx := context.WithValue(r.Context(), workspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func lookupWorkspace(store *service.WorkspaceStore, cookies *session.Cookies, r *http.Request) *service.Workspace {
	id, err := cookies.WorkspaceID(r)
	if err != nil {
		return nil
	}
	ws, ok := store.Get(id)
	if !ok {
		return nil
	}
	return ws
}

// WorkspaceFromContext returns the workspace injected by WorkspaceMiddleware.
func WorkspaceFromContext(ctx context.Context) *service.Workspace {
	ws, _ := ctx.Value(workspaceKey).(*service.Workspace)
	return ws
}
