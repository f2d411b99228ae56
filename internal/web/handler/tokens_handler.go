package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nahiyan/connect-broker/internal/session"
	"github.com/nahiyan/connect-broker/internal/token"
	"github.com/nahiyan/connect-broker/internal/web/response"
)

// TokensHandler exposes manual token entry and inspection for a session.
type TokensHandler struct {
	Manager *token.Manager
	Logger  *slog.Logger
}

func NewTokensHandler(manager *token.Manager, logger *slog.Logger) TokensHandler {
	return TokensHandler{
		Manager: manager,
		Logger:  logger,
	}
}

func (h *TokensHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tokens", h.HandleSubmit)
	mux.HandleFunc("GET /api/tokens", h.HandleView)
	mux.HandleFunc("DELETE /api/tokens", h.HandleDelete)
}

type submitRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HandleSubmit stores a manually supplied token pair under the caller's
// session. Tokens are accepted as-is; expiries come from their own claims.
func (h *TokensHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())

	var req submitRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.ValidationErrorResponse(w, "invalid JSON body", nil, h.Logger)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.ValidationErrorResponse(w, "invalid form body", nil, h.Logger)
			return
		}
		req.AccessToken = r.PostFormValue("access_token")
		req.RefreshToken = r.PostFormValue("refresh_token")
	}

	details := map[string]string{}
	if req.AccessToken == "" {
		details["access_token"] = "required"
	}
	if req.RefreshToken == "" {
		details["refresh_token"] = "required"
	}
	if len(details) > 0 {
		response.ValidationErrorResponse(w, "missing token fields", details, h.Logger)
		return
	}

	rec, err := h.Manager.SubmitTokens(r.Context(), sid, req.AccessToken, req.RefreshToken)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, map[string]any{
		"expires_at":         rec.ExpiresAt,
		"refresh_expires_at": rec.RefreshExpiresAt,
	})
}

// HandleView returns a sanitized view of the caller's stored record.
func (h *TokensHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())

	rec, found := h.Manager.RecordForSession(r.Context(), sid)
	if !found {
		response.JSONResponse(w, http.StatusNotFound, response.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "error",
			Message: "No tokens stored for this session",
		})
		return
	}

	response.SuccessResponse(w, map[string]any{
		"access_token":       token.Mask(rec.AccessToken),
		"refresh_token":      token.Mask(rec.RefreshToken),
		"expires_at":         rec.ExpiresAt,
		"refresh_expires_at": rec.RefreshExpiresAt,
	})
}

// HandleDelete removes the caller's stored record.
func (h *TokensHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())
	h.Manager.DeleteSession(r.Context(), sid)
	response.SuccessResponse(w, map[string]string{"deleted": "ok"})
}
