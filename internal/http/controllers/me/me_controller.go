// Package me expone el usuario autenticado.
package me

import (
	"net/http"

	httperrors "github.com/dropDatabas3/codepulse/internal/http/errors"
	mw "github.com/dropDatabas3/codepulse/internal/http/middlewares"
)

// MeController maneja GET /api/me. Requiere RequireUser.
type MeController struct{}

func NewMeController() *MeController { return &MeController{} }

func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	u := mw.GetUser(r.Context())
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, u)
}
