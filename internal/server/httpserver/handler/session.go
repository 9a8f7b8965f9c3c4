package handler

import (
	"net/http"

	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := h.version
	if version == "" {
		version = buildinfo.Version
	}
	resp := HealthResponse{Status: "ok", Version: version}
	if st := h.cmds.Status(); st.Status != nil {
		resp.Session = st.Status.State.String()
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeResult(w, r, h.cmds.Login(r.Context(), req.Credentials()))
}

func (h *Handler) handleLoginWithSecret(w http.ResponseWriter, r *http.Request) {
	var req LoginWithSecretRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeResult(w, r, h.cmds.LoginWithSecret(req.Account))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.Logout(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.Status())
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.CheckConnection(r.Context()))
}

func (h *Handler) handleReconnect(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.ForceReconnect(r.Context()))
}

func (h *Handler) handleAutoAcceptSetting(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.AutoAcceptSetting())
}

func (h *Handler) handleToggleAutoAccept(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.ToggleAutoAccept(r.Context()))
}
