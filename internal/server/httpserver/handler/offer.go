package handler

import "net/http"

func (h *Handler) handleListOffers(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.ListPending(r.Context(), r.URL.Query().Get("filter")))
}

func (h *Handler) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.Accept(r.Context(), r.PathValue("id")))
}

func (h *Handler) handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.Decline(r.Context(), r.PathValue("id")))
}

func (h *Handler) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.ListSecrets())
}

func (h *Handler) handleScanSecrets(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.ScanSecrets())
}

func (h *Handler) handleCheckSecret(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.CheckSecret(r.PathValue("account")))
}

func (h *Handler) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.cmds.GenerateCode(r.PathValue("account")))
}
