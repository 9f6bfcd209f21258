package http

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"digital-delta/internal/deltaapi"
)

// validateContact applies the contact form limits. It returns "" when req is acceptable.
func validateContact(req deltaapi.ContactRequest) string {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "" || utf8.RuneCountInString(name) > 100:
		return "naam moet tussen 1 en 100 tekens zijn"
	case !validEmail(req.Email):
		return "ongeldig e-mailadres"
	case utf8.RuneCountInString(req.Organization) > 200:
		return "organisatie mag maximaal 200 tekens zijn"
	}
	length := utf8.RuneCountInString(strings.TrimSpace(req.Message))
	if length < 10 || length > 2000 {
		return "bericht moet tussen 10 en 2000 tekens zijn"
	}
	return ""
}

func validEmail(value string) bool {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at+1:], ".")
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	if h.contact == nil {
		writeDetail(w, http.StatusServiceUnavailable, "contact not configured")
		return
	}
	var req deltaapi.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if problem := validateContact(req); problem != "" {
		writeDetail(w, http.StatusUnprocessableEntity, problem)
		return
	}
	resp, err := h.contact.SubmitContact(r.Context(), req)
	if err != nil {
		h.logger.Printf("contact submit error: %v", err)
		writeDetail(w, statusFor(err), deltaapi.DetailOr(err, "Versturen mislukt"))
		return
	}
	h.console.Notices().Success("Bericht verzonden")
	writeJSON(w, http.StatusOK, resp)
}
