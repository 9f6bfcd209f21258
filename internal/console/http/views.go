package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"digital-delta/internal/access"
	"digital-delta/internal/console"
	"digital-delta/internal/session"
)

type decisionResponse struct {
	Outcome    access.Outcome    `json:"outcome"`
	View       access.View       `json:"view,omitempty"`
	Redirect   string            `json:"redirect,omitempty"`
	From       string            `json:"from,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	Navigation []access.NavEntry `json:"navigation,omitempty"`
}

func dashboardPath(r *http.Request) string {
	if view := chi.URLParam(r, "view"); view != "" {
		return access.PathDashboard + "/" + view
	}
	return access.PathDashboard
}

// redirectTarget appends the originally requested path to a login redirect.
func redirectTarget(d access.Decision) string {
	if d.Outcome == access.OutcomeRedirectLogin && d.From != "" {
		return d.Redirect + "?" + url.Values{"from": []string{d.From}}.Encode()
	}
	return d.Redirect
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := h.store.Snapshot()
	decision := h.router.Decide(dashboardPath(r), state)
	resp := decisionResponse{
		Outcome:  decision.Outcome,
		View:     decision.View,
		Redirect: decision.Redirect,
		From:     decision.From,
		Notice:   decision.Notice,
	}
	switch decision.Outcome {
	case access.OutcomeRender:
		resp.Navigation = access.Navigation(state.Role())
		writeJSON(w, http.StatusOK, resp)
	case access.OutcomeWait:
		writeJSON(w, http.StatusAccepted, resp)
	case access.OutcomeRedirectLogin:
		w.Header().Set("Location", redirectTarget(decision))
		writeJSON(w, http.StatusFound, resp)
	case access.OutcomeDeny:
		h.console.Notices().Error(decision.Notice)
		w.Header().Set("Location", decision.Redirect)
		writeJSON(w, http.StatusFound, resp)
	case access.OutcomeNotFound:
		writeJSON(w, http.StatusNotFound, resp)
	}
}

func queryFrom(r *http.Request) console.Query {
	q := r.URL.Query()
	return console.Query{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Type:     q.Get("type"),
		Search:   q.Get("q"),
	}
}

// handleStream mounts the view for as long as the connection stays open. Waiting for the
// session probe, access denial and logout are reported as events.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	path := dashboardPath(r)
	if _, ok := h.router.Lookup(path); !ok {
		writeDetail(w, http.StatusNotFound, "unknown view")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	sse := &eventWriter{w: w, flusher: flusher}

	changes, stopChanges := h.store.Changes()
	defer stopChanges()

	var decision access.Decision
	for {
		state := h.store.Snapshot()
		decision = h.router.Decide(path, state)
		if decision.Outcome != access.OutcomeWait {
			break
		}
		sse.send("waiting", map[string]string{"path": path})
		select {
		case <-ctx.Done():
			return
		case <-h.store.Resolved():
		}
	}
	switch decision.Outcome {
	case access.OutcomeRender:
	case access.OutcomeDeny:
		h.console.Notices().Error(decision.Notice)
		sse.send("redirect", decisionResponse{Outcome: decision.Outcome, Redirect: decision.Redirect, Notice: decision.Notice})
		return
	default:
		sse.send("redirect", decisionResponse{Outcome: decision.Outcome, Redirect: redirectTarget(decision), From: decision.From})
		return
	}

	mount, err := h.console.Mount(decision.View)
	if err != nil {
		sse.send("error", detailResponse{Detail: err.Error()})
		return
	}
	defer h.console.Unmount(mount.ID)
	sse.send("mounted", map[string]any{"mount_id": mount.ID, "view": mount.View})

	notices := h.console.Notices().Subscribe()
	defer h.console.Notices().Unsubscribe(notices)

	var frames chan []byte
	if surface := mount.Surface(); surface != nil {
		frames = surface.Broker().Subscribe()
		defer surface.Broker().Unsubscribe(frames)
	}

	query := queryFrom(r)
	sse.send("snapshot", mount.Snapshot(query, h.store.Snapshot()))

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-mount.Done():
			return
		case <-mount.Changes():
			sse.send("snapshot", mount.Snapshot(query, h.store.Snapshot()))
		case n, ok := <-notices:
			if !ok {
				return
			}
			sse.send("notice", n)
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			sse.sendRaw("map", frame)
		case state := <-changes:
			if !state.IsLoading && !h.router.Allowed(mount.View, state) {
				sse.send("redirect", h.lostAccess(path, state))
				return
			}
		case <-keepAlive.C:
			sse.comment("ping")
		}
	}
}

func (h *Handler) lostAccess(path string, state session.State) decisionResponse {
	d := h.router.Decide(path, state)
	return decisionResponse{Outcome: d.Outcome, Redirect: redirectTarget(d), From: d.From, Notice: d.Notice}
}

type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (e *eventWriter) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"detail":%q}`, err.Error()))
	}
	e.sendRaw(event, data)
}

func (e *eventWriter) sendRaw(event string, data []byte) {
	_, _ = e.w.Write([]byte("event: " + event + "\n"))
	for _, line := range strings.Split(string(data), "\n") {
		_, _ = e.w.Write([]byte("data: " + line + "\n"))
	}
	_, _ = e.w.Write([]byte("\n"))
	e.flusher.Flush()
}

func (e *eventWriter) comment(text string) {
	_, _ = e.w.Write([]byte(": " + text + "\n\n"))
	e.flusher.Flush()
}
