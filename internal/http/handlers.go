package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/campus-events/internal/app"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/observability"
)

const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
	headerDeviceID = "X-Device-ID"

	// set when the same device submitted the same payload within the guard TTL
	headerScanRepeated = "Scan-Repeated"
)

type TicketVerifier interface {
	Verify(ctx context.Context, raw string) domain.VerificationResult
	VerifyManual(ctx context.Context, id string) domain.VerificationResult
}

// ScanGuard spots a payload the same device submitted moments ago.
type ScanGuard interface {
	AcquireScanGuard(ctx context.Context, deviceID, payload string, ttl time.Duration) (bool, error)
}

type Handlers struct {
	verifier TicketVerifier
	events   *app.EventService
	chat     *app.ChatService
	certs    *app.CertificateService
	guard    ScanGuard
	guardTTL time.Duration
	checks   map[string]func(ctx context.Context) error
}

func NewHandlers(verifier TicketVerifier, events *app.EventService, chat *app.ChatService, certs *app.CertificateService, guard ScanGuard, guardTTL time.Duration, checks map[string]func(ctx context.Context) error) *Handlers {
	return &Handlers{
		verifier: verifier,
		events:   events,
		chat:     chat,
		certs:    certs,
		guard:    guard,
		guardTTL: guardTTL,
		checks:   checks,
	}
}

func (h *Handlers) ScanTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.markRepeat(w, r, req.Payload)
	writeJSON(w, http.StatusOK, h.verifier.Verify(r.Context(), req.Payload))
}

func (h *Handlers) ManualCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RegistrationID string `json:"registration_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.markRepeat(w, r, req.RegistrationID)
	writeJSON(w, http.StatusOK, h.verifier.VerifyManual(r.Context(), req.RegistrationID))
}

// markRepeat flags a payload the device already submitted within the guard
// TTL. A repeat is still verified: a redeemed ticket answers ALREADY_USED
// without a write, and an unredeemed one is arbitrated by the conditional
// update. No guard, an anonymous device or a redis error flags nothing.
func (h *Handlers) markRepeat(w http.ResponseWriter, r *http.Request, payload string) {
	device := r.Header.Get(headerDeviceID)
	if h.guard == nil || device == "" {
		return
	}
	fresh, err := h.guard.AcquireScanGuard(r.Context(), device, payload, h.guardTTL)
	if err != nil {
		loggerFrom(r.Context()).WithError(err).Warn("scan guard unavailable")
		return
	}
	if !fresh {
		observability.ScanRepeats.Inc()
		w.Header().Set(headerScanRepeated, "true")
	}
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in app.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if id := r.Header.Get(headerUserID); id != "" {
		in.OwnerID = id
		in.OwnerName = r.Header.Get(headerUserName)
	}
	event, err := h.events.CreateEvent(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in app.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	in.OwnerID = r.Header.Get(headerUserID)
	event, err := h.events.UpdateEvent(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	status, err := app.ParseListStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.events.ListEvents(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": status, "events": events})
}

func (h *Handlers) EventCalendar(w http.ResponseWriter, r *http.Request) {
	link, err := h.events.CalendarURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		UserName  string `json:"user_name"`
		PaymentID string `json:"payment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if id := r.Header.Get(headerUserID); id != "" {
		req.UserID = id
		req.UserName = r.Header.Get(headerUserName)
	}

	ticket, err := h.events.Register(r.Context(), chi.URLParam(r, "id"), req.UserID, req.UserName, req.PaymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"registration": ticket.Registration,
		"qr_payload":   ticket.Payload,
	})
}

func (h *Handlers) Sponsor(w http.ResponseWriter, r *http.Request) {
	var in app.SponsorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if id := r.Header.Get(headerUserID); id != "" {
		in.SponsorID = id
	}
	sp, err := h.events.Sponsor(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (h *Handlers) UserTickets(w http.ResponseWriter, r *http.Request) {
	active, history, err := h.events.Tickets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"active": active, "history": history})
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.events.Dashboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListChat(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.List(r.Context(), chi.URLParam(r, "id"), r.Header.Get(headerUserID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *Handlers) PostChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	msg, err := h.chat.Post(r.Context(), chi.URLParam(r, "id"), r.Header.Get(headerUserID), r.Header.Get(headerUserName), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) RequestCertificate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cert, err := h.certs.Request(r.Context(), chi.URLParam(r, "id"), r.Header.Get(headerUserID), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cert)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, failed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrCapacityReached),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
		return
	case errors.Is(err, domain.ErrNotEligible):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		loggerFrom(r.Context()).WithError(err).Error("request failed")
		http.Error(w, "internal error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
