package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// maxWebhookPayload matches the payload cap GitHub applies to webhook deliveries
const maxWebhookPayload = 25 << 20

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookPayload))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, r, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Hub-Signature-256")
	if !h.verifySignature(body, signature) {
		logger.Warn("Invalid webhook signature")
		writeError(w, r, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		logger.Error("Failed to parse webhook payload", "error", err)
		writeError(w, r, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	event := newWebhookEvent(r.Header.Get("X-GitHub-Delivery"), eventType, body, payload)
	logger.Debug("Webhook received", "delivery_id", event.ID, "type", event.Type, "action", event.Action)

	if err := h.webhookUC.ProcessEvent(ctx, event); err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to process webhook event", goerr.V("delivery_id", event.ID)), http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "accepted",
	})
}

// newWebhookEvent keeps the fields the use case routes on. Event types other than
// pull_request and ping are marked unknown.
func newWebhookEvent(deliveryID, eventType string, body []byte, payload any) *model.WebhookEvent {
	event := &model.WebhookEvent{
		ID:         deliveryID,
		Type:       model.WebhookEventType(eventType),
		ReceivedAt: time.Now(),
		RawPayload: body,
	}

	switch e := payload.(type) {
	case *github.PullRequestEvent:
		event.Type = model.EventTypePullRequest
		event.Action = e.GetAction()
		event.Repository = e.GetRepo().GetFullName()
		event.Sender = e.GetSender().GetLogin()
	case *github.PingEvent:
		event.Type = model.EventTypePing
	default:
		event.Type = model.EventTypeUnknown
	}
	return event
}

// verifySignature checks X-Hub-Signature-256 against HMAC-SHA256 of payload keyed by the secret.
// An empty secret rejects every request.
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" || h.secret == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
