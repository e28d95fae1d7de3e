package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/services/booking"
	"usadba/services/rag"
	"usadba/session"
	"usadba/utils"
)

// Composer is the per-turn orchestrator: it loads session state, classifies
// the message, advances the booking dialogue or answers from the knowledge
// base, and persists state and history.
type Composer struct {
	engine *booking.Engine
	ragSvc *rag.Service
	store  session.Store
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewComposer wires the chat orchestrator.
func NewComposer(engine *booking.Engine, ragSvc *rag.Service, store session.Store, cfg config.Config) *Composer {
	return &Composer{
		engine: engine,
		ragSvc: ragSvc,
		store:  store,
		cfg:    cfg,
		logger: utils.GetLogger(),
		now:    time.Now,
	}
}

// WithClock overrides the reference clock, for deterministic tests.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// HandleMessage processes one user turn and returns the reply with its debug
// payload. A missing session id starts a fresh session.
func (c *Composer) HandleMessage(ctx context.Context, sessionID, text string) (string, string, map[string]any) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	trimmed := strings.TrimSpace(text)
	debug := map[string]any{"session_id": sessionID}

	stored, err := c.store.GetContext(ctx, sessionID)
	if err != nil {
		c.logger.Warn("failed to load session context", zap.String("sessionId", sessionID), zap.Error(err))
	}
	bctx := c.engine.LoadContext(stored)

	parsed := booking.NewParsedMessage(trimmed)
	entities := booking.ExtractEntities(trimmed, c.now())
	intent := DetectIntent(trimmed, entities)
	debug["intent"] = intent

	bookingActive := bctx.State != "" &&
		bctx.State != models.StateDone && bctx.State != models.StateCancelled
	debug["booking_active"] = bookingActive

	var answer string
	if intent == IntentBookingCalculation || intent == IntentBookingQuote || bookingActive {
		answer = c.handleBooking(ctx, sessionID, trimmed, bctx, parsed, entities, debug)
	} else {
		answer = c.handleGeneral(ctx, trimmed, intent, debug)
	}

	c.appendHistory(ctx, sessionID, trimmed, answer)
	return answer, sessionID, debug
}

func (c *Composer) handleBooking(
	ctx context.Context,
	sessionID, text string,
	bctx *models.BookingContext,
	parsed *booking.ParsedMessage,
	entities models.BookingEntities,
	debug map[string]any,
) string {
	booking.ApplyEntities(bctx, entities)
	booking.ApplyMessage(bctx, parsed, c.now())

	answer := c.engine.ProcessMessage(ctx, sessionID, text, bctx, parsed, debug)

	// Mid-dialogue service questions are answered from the knowledge base
	// without losing the collected slots.
	if strings.HasPrefix(answer, booking.DelegatePrefix) {
		question := strings.TrimPrefix(answer, booking.DelegatePrefix)
		delegatedIntent := DetectIntent(question, models.BookingEntities{})
		if delegatedIntent == IntentBookingCalculation || delegatedIntent == IntentBookingQuote {
			delegatedIntent = IntentGeneral
		}
		debug["delegated"] = true
		debug["delegated_intent"] = delegatedIntent
		answer, _ = c.answerGeneral(ctx, question, delegatedIntent, debug)
		answer = strings.TrimSpace(answer) +
			"\n\nЧерновик бронирования сохранён, продолжим оформление, когда будете готовы."
	}

	bctx.UpdatedAt = c.now().Unix()
	if err := c.store.SetContext(ctx, sessionID, bctx); err != nil {
		c.logger.Error("failed to persist session context",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	debug["booking_state"] = string(bctx.State)
	debug["booking_entities"] = booking.ContextEntities(bctx)
	debug["missing_fields"] = booking.MissingFields(bctx)
	return answer
}

func (c *Composer) handleGeneral(ctx context.Context, text, intent string, debug map[string]any) string {
	answer, _ := c.answerGeneral(ctx, text, intent, debug)
	return answer
}

func (c *Composer) answerGeneral(ctx context.Context, text, intent string, debug map[string]any) (string, map[string]any) {
	var answer string
	var ragDebug map[string]any
	if intent == IntentKnowledgeLookup {
		answer, ragDebug = c.ragSvc.KnowledgeAnswer(ctx, text)
	} else {
		answer, ragDebug = c.ragSvc.Answer(ctx, text, intent)
	}
	for key, value := range ragDebug {
		debug[key] = value
	}
	return answer, ragDebug
}

func (c *Composer) appendHistory(ctx context.Context, sessionID, userText, answer string) {
	if err := c.store.AddMessage(ctx, sessionID, "user", userText); err != nil {
		c.logger.Warn("failed to append user message", zap.Error(err))
	}
	if err := c.store.AddMessage(ctx, sessionID, "assistant", answer); err != nil {
		c.logger.Warn("failed to append assistant message", zap.Error(err))
	}
}

// ResetSession drops the stored dialogue state and history.
func (c *Composer) ResetSession(ctx context.Context, sessionID string) error {
	if err := c.store.ClearContext(ctx, sessionID); err != nil {
		return err
	}
	return c.store.ClearHistory(ctx, sessionID)
}

// History exposes the stored transcript, oldest first.
func (c *Composer) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return c.store.History(ctx, sessionID)
}
