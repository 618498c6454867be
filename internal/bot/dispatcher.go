// Package bot is the chat adapter: it turns Telegram updates into lookup
// requests and keeps the per-chat menu state. It holds no billing or lookup
// logic; those live in the services package.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/services"
	"github.com/tbourn/go-lookup-bot/internal/telegram"
)

// Replies that belong to the conversation itself.
const (
	msgBackToMenu    = "Volviendo al menú principal…"
	msgPickKindFirst = "Primero elige el tipo de consulta (firma o persona) en el menú principal."
	msgNotUnderstood = "No entendí tu mensaje.\n\n" +
		"Usa el menú de abajo o el modo rápido para firma: `CC 123456789`."
	msgAskDocType = "Primero selecciona el *tipo de documento*: 👇"
	msgAskDocNum  = "👉 Escribe ahora el *número de documento* (sin puntos ni comas)."
)

// LookupStarter starts lookups.
type LookupStarter interface {
	Start(ctx context.Context, req services.StartRequest) (*domain.Lookup, error)
}

// BalanceReader reads credit balances.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (services.Balance, error)
}

// Sender delivers replies, with an optional reply keyboard.
type Sender interface {
	services.Notifier
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.ReplyKeyboardMarkup) error
}

// Dispatcher routes incoming messages.
type Dispatcher struct {
	Lookups  LookupStarter
	Ledger   BalanceReader
	Sender   Sender
	Sessions SessionStore

	// Present picks the presenter for a kind.
	Present func(kind domain.Kind) services.Presenter

	// Document renders vehicle reports; nil disables them.
	Document services.DocumentGenerator
}

// quickDocTypes are the prefixes accepted by quick mode ("CC 123456").
var quickDocTypes = map[string]bool{"CC": true, "TI": true, "CE": true, "NIT": true}

// HandleUpdate processes one update. Errors are logged by the caller; the
// webhook answers 200 regardless so Telegram does not redeliver.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) error {
	msg := upd.IncomingMessage()
	if msg == nil || msg.Chat.ID == 0 {
		return nil
	}
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(chatID, 10)
	if msg.From != nil && msg.From.ID != 0 {
		userID = strconv.FormatInt(msg.From.ID, 10)
	}
	text := strings.TrimSpace(msg.Text)

	lg := log.With().Int64("chat_id", chatID).Str("user_id", userID).Logger()
	ctx = lg.WithContext(ctx)

	sess, err := d.Sessions.Get(ctx, chatID)
	if err != nil {
		lg.Warn().Err(err).Msg("session read failed; continuing without state")
		sess = Session{}
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		_ = d.Sessions.Clear(ctx, chatID)
		return d.reply(ctx, chatID, services.MsgWelcome, mainMenu())

	case strings.HasPrefix(text, "/saldo"):
		b, err := d.Ledger.Balance(ctx, userID)
		if err != nil {
			_ = d.reply(ctx, chatID, services.MsgGenericError, mainMenu())
			return err
		}
		return d.reply(ctx, chatID, services.BalanceMessage(b), mainMenu())

	case text == BtnSignature:
		return d.enter(ctx, chatID, Session{State: StateSignatureDocType},
			"✍️ Has elegido *Consulta de firma*.\n\n"+msgAskDocType, docTypeMenu())

	case text == BtnPerson:
		return d.enter(ctx, chatID, Session{State: StatePersonDocType},
			"🧍 Has elegido *Consulta de persona*.\n\n"+msgAskDocType, docTypeMenu())

	case text == BtnVehicle:
		return d.enter(ctx, chatID, Session{State: StateVehiclePlate},
			"🚗 Has elegido *Consulta de vehículo por placa*.\n\n"+
				"👉 Escribe ahora la placa del vehículo (ejemplo: `ABC123`).", mainMenu())

	case text == BtnOwner:
		return d.enter(ctx, chatID, Session{State: StateOwnerPlate},
			"👤 Has elegido *Propietario por placa*.\n\n"+
				"👉 Escribe ahora la placa del vehículo.", mainMenu())

	case text == BtnBack:
		_ = d.Sessions.Clear(ctx, chatID)
		return d.reply(ctx, chatID, msgBackToMenu, mainMenu())
	}

	if docType, ok := docTypeButtons[text]; ok {
		switch sess.State {
		case StateSignatureDocType:
			return d.enter(ctx, chatID, Session{State: StateSignatureDocNumber, DocType: docType},
				"✍️ Has elegido *firma* con documento tipo *"+docType+"*.\n\n"+msgAskDocNum, nil)
		case StatePersonDocType:
			return d.enter(ctx, chatID, Session{State: StatePersonDocNumber, DocType: docType},
				"🧍 Has elegido *persona* con documento tipo *"+docType+"*.\n\n"+msgAskDocNum, nil)
		}
		return d.reply(ctx, chatID, msgPickKindFirst, mainMenu())
	}

	switch sess.State {
	case StateSignatureDocNumber:
		return d.startFromState(ctx, chatID, userID, domain.KindSignature,
			domain.Params{DocType: docTypeOr(sess.DocType), DocNumber: registry.NormalizeDocNumber(text)})
	case StatePersonDocNumber:
		return d.startFromState(ctx, chatID, userID, domain.KindPerson,
			domain.Params{DocType: docTypeOr(sess.DocType), DocNumber: registry.NormalizeDocNumber(text)})
	case StateVehiclePlate:
		return d.startFromState(ctx, chatID, userID, domain.KindVehicleOwner,
			domain.Params{Plate: registry.NormalizePlate(text)})
	case StateOwnerPlate:
		return d.startFromState(ctx, chatID, userID, domain.KindOwner,
			domain.Params{Plate: registry.NormalizePlate(text)})
	}

	if sess.State == StateIdle {
		if f := strings.Fields(text); len(f) >= 2 && quickDocTypes[strings.ToUpper(f[0])] {
			return d.start(ctx, chatID, userID, domain.KindSignature,
				domain.Params{DocType: strings.ToUpper(f[0]), DocNumber: registry.NormalizeDocNumber(f[1])})
		}
	}

	return d.reply(ctx, chatID, msgNotUnderstood, mainMenu())
}

// enter moves the chat to s and prompts for the next input.
func (d *Dispatcher) enter(ctx context.Context, chatID int64, s Session, prompt string, kb *telegram.ReplyKeyboardMarkup) error {
	if err := d.Sessions.Set(ctx, chatID, s); err != nil {
		return err
	}
	return d.reply(ctx, chatID, prompt, kb)
}

// startFromState clears the session and starts the lookup it was waiting for.
func (d *Dispatcher) startFromState(ctx context.Context, chatID int64, userID string, kind domain.Kind, p domain.Params) error {
	if err := d.Sessions.Clear(ctx, chatID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session clear failed")
	}
	return d.start(ctx, chatID, userID, kind, p)
}

func (d *Dispatcher) start(ctx context.Context, chatID int64, userID string, kind domain.Kind, p domain.Params) error {
	req := services.StartRequest{
		UserID:   userID,
		Kind:     kind,
		Params:   p,
		ChatID:   chatID,
		Notifier: d.Sender,
		Document: d.Document,
	}
	if d.Present != nil {
		req.Present = d.Present(kind)
	}

	_, err := d.Lookups.Start(ctx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrKindDisabled), errors.Is(err, services.ErrInsufficientCredits):
		// Already reported to the chat by the orchestrator.
		return nil
	case errors.Is(err, services.ErrInvalidParams):
		return d.reply(ctx, chatID, msgNotUnderstood, mainMenu())
	default:
		_ = d.reply(ctx, chatID, services.MsgGenericError, mainMenu())
		return err
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, kb *telegram.ReplyKeyboardMarkup) error {
	return d.Sender.SendMessage(ctx, chatID, text, kb)
}

func docTypeOr(s string) string {
	if s == "" {
		return "CC"
	}
	return s
}
