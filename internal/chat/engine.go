package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nexahealth/triagebot/internal/classifier"
	"github.com/nexahealth/triagebot/internal/conversation"
	"github.com/nexahealth/triagebot/internal/privacy"
	"github.com/nexahealth/triagebot/internal/symptoms"
	"github.com/nexahealth/triagebot/internal/wallet"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownSymptom  = errors.New("unknown symptom")
)

// Button is an inline button attached to a message
type Button struct {
	Label string
	Data  string
}

// OutgoingMessage is a transport-neutral message. Inline buttons and a
// reply keyboard are mutually exclusive; Inline wins when both are set.
type OutgoingMessage struct {
	Text          string
	Inline        [][]Button
	ReplyKeyboard [][]string
}

// IncomingMessage is a text or command sent by a user
type IncomingMessage struct {
	ChatID    int64
	UserID    int64
	MessageID int
	FirstName string
	Text      string
}

// IncomingCallback is a button press
type IncomingCallback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

// Messenger defines the interface for sending responses to any transport
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, msg OutgoingMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Assistant produces AI text. Implementations return fallback text
// instead of errors.
type Assistant interface {
	Summarize(ctx context.Context, symptoms []string, details map[string]map[string]string) string
	Reply(ctx context.Context, message string, symptoms []string, details map[string]map[string]string) string
}

// WalletLinker associates a Telegram user with a wallet address
type WalletLinker interface {
	Link(ctx context.Context, telegramUserID int64, address string) error
}

// RelevanceChecker decides whether free text gets an AI reply
type RelevanceChecker interface {
	IsRelevant(text string, recordedSymptoms int) bool
}

// FacilityRecommender renders the facility list for an urgency tier
type FacilityRecommender interface {
	Recommend(tier classifier.Tier) string
}

// FinishResult is what a completed session produced
type FinishResult struct {
	Summary  string
	Tier     classifier.Tier
	Facility string
}

// Engine drives the symptom dialogue independent of transport
type Engine struct {
	catalog    *symptoms.Catalog
	sessions   *conversation.Manager
	messenger  Messenger
	assistant  Assistant
	facilities FacilityRecommender
	relevance  RelevanceChecker
	linker     WalletLinker
}

// NewEngine creates a new dialogue engine. linker may be nil, in which
// case wallet linking always reports failure.
func NewEngine(
	catalog *symptoms.Catalog,
	sessions *conversation.Manager,
	messenger Messenger,
	assistant Assistant,
	facilities FacilityRecommender,
	relevance RelevanceChecker,
	linker WalletLinker,
) *Engine {
	return &Engine{
		catalog:    catalog,
		sessions:   sessions,
		messenger:  messenger,
		assistant:  assistant,
		facilities: facilities,
		relevance:  relevance,
		linker:     linker,
	}
}

// SelectCategory shows the symptoms of a category as inline buttons
func (e *Engine) SelectCategory(ctx context.Context, chatID int64, category string) error {
	if !e.catalog.HasCategory(category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	e.sessions.Mutate(chatID, func(s *conversation.State) {
		s.CurrentCategory = category
	})

	names := e.catalog.SymptomsIn(category)
	rows := make([][]Button, 0, len(names)/2+2)
	for i := 0; i < len(names); i += 2 {
		row := make([]Button, 0, 2)
		for _, name := range names[i:min(i+2, len(names))] {
			row = append(row, Button{Label: name, Data: Callback{Kind: CallbackSymptom, Symptom: name}.Encode()})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Label: backLabel, Data: Callback{Kind: CallbackBack}.Encode()}})

	return e.sendScripted(ctx, chatID, OutgoingMessage{Text: categoryPromptText(category), Inline: rows})
}

// SelectSymptom starts or resumes the follow-up flow of a symptom
func (e *Engine) SelectSymptom(ctx context.Context, chatID int64, symptom string) error {
	if !e.catalog.HasSymptom(symptom) {
		return fmt.Errorf("%w: %q", ErrUnknownSymptom, symptom)
	}

	e.sessions.Mutate(chatID, func(s *conversation.State) {
		s.StartSymptom(symptom)
	})
	return e.AdvanceFlow(ctx, chatID, symptom)
}

// AdvanceFlow asks the first unanswered question of the symptom's flow,
// or records the symptom once every field has an answer
func (e *Engine) AdvanceFlow(ctx context.Context, chatID int64, symptom string) error {
	if !e.catalog.HasSymptom(symptom) {
		return fmt.Errorf("%w: %q", ErrUnknownSymptom, symptom)
	}
	flow := e.catalog.Flow(symptom)

	var next *symptoms.Question
	e.sessions.Mutate(chatID, func(s *conversation.State) {
		s.StartSymptom(symptom)
		answered := s.Details[symptom]
		for i := range flow {
			if _, ok := answered[flow[i].FieldID]; !ok {
				next = &flow[i]
				return
			}
		}
		s.AddSymptom(symptom)
		s.CurrentSymptom = ""
	})

	if next == nil {
		log.Printf("Symptom saved: chat=%d symptom=%s", chatID, symptom)
		return e.sendScripted(ctx, chatID, OutgoingMessage{Text: savedText(symptom, len(flow) == 0)})
	}

	rows := make([][]Button, 0, len(next.Options))
	for _, opt := range next.Options {
		cb := Callback{Kind: CallbackDetail, Symptom: symptom, Field: next.FieldID, Value: opt.Value}
		rows = append(rows, []Button{{Label: opt.Label, Data: cb.Encode()}})
	}
	return e.sendScripted(ctx, chatID, OutgoingMessage{Text: next.Text, Inline: rows})
}

// RecordDetailAnswer stores an answer for the named symptom, overwriting
// any earlier one, and advances that symptom's flow. The symptom does not
// have to be the one currently in progress.
func (e *Engine) RecordDetailAnswer(ctx context.Context, chatID int64, symptom, field, value string) error {
	if !e.catalog.HasSymptom(symptom) {
		return fmt.Errorf("%w: %q", ErrUnknownSymptom, symptom)
	}

	e.sessions.Mutate(chatID, func(s *conversation.State) {
		s.SetDetail(symptom, field, value)
	})
	return e.AdvanceFlow(ctx, chatID, symptom)
}

// Finish summarizes everything recorded, recommends facilities for the
// resulting urgency and wipes the chat's state
func (e *Engine) Finish(ctx context.Context, chatID int64) (FinishResult, error) {
	state := e.sessions.Get(chatID)
	defer e.sessions.Clear(chatID)

	log.Printf("Finishing session: chat=%d symptoms=%d", chatID, state.TotalCount())

	thinkingID, err := e.sendScriptedID(ctx, chatID, OutgoingMessage{Text: thinkingText})
	if err != nil {
		log.Printf("Failed to send thinking message: %v", err)
	}

	summary := e.assistant.Summarize(ctx, state.Symptoms(), state.Details)

	if thinkingID != 0 {
		e.deleteQuietly(ctx, chatID, thinkingID)
	}

	result := FinishResult{Summary: summary, Tier: classifier.ClassifyUrgency(summary)}
	result.Facility = e.facilities.Recommend(result.Tier)

	if _, err := e.messenger.SendMessage(ctx, chatID, OutgoingMessage{Text: summary}); err != nil {
		return result, fmt.Errorf("send summary: %w", err)
	}
	log.Printf("Urgency classified: chat=%d tier=%q", chatID, result.Tier)

	if result.Facility != "" {
		if _, err := e.messenger.SendMessage(ctx, chatID, OutgoingMessage{Text: result.Facility}); err != nil {
			return result, fmt.Errorf("send facilities: %w", err)
		}
	}
	return result, nil
}

// Start wipes the chat and shows the main keyboard
func (e *Engine) Start(ctx context.Context, chatID int64, firstName string) error {
	e.sessions.Clear(chatID)

	_, err := e.messenger.SendMessage(ctx, chatID, OutgoingMessage{
		Text:          greetingText(firstName),
		ReplyKeyboard: e.mainKeyboard(),
	})
	return err
}

// Reset wipes the chat and confirms
func (e *Engine) Reset(ctx context.Context, chatID int64) error {
	e.sessions.Clear(chatID)
	return e.sendScripted(ctx, chatID, OutgoingMessage{Text: resetText})
}

// LinkWallet validates an address and relays it to the backend
func (e *Engine) LinkWallet(ctx context.Context, chatID, userID int64, address string) error {
	if err := wallet.Validate(address); err != nil {
		log.Printf("Rejected wallet address from chat=%d: %v", chatID, err)
		return e.sendScripted(ctx, chatID, OutgoingMessage{Text: invalidWalletText})
	}

	if userID == 0 {
		userID = chatID
	}

	text := walletLinkedText(address)
	if e.linker == nil {
		text = walletLinkFailedText
	} else if err := e.linker.Link(ctx, userID, wallet.Normalize(address)); err != nil {
		log.Printf("Error linking wallet %s: %v", privacy.MaskWallet(address), err)
		text = walletLinkFailedText
	}
	return e.sendScripted(ctx, chatID, OutgoingMessage{Text: text})
}

// HandleMessage routes a text message or command
func (e *Engine) HandleMessage(ctx context.Context, msg IncomingMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if cmd, args, ok := parseCommand(text); ok {
		handled, err := e.handleCommand(ctx, msg, cmd, args)
		if handled {
			return err
		}
	}

	switch {
	case e.catalog.HasCategory(text):
		err := e.SelectCategory(ctx, msg.ChatID, text)
		e.deleteQuietly(ctx, msg.ChatID, msg.MessageID)
		return err

	case text == finishLabel:
		_, err := e.Finish(ctx, msg.ChatID)
		e.deleteQuietly(ctx, msg.ChatID, msg.MessageID)
		return err

	case e.catalog.HasSymptom(text):
		err := e.SelectSymptom(ctx, msg.ChatID, text)
		e.deleteQuietly(ctx, msg.ChatID, msg.MessageID)
		return err
	}

	return e.handleFreeText(ctx, msg.ChatID, text)
}

func (e *Engine) handleCommand(ctx context.Context, msg IncomingMessage, cmd, args string) (bool, error) {
	var err error
	switch cmd {
	case "start":
		err = e.Start(ctx, msg.ChatID, msg.FirstName)
	case "help":
		err = e.sendScripted(ctx, msg.ChatID, OutgoingMessage{Text: helpText})
	case "reset":
		err = e.Reset(ctx, msg.ChatID)
	case "linkwallet":
		if args == "" {
			err = e.sendScripted(ctx, msg.ChatID, OutgoingMessage{Text: linkWalletHelpText})
		} else {
			err = e.LinkWallet(ctx, msg.ChatID, msg.UserID, args)
		}
	case "finish", "Finish":
		_, err = e.Finish(ctx, msg.ChatID)
	default:
		return false, nil
	}

	e.deleteQuietly(ctx, msg.ChatID, msg.MessageID)
	return true, err
}

func (e *Engine) handleFreeText(ctx context.Context, chatID int64, text string) error {
	state := e.sessions.Get(chatID)
	if !e.relevance.IsRelevant(text, state.TotalCount()) {
		log.Printf("Ignoring unrelated message: chat=%d text=%q", chatID, privacy.SanitizeForLogging(text))
		return nil
	}

	log.Printf("Processing message: chat=%d, length=%d", chatID, len(text))

	thinkingID, err := e.messenger.SendMessage(ctx, chatID, OutgoingMessage{Text: thinkingText})
	if err != nil {
		log.Printf("Failed to send thinking message: %v", err)
	}

	reply := e.assistant.Reply(ctx, text, state.Symptoms(), state.Details)

	if thinkingID != 0 {
		e.deleteQuietly(ctx, chatID, thinkingID)
	}

	if _, err := e.messenger.SendMessage(ctx, chatID, OutgoingMessage{Text: reply}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// HandleCallback routes a button press
func (e *Engine) HandleCallback(ctx context.Context, cb IncomingCallback) error {
	parsed, err := ParseCallback(cb.Data)
	if err != nil {
		log.Printf("Dropping callback from chat=%d: %v", cb.ChatID, err)
		return e.messenger.AnswerCallback(ctx, cb.ID, "")
	}

	switch parsed.Kind {
	case CallbackBack:
		e.sessions.Mutate(cb.ChatID, func(s *conversation.State) {
			s.CurrentCategory = ""
		})
		e.deleteQuietly(ctx, cb.ChatID, cb.MessageID)
		return e.messenger.AnswerCallback(ctx, cb.ID, "")

	case CallbackSymptom, CallbackDetail:
		if !e.catalog.HasSymptom(parsed.Symptom) {
			return e.messenger.AnswerCallback(ctx, cb.ID, unknownSymptomNotice)
		}
		if err := e.messenger.AnswerCallback(ctx, cb.ID, ""); err != nil {
			log.Printf("Failed to answer callback: %v", err)
		}
		if parsed.Kind == CallbackSymptom {
			return e.SelectSymptom(ctx, cb.ChatID, parsed.Symptom)
		}
		return e.RecordDetailAnswer(ctx, cb.ChatID, parsed.Symptom, parsed.Field, parsed.Value)
	}

	return nil
}

func (e *Engine) mainKeyboard() [][]string {
	cats := e.catalog.Categories()
	rows := make([][]string, 0, len(cats)/2+2)
	for i := 0; i < len(cats); i += 2 {
		row := []string{cats[i].Name}
		if i+1 < len(cats) {
			row = append(row, cats[i+1].Name)
		}
		rows = append(rows, row)
	}
	return append(rows, []string{finishLabel})
}

// sendScripted replaces the previous scripted message of the chat.
// Summaries, facility lists and AI replies bypass it and stay visible.
func (e *Engine) sendScripted(ctx context.Context, chatID int64, msg OutgoingMessage) error {
	_, err := e.sendScriptedID(ctx, chatID, msg)
	return err
}

func (e *Engine) sendScriptedID(ctx context.Context, chatID int64, msg OutgoingMessage) (int, error) {
	if old := e.sessions.Get(chatID).LastScriptedMessageID; old != 0 {
		e.deleteQuietly(ctx, chatID, old)
	}

	id, err := e.messenger.SendMessage(ctx, chatID, msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}

	e.sessions.Mutate(chatID, func(s *conversation.State) {
		s.LastScriptedMessageID = id
	})
	return id, nil
}

func (e *Engine) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := e.messenger.DeleteMessage(ctx, chatID, messageID); err != nil {
		log.Printf("Delete message %d in chat %d failed: %v", messageID, chatID, err)
	}
}

// parseCommand splits "/cmd@bot args" into its command and argument text
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return head, strings.TrimSpace(rest), true
}
