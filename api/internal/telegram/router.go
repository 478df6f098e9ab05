package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/store"
	"vision-bot/api/internal/util"
)

// Bot описывает часть *tgbotapi.BotAPI, которой пользуется роутер.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type History interface {
	Insert(ctx context.Context, chatID int64, imageHash string, source store.Source, modelID string, resp clarifai.Response) (int64, error)
	ListByChat(ctx context.Context, chatID int64, limit int) ([]store.PredictionRow, error)
}

type Captioner interface {
	Caption(ctx context.Context, image []byte, mime string, concepts []clarifai.Concept, lang string) (string, error)
}

type Router struct {
	Bot    Bot
	Client *clarifai.Client

	// необязательные
	History   History
	Captioner Captioner

	TopN     int
	MinValue float64

	httpc  *http.Client
	models sync.Map // chatID -> modelID
}

func NewRouter(bot Bot, client *clarifai.Client) *Router {
	return &Router{
		Bot:    bot,
		Client: client,
		TopN:   5,
		httpc:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	// фото
	if len(msg.Photo) > 0 {
		r.acceptPhoto(context.Background(), msg)
		return
	}

	// ссылка на картинку
	if text := strings.TrimSpace(msg.Text); util.IsHTTPURL(text) {
		r.acceptURL(context.Background(), cid, text, msg.From)
		return
	}

	r.send(cid, "Пришли фото или ссылку на картинку — скажу, что на ней.")
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK, модель: "+r.modelFor(cid))
	case "model":
		r.handleModelCommand(cid, msg.CommandArguments())
	case "history":
		r.handleHistory(cid)
	default:
		r.send(cid, "Неизвестная команда")
	}
}

// handleModelCommand:
//
//	/model            - показать текущую
//	/model <id>       - переключить для чата
//	/model reset      - вернуть модель по умолчанию
func (r *Router) handleModelCommand(chatID int64, args string) {
	arg := strings.TrimSpace(args)
	switch {
	case arg == "":
		r.send(chatID, "Текущая модель: "+r.modelFor(chatID)+"\nИспользование: /model <model_id> | /model reset")
	case strings.EqualFold(arg, "reset"):
		r.clearModel(chatID)
		r.send(chatID, "✅ Модель по умолчанию: "+r.Client.ModelID())
	case strings.ContainsAny(arg, " \t/"):
		r.send(chatID, "Некорректный id модели")
	default:
		r.setModel(chatID, arg)
		r.send(chatID, "✅ Модель: "+arg)
	}
}

func (r *Router) handleHistory(chatID int64) {
	if r.History == nil {
		r.send(chatID, "История не ведётся")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.History.ListByChat(ctx, chatID, 5)
	if err != nil {
		log.Printf("history chat=%d: %v", chatID, err)
		r.SendError(chatID, err)
		return
	}
	r.send(chatID, formatHistory(rows))
}

// clientFor возвращает клиент с моделью, выбранной в чате.
func (r *Router) clientFor(chatID int64) *clarifai.Client {
	if m := r.getModel(chatID); m != "" {
		return r.Client.ForModel(m)
	}
	return r.Client
}

func (r *Router) modelFor(chatID int64) string {
	return r.clientFor(chatID).ModelID()
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, 3900))
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram send chat=%d: %v", chatID, err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка распознавания: %v", err))
}

func (r *Router) record(chatID int64, hash string, src store.Source, modelID string, resp clarifai.Response) {
	if r.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.History.Insert(ctx, chatID, hash, src, modelID, resp); err != nil {
		log.Printf("history insert chat=%d: %v", chatID, err)
	}
}
