package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/store"
)

const catBody = `{"status":{"code":10000,"description":"Ok"},"outputs":[{"id":"o1","data":{"concepts":[
  {"name":"pet","value":0.5},{"name":"cat","value":0.91}]}}]}`

type fakeBot struct {
	mu      sync.Mutex
	texts   []string
	fileURL string
	sent    chan string
}

func newFakeBot(fileURL string) *fakeBot {
	return &fakeBot{fileURL: fileURL, sent: make(chan string, 16)}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	b.mu.Lock()
	b.texts = append(b.texts, m.Text)
	b.mu.Unlock()
	b.sent <- m.Text
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if b.fileURL == "" {
		return "", errors.New("no file")
	}
	return b.fileURL + "/" + fileID, nil
}

func (b *fakeBot) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-b.sent:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no message sent")
		return ""
	}
}

type fakeHistory struct {
	mu       sync.Mutex
	inserted []store.PredictionRow
}

func (h *fakeHistory) Insert(_ context.Context, chatID int64, hash string, src store.Source, modelID string, resp clarifai.Response) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inserted = append(h.inserted, store.PredictionRow{ChatID: chatID, ImageHash: hash, Source: src, ModelID: modelID, Response: resp})
	return int64(len(h.inserted)), nil
}

func (h *fakeHistory) ListByChat(_ context.Context, chatID int64, _ int) ([]store.PredictionRow, error) {
	return []store.PredictionRow{{
		CreatedAt:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		ChatID:     chatID,
		ModelID:    "general",
		TopConcept: "cat",
		TopValue:   0.91,
	}}, nil
}

func (h *fakeHistory) rows() []store.PredictionRow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]store.PredictionRow(nil), h.inserted...)
}

type fakeCaptioner struct{ lang string }

func (c *fakeCaptioner) Caption(_ context.Context, _ []byte, _ string, concepts []clarifai.Concept, lang string) (string, error) {
	c.lang = lang
	return "A " + concepts[0].Name + ".", nil
}

func newTestRouter(t *testing.T, status int, body string, fileURL string) (*Router, *fakeBot, *[]string) {
	t.Helper()
	var paths []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	bot := newFakeBot(fileURL)
	r := NewRouter(bot, clarifai.New("k", "general", clarifai.WithBaseURL(srv.URL)))
	return r, bot, &paths
}

func command(chatID int64, text string, cmdLen int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func text(chatID int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: 7, LanguageCode: "ru"},
		Text: s,
	}}
}

func TestRouter_PhotoFlow(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3})
	}))
	defer files.Close()

	r, bot, _ := newTestRouter(t, http.StatusOK, catBody, files.URL)
	hist := &fakeHistory{}
	capt := &fakeCaptioner{}
	r.History = hist
	r.Captioner = capt

	upd := text(1, "")
	upd.Message.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}
	r.HandleUpdate(upd)

	assert.Equal(t, "Принял фото, распознаю…", bot.next(t))
	reply := bot.next(t)
	assert.Equal(t, "💬 A cat.\n\n🔎 Модель general:\n• cat — 91%\n• pet — 50%", reply)
	assert.Equal(t, "ru", capt.lang)

	rows := hist.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, store.SourceBytes, rows[0].Source)
	assert.Equal(t, "general", rows[0].ModelID)
	assert.Len(t, rows[0].ImageHash, 64)
}

func TestRouter_URLFlowUsesChatModel(t *testing.T) {
	r, bot, paths := newTestRouter(t, http.StatusOK, catBody, "")
	hist := &fakeHistory{}
	r.History = hist
	r.TopN = 1

	r.HandleUpdate(command(5, "/model food", 6))
	assert.Equal(t, "✅ Модель: food", bot.next(t))

	r.HandleUpdate(text(5, "https://samples.clarifai.com/metro-north.jpg"))
	assert.Equal(t, "Принял ссылку, распознаю…", bot.next(t))
	assert.Equal(t, "🔎 Модель food:\n• cat — 91%", bot.next(t))
	assert.Equal(t, []string{"/models/food/outputs"}, *paths)

	require.Eventually(t, func() bool { return len(hist.rows()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, store.SourceURL, hist.rows()[0].Source)
}

func TestRouter_URLFlowFailureReportsError(t *testing.T) {
	r, bot, _ := newTestRouter(t, http.StatusInternalServerError, `{}`, "")
	hist := &fakeHistory{}
	r.History = hist

	r.HandleUpdate(text(9, "http://x/img.jpg"))
	bot.next(t)
	assert.Contains(t, bot.next(t), "Ошибка распознавания: clarifai 500")
	assert.Empty(t, hist.rows())
}

func TestRouter_Commands(t *testing.T) {
	r, bot, _ := newTestRouter(t, http.StatusOK, catBody, "")

	r.HandleUpdate(command(1, "/start", 6))
	assert.Equal(t, startText, bot.next(t))

	r.HandleUpdate(command(1, "/health", 7))
	assert.Equal(t, "✅ OK, модель: general", bot.next(t))

	r.HandleUpdate(command(1, "/model", 6))
	assert.Contains(t, bot.next(t), "Текущая модель: general")

	r.HandleUpdate(command(1, "/model a/b", 6))
	assert.Equal(t, "Некорректный id модели", bot.next(t))

	r.HandleUpdate(command(1, "/model food", 6))
	bot.next(t)
	r.HandleUpdate(command(1, "/model reset", 6))
	assert.Equal(t, "✅ Модель по умолчанию: general", bot.next(t))
	assert.Equal(t, "general", r.modelFor(1))

	r.HandleUpdate(command(1, "/history", 8))
	assert.Equal(t, "История не ведётся", bot.next(t))

	r.History = &fakeHistory{}
	r.HandleUpdate(command(1, "/history", 8))
	assert.Equal(t, "🕘 Последние распознавания:\n15.01 10:30 · general · cat 91%", bot.next(t))

	r.HandleUpdate(command(1, "/nope", 5))
	assert.Equal(t, "Неизвестная команда", bot.next(t))

	r.HandleUpdate(text(1, "привет"))
	assert.Contains(t, bot.next(t), "Пришли фото")
}

func TestFormatPrediction(t *testing.T) {
	empty := clarifai.ParseResponse([]byte(`{"status":{"code":10020,"description":"Failure"}}`))
	assert.Equal(t, "🔎 Модель m:\n⚠️ Failure (10020)\nНичего не распознал 🤷", formatPrediction("m", empty, nil))
}
