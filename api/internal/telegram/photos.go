package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/store"
	"vision-bot/api/internal/util"
)

const maxPhotoBytes = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	// самое большое превью идёт последним
	ph := msg.Photo[len(msg.Photo)-1]
	url, err := r.Bot.GetFileDirectURL(ph.FileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	img, err := r.download(ctx, url)
	if err != nil {
		r.SendError(cid, fmt.Errorf("не смог скачать фото: %w", err))
		return
	}
	r.send(cid, "Принял фото, распознаю…")

	cl := r.clientFor(cid)
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()
	resp, err := cl.PredictImage(ctx, img)
	if err != nil {
		log.Printf("predict photo chat=%d model=%s: %v", cid, cl.ModelID(), err)
		r.SendError(cid, err)
		return
	}

	top := resp.TopConcepts(r.TopN, r.MinValue)
	text := formatPrediction(cl.ModelID(), resp, top)
	if c := r.caption(ctx, img, util.SniffMimeHTTP(img), top, msg.From); c != "" {
		text = "💬 " + c + "\n\n" + text
	}
	r.send(cid, text)
	r.record(cid, util.SHA256Hex(img), store.SourceBytes, cl.ModelID(), resp)
}

// acceptURL идёт асинхронным путём клиента: ответ приходит в колбэк,
// ошибка уходит в обработчик, привязанный к чату.
func (r *Router) acceptURL(ctx context.Context, cid int64, imageURL string, from *tgbotapi.User) {
	cl := r.clientFor(cid).With(clarifai.WithErrorHandler(func(err error) {
		r.SendError(cid, err)
	}))
	r.send(cid, "Принял ссылку, распознаю…")
	cl.PredictFromURL(ctx, imageURL, func(resp clarifai.Response) {
		top := resp.TopConcepts(r.TopN, r.MinValue)
		text := formatPrediction(cl.ModelID(), resp, top)
		if c := r.caption(ctx, nil, "", top, from); c != "" {
			text = "💬 " + c + "\n\n" + text
		}
		r.send(cid, text)
		r.record(cid, util.SHA256Hex([]byte(imageURL)), store.SourceURL, cl.ModelID(), resp)
	})
}

func (r *Router) caption(ctx context.Context, img []byte, mime string, top []clarifai.Concept, from *tgbotapi.User) string {
	if r.Captioner == nil || len(top) == 0 {
		return ""
	}
	lang := ""
	if from != nil {
		lang = from.LanguageCode
	}
	c, err := r.Captioner.Caption(ctx, img, mime, top, lang)
	if err != nil {
		log.Printf("caption: %v", err)
		return ""
	}
	return c
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxPhotoBytes {
		return nil, fmt.Errorf("фото больше %d МБ", maxPhotoBytes>>20)
	}
	return b, nil
}
