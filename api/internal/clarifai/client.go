package clarifai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vision-bot/api/internal/util"
)

// Client держит один статический ключ и id модели на всё время жизни.
// Поля после New не меняются, поэтому параллельные вызовы безопасны.
type Client struct {
	apiKey  string
	modelID string
	baseURL string
	httpc   *http.Client
	onError func(error)
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithErrorHandler включает доставку ошибок асинхронных вызовов.
// Без него ошибка PredictFromURL/PredictFromBytes только логируется.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onError = fn }
}

func New(apiKey, modelID string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		modelID: modelID,
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) ModelID() string { return c.modelID }

// With возвращает копию клиента с дополнительными опциями; исходный не меняется.
func (c *Client) With(opts ...Option) *Client {
	cp := *c
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// ForModel возвращает клиента с тем же ключом и транспортом, но другой моделью.
func (c *Client) ForModel(modelID string) *Client {
	return c.With(func(cp *Client) { cp.modelID = modelID })
}

// PredictFromURL отправляет ссылку на изображение. Возвращается сразу;
// onComplete вызывается не более одного раза и только при успехе.
func (c *Client) PredictFromURL(ctx context.Context, imageSrc string, onComplete func(Response)) {
	go c.performPrediction(ctx, imageSrc, false, onComplete)
}

// PredictFromBytes: то же, но imageSrc это base64 самого изображения.
func (c *Client) PredictFromBytes(ctx context.Context, imageSrc string, onComplete func(Response)) {
	go c.performPrediction(ctx, imageSrc, true, onComplete)
}

func (c *Client) performPrediction(ctx context.Context, imageSrc string, inBytes bool, onComplete func(Response)) {
	resp, err := c.Predict(ctx, imageSrc, inBytes)
	if err != nil {
		log.Printf("clarifai: predict model=%s: %v", c.modelID, err)
		if c.onError != nil {
			c.onError(err)
		}
		return
	}
	if onComplete != nil {
		onComplete(resp)
	}
}

// PredictImage кодирует сырые байты в base64 и делает синхронный Predict.
func (c *Client) PredictImage(ctx context.Context, image []byte) (Response, error) {
	return c.Predict(ctx, base64.StdEncoding.EncodeToString(image), true)
}

// Predict: синхронный вариант с явной ошибкой.
func (c *Client) Predict(ctx context.Context, imageSrc string, inBytes bool) (Response, error) {
	payload, err := json.Marshal(BuildBody(imageSrc, inBytes))
	if err != nil {
		return Response{}, &PredictError{Kind: ErrKindTransport, Err: fmt.Errorf("marshal body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BuildURL(c.baseURL, c.modelID), bytes.NewReader(payload))
	if err != nil {
		return Response{}, &PredictError{Kind: ErrKindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range BuildHeaders(c.apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Response{}, &PredictError{Kind: ErrKindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &PredictError{Kind: ErrKindTransport, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &PredictError{
			Kind:       ErrKindStatus,
			StatusCode: resp.StatusCode,
			Body:       truncate(body, 512),
		}
	}
	if !gjson.ValidBytes(body) {
		return Response{}, &PredictError{
			Kind:       ErrKindDecode,
			StatusCode: resp.StatusCode,
			Body:       truncate(body, 512),
		}
	}
	return ParseResponse(body), nil
}

// truncate обрезает тело по рунам: текст ошибки уходит в Telegram, а тот
// не принимает битый UTF-8.
func truncate(b []byte, n int) string {
	return util.Truncate(strings.ToValidUTF8(string(b), "\uFFFD"), n)
}
