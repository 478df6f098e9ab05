package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vision-bot/api/internal/clarifai"
)

// Captioner превращает фото и концепты Clarifai в одну фразу через Gemini.
type Captioner struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Captioner {
	return &Captioner{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (c *Captioner) Name() string { return "gemini" }

const systemPrompt = `You write one short, neutral sentence describing a photo.
You are given the photo and a list of labels with confidence scores produced by an image recognition model.
Use the labels as hints, do not list them, do not mention scores or the model. Answer in the language of the user message.`

// BuildPrompt собирает пользовательскую часть запроса из концептов.
func BuildPrompt(concepts []clarifai.Concept, lang string) string {
	var b strings.Builder
	if lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	b.WriteString("Labels:\n")
	if len(concepts) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range concepts {
		fmt.Fprintf(&b, "- %s (%.2f)\n", c.Name, c.Value)
	}
	return b.String()
}

func (c *Captioner) Caption(ctx context.Context, image []byte, mime string, concepts []clarifai.Concept, lang string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(0.2),
		MaxOutputTokens: ptrInt32(128),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	parts := []genai.Part{genai.Text(BuildPrompt(concepts, lang))}
	if len(image) > 0 {
		parts = append(parts, &genai.Blob{MIMEType: mime, Data: image})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
