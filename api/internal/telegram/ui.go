package telegram

import (
	"fmt"
	"strings"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/store"
)

const startText = `Пришли фото или ссылку на картинку — верну, что на ней распознано.
Команды: /model, /history, /health`

// successCode: код Clarifai для успешного ответа.
const successCode = 10000

func formatPrediction(modelID string, resp clarifai.Response, top []clarifai.Concept) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Модель %s:\n", modelID)
	if resp.Status.Code != 0 && resp.Status.Code != successCode {
		fmt.Fprintf(&b, "⚠️ %s (%.0f)\n", resp.Status.Description, resp.Status.Code)
	}
	if len(top) == 0 {
		b.WriteString("Ничего не распознал 🤷")
		return b.String()
	}
	for _, c := range top {
		fmt.Fprintf(&b, "• %s — %.0f%%\n", c.Name, c.Value*100)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistory(rows []store.PredictionRow) string {
	if len(rows) == 0 {
		return "История пуста"
	}
	var b strings.Builder
	b.WriteString("🕘 Последние распознавания:\n")
	for _, row := range rows {
		top := row.TopConcept
		if top == "" {
			top = "—"
		}
		fmt.Fprintf(&b, "%s · %s · %s %.0f%%\n",
			row.CreatedAt.Format("02.01 15:04"), row.ModelID, top, row.TopValue*100)
	}
	return strings.TrimRight(b.String(), "\n")
}
