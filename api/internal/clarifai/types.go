package clarifai

import (
	"sort"

	"github.com/tidwall/gjson"
)

// Все типы ниже: снимки ответа /outputs. Декодирование из gjson.Result
// никогда не падает: отсутствующее или кривое поле даёт нулевое значение.

type Status struct {
	Code        float64 `json:"code"`
	Description string  `json:"description"`
}

func NewStatus(code float64, description string) Status {
	return Status{Code: code, Description: description}
}

func StatusFrom(n gjson.Result) Status {
	return Status{
		Code:        num(n.Get("code")),
		Description: str(n.Get("description")),
	}
}

// Concept: одна метка модели со степенью уверенности.
type Concept struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	AppID string  `json:"app_id"`
	Value float64 `json:"value"`
}

func NewConcept(id, name, appID string, value float64) Concept {
	return Concept{ID: id, Name: name, AppID: appID, Value: value}
}

func ConceptFrom(n gjson.Result) Concept {
	appID := n.Get("appId")
	if !appID.Exists() {
		appID = n.Get("app_id")
	}
	return Concept{
		ID:    str(n.Get("id")),
		Name:  str(n.Get("name")),
		AppID: str(appID),
		Value: num(n.Get("value")),
	}
}

type Data struct {
	Concepts []Concept `json:"concepts"`
}

func NewData(concepts []Concept) Data {
	if concepts == nil {
		concepts = []Concept{}
	}
	return Data{Concepts: concepts}
}

func DataFrom(n gjson.Result) Data {
	items := array(n.Get("concepts"))
	concepts := make([]Concept, 0, len(items))
	for _, c := range items {
		concepts = append(concepts, ConceptFrom(c))
	}
	return Data{Concepts: concepts}
}

type OutputInfo struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOutputInfo(message, typ string) OutputInfo {
	return OutputInfo{Message: message, Type: typ}
}

func OutputInfoFrom(n gjson.Result) OutputInfo {
	return OutputInfo{
		Message: str(n.Get("message")),
		Type:    str(n.Get("type")),
	}
}

type ModelVersion struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Status    Status `json:"status"`
}

func NewModelVersion(id, createdAt string, status Status) ModelVersion {
	return ModelVersion{ID: id, CreatedAt: createdAt, Status: status}
}

func ModelVersionFrom(n gjson.Result) ModelVersion {
	return ModelVersion{
		ID:        str(n.Get("id")),
		CreatedAt: str(n.Get("created_at")),
		Status:    StatusFrom(n.Get("status")),
	}
}

// Model: метаданные модели, выдавшей Output.
type Model struct {
	Name         string       `json:"name"`
	ID           string       `json:"id"`
	CreatedAt    string       `json:"created_at"`
	AppID        string       `json:"app_id"`
	OutputInfo   OutputInfo   `json:"output_info"`
	ModelVersion ModelVersion `json:"model_version"`
}

func NewModel(name, id, createdAt, appID string, info OutputInfo, version ModelVersion) Model {
	return Model{
		Name:         name,
		ID:           id,
		CreatedAt:    createdAt,
		AppID:        appID,
		OutputInfo:   info,
		ModelVersion: version,
	}
}

func ModelFrom(n gjson.Result) Model {
	return Model{
		Name:         str(n.Get("name")),
		ID:           str(n.Get("id")),
		CreatedAt:    str(n.Get("created_at")),
		AppID:        str(n.Get("app_id")),
		OutputInfo:   OutputInfoFrom(n.Get("output_info")),
		ModelVersion: ModelVersionFrom(n.Get("model_version")),
	}
}

// Output: результат предсказания для одного входа.
type Output struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Status    Status `json:"status"`
	Model     Model  `json:"model"`
	Data      Data   `json:"data"`
}

func NewOutput(id, createdAt string, status Status, model Model, data Data) Output {
	return Output{ID: id, CreatedAt: createdAt, Status: status, Model: model, Data: data}
}

func OutputFrom(n gjson.Result) Output {
	return Output{
		ID:        str(n.Get("id")),
		CreatedAt: str(n.Get("created_at")),
		Status:    StatusFrom(n.Get("status")),
		Model:     ModelFrom(n.Get("model")),
		Data:      DataFrom(n.Get("data")),
	}
}

type Response struct {
	Status  Status   `json:"status"`
	Outputs []Output `json:"outputs"`
}

func NewResponse(status Status, outputs []Output) Response {
	if outputs == nil {
		outputs = []Output{}
	}
	return Response{Status: status, Outputs: outputs}
}

func ResponseFrom(n gjson.Result) Response {
	items := array(n.Get("outputs"))
	outputs := make([]Output, 0, len(items))
	for _, o := range items {
		outputs = append(outputs, OutputFrom(o))
	}
	return Response{
		Status:  StatusFrom(n.Get("status")),
		Outputs: outputs,
	}
}

// ParseResponse декодирует сырое тело ответа. Невалидный JSON даёт пустой Response.
func ParseResponse(body []byte) Response {
	return ResponseFrom(gjson.ParseBytes(body))
}

// Concepts возвращает концепты первого output (обычно он единственный).
func (r Response) Concepts() []Concept {
	if len(r.Outputs) == 0 {
		return nil
	}
	return r.Outputs[0].Data.Concepts
}

// TopConcepts: концепты первого output по убыванию value, не ниже minValue.
// n <= 0 значит без ограничения.
func (r Response) TopConcepts(n int, minValue float64) []Concept {
	src := r.Concepts()
	out := make([]Concept, 0, len(src))
	for _, c := range src {
		if c.Value >= minValue {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// str отдаёт строку только для строкового узла; числа/объекты → "".
func str(n gjson.Result) string {
	if n.Type != gjson.String {
		return ""
	}
	return n.Str
}

// num не приводит строки и bool: всё, что не число, даёт 0.
func num(n gjson.Result) float64 {
	if n.Type != gjson.Number {
		return 0
	}
	return n.Num
}

func array(n gjson.Result) []gjson.Result {
	if !n.IsArray() {
		return nil
	}
	return n.Array()
}
