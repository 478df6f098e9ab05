package clarifai

const DefaultBaseURL = "https://api.clarifai.com/v2"

// ----- Request -----
type PredictRequest struct {
	Inputs []Input `json:"inputs"`
}

type Input struct {
	Data InputData `json:"data"`
}

type InputData struct {
	Image Image `json:"image"`
}

// Image: ровно одно из полей заполнено.
type Image struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// BuildURL склеивает endpoint модели как есть, без экранирования modelID.
func BuildURL(base, modelID string) string {
	return base + "/models/" + modelID + "/outputs"
}

func BuildBody(imageSrc string, inBytes bool) PredictRequest {
	var img Image
	if inBytes {
		img.Base64 = imageSrc
	} else {
		img.URL = imageSrc
	}
	return PredictRequest{
		Inputs: []Input{{Data: InputData{Image: img}}},
	}
}

func BuildHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Key " + apiKey,
		"Accept":        "application/json",
	}
}
