package domain

// Image содержит Open Graph метаданные изображения, найденные на странице записи.
type Image struct {
	URL       string `json:"url,omitempty"`
	SecureURL string `json:"secure_url,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Alt       string `json:"alt,omitempty"`
	Type      string `json:"type,omitempty"`
}

func (i Image) IsEmpty() bool {
	return i == Image{}
}
