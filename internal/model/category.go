package model

type Category struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}

type CategorySuggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
