package dto

type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}

type UploadForm struct {
	CoreCount string `form:"core_count"`
	Memory    string `form:"memory"`
	Duration  string `form:"duration"`
	Prefix    string `form:"prefix"`
}

type Table struct {
	Header []string
	Rows   [][]string
}

type HomeView struct {
	Operator string
	FileName string
	Error    string
	Form     UploadForm
	Preview  *Table
	Result   *Table
}
