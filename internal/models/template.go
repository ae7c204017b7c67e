package models

// Template is a stored email template. Title acts as the subject and Message
// as the body; both may contain placeholder tokens that are resolved per
// recipient at send time.
type Template struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IsHTML  bool   `json:"is_html"`
}
