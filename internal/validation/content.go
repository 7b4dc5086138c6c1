package validation

// MaxPostContentLength is counted in runes, not bytes.
const MaxPostContentLength = 5000

// PostContent is the body of a create or edit request.
type PostContent struct {
	Content string `json:"content" validate:"notblank,max=5000"`
}

// ValidatePostContent rejects blank or oversized post bodies.
func ValidatePostContent(content string) error {
	return check(PostContent{Content: content})
}
