package github

// pullRequestFile is one entry in the changed-file listing response.
type pullRequestFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// fileContent is the contents API response for a single file.
type fileContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// commentRequest is the request body for creating an issue comment.
type commentRequest struct {
	Body string `json:"body"`
}

// GitHubErrorResponse is GitHub's standard error body.
type GitHubErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
