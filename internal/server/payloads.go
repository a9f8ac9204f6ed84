package server

// Minimal webhook payload shapes. Only the fields the pipeline consumes are
// declared; everything else in the delivery is ignored.

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository   repositoryPayload   `json:"repository"`
	Installation installationPayload `json:"installation"`
}

type repositoryPayload struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type installationPayload struct {
	ID      int64 `json:"id"`
	Account struct {
		Login string `json:"login"`
	} `json:"account"`
}

type installationEventPayload struct {
	Action       string              `json:"action"`
	Installation installationPayload `json:"installation"`
	Repositories []struct {
		FullName string `json:"full_name"`
	} `json:"repositories"`
	RepositoriesRemoved []struct {
		FullName string `json:"full_name"`
	} `json:"repositories_removed"`
}

type pingPayload struct {
	Zen    string `json:"zen"`
	HookID int    `json:"hook_id"`
}
