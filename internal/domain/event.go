package domain

// Pull request actions the orchestrator reacts to. All other actions are
// ignored at the boundary.
const (
	ActionOpened      = "opened"
	ActionSynchronize = "synchronize"
	ActionReopened    = "reopened"
	ActionDeleted     = "deleted"
)

// PullRequestEvent is the domain form of an inbound pull request webhook.
// InstallationID is zero when the delivery did not carry one.
type PullRequestEvent struct {
	Action         string
	Owner          string
	Repo           string
	Number         int
	Title          string
	Description    string
	HeadSHA        string
	InstallationID int64
}

// InstallationEvent is the domain form of an inbound installation webhook.
// Accounts lists every owner named in the event's repository list.
type InstallationEvent struct {
	Action   string
	Accounts []string
}

// ChangedFile is one entry from a pull request's changed-file listing.
type ChangedFile struct {
	Path   string
	Status string
}

// FileContent pairs a changed file path with its fetched content at the
// head commit of the pull request.
type FileContent struct {
	Path    string
	Content string
}
