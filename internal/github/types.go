package github

// PullRequest is the subset of the pulls payload the agent surfaces.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Issue is the subset of the issues payload the agent surfaces. The
// PullRequest field is non-nil when the "issue" is actually a PR.
type Issue struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	State       string `json:"state"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	User        User   `json:"user"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// User is an issue or PR author.
type User struct {
	Login string `json:"login"`
}

// Ref is a PR head or base reference.
type Ref struct {
	Ref string `json:"ref"`
}

// CodeMatch is one code search hit.
type CodeMatch struct {
	Path       string `json:"path"`
	HTMLURL    string `json:"html_url"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type codeSearchResult struct {
	TotalCount int         `json:"total_count"`
	Items      []CodeMatch `json:"items"`
}

type fileContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
}

type repoInfo struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
}

type ghError struct {
	Message string `json:"message"`
}
