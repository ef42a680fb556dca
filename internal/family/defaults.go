package family

import (
	"github.com/patchplaza/patchwork-cli/internal/github"
	"github.com/patchplaza/patchwork-cli/internal/protocol"
	"github.com/patchplaza/patchwork-cli/internal/sandbox"
)

// Deps carries the backends the default families execute against.
type Deps struct {
	GitHub      *github.Client
	Runner      sandbox.Runner
	Search      Searcher
	Delegate    Answerer
	ScratchDir  string
	MaxParallel int
}

// NewRegistry assembles the default registry. Registration order is the
// one-call detection priority: delegation first, repository access last.
// The sandbox adapter is returned separately so the host can use it as the
// dispatcher's branch reader.
func NewRegistry(d Deps) (*protocol.Registry, *Sandbox) {
	reg := protocol.NewRegistry(d.MaxParallel)
	sb := NewSandbox(d.Runner)

	reg.Add(NewDelegate(d.Delegate))
	reg.Add(NewScratchpad(d.ScratchDir))
	reg.Add(NewWebSearch(d.Search))
	reg.Add(NewAskUser())
	reg.Add(sb)
	reg.Add(NewGitHub(d.GitHub))

	reg.Protect("sandbox_prepare_commit", "sandbox_push")
	return reg, sb
}
