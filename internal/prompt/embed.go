package prompt

import _ "embed"

//go:embed docs/protocol.md
var protocolDoc string

//go:embed docs/workflow.md
var workflowDoc string

// Embedded returns the raw embedded documents for inspection.
func Embedded() (protocol, workflow string) {
	return protocolDoc, workflowDoc
}
