package extract

// FunctionSignature is the per-function summary propagated into the
// knowledge graph and stored in the delta cache.
type FunctionSignature struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}
