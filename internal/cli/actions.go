package cli

// Indirections replaced by tests.
var (
	fnServe = serve
)
