package run

// Well-known field keys shared between the run context and step inputs.
const (
	KeyQuery         = "query"
	KeyAttachments   = "attachments"
	KeyTaskType      = "task_type"
	KeyContent       = "content"
	KeyExtractedText = "extracted_text"
)

// Context is the mutable accumulator threaded through one run's steps. It is
// seeded from the request, owned exclusively by the engine for that run, and
// discarded with it. Merges are monotonic: later values overwrite same-named
// earlier ones, and no key is ever removed mid-run.
type Context struct {
	fields map[string]any
}

// NewContext returns a Context seeded with the given fields.
func NewContext(seed map[string]any) *Context {
	c := &Context{fields: make(map[string]any, len(seed))}
	c.Merge(seed)
	return c
}

// Merge copies fields into the context, overwriting on key collision.
func (c *Context) Merge(fields map[string]any) {
	for k, v := range fields {
		c.fields[k] = v
	}
}

// Get returns the value stored under key and whether it is present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.fields[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when the key is
// absent or holds a non-string.
func (c *Context) GetString(key string) string {
	if v, ok := c.fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Snapshot returns a shallow copy of the current fields, for building a step
// input without exposing the live map.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

// Len returns the number of fields currently held.
func (c *Context) Len() int { return len(c.fields) }
