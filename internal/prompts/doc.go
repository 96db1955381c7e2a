// Package prompts contains the prompt templates webmcp offers to MCP clients.
//
// Prompt text is Go code rather than config files: templates use
// fmt.Sprintf interpolation and can be checked by tests.
//
// Convention: each prompt gets its own file with an exported function that
// accepts the dynamic parts and returns the fully interpolated prompt string.
package prompts
