// Package mailer holds the mail templates and the outbound transport contract.
//
// Templates are stored by name and compiled on demand. A template body is Go
// template source, optionally preceded by YAML frontmatter:
//
//	---
//	format: markdown
//	---
//	# Hi {{.name}}
//
//	[!button|Confirm](https://example.com/confirm?t={{.token}})
//
// Rendering is strict: a variable the body references but the parameters do
// not provide fails the render with a *MissingVariableError instead of
// producing an empty string. HTML bodies are escaped by html/template; markdown
// bodies bind variables first and are then converted by goldmark.
//
// Resolver looks templates up in a Store and caches compiled forms keyed by
// name and body digest, so an overwritten template is recompiled on next use.
//
// Sender is implemented by the resend, ses and stdout subpackages.
package mailer
