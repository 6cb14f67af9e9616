// Package catalog loads the character catalog, a YAML file listing each
// character's id, canonical name, and per-language display names, and
// resolves free-text speaker labels against it.
package catalog
