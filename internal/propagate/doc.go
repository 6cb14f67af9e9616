// Package propagate writes character identities from assignments back into
// the corpus: speaker labels on segments, "Name: " prefixes on pivot cues and
// on the target cues linked to them, and regenerated subtitle files for every
// touched language.
//
// Database changes and file rewrites succeed or fail together. Files are
// staged first; if swapping them in fails the transaction is rolled back, and
// if the commit fails the previous files are restored.
package propagate
