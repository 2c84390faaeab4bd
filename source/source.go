// Package source holds the text of a single Lox program and its name,
// the unit every token index and parse-tree span ultimately points back
// into.
package source

// File is one loaded Lox source file.
type File struct {
	Name string
	Text string
}

// New wraps a name and its text into a File.
func New(name, text string) *File {
	return &File{Name: name, Text: text}
}
