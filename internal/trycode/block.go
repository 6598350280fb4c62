// Package trycode finds "try-it" code blocks in a documentation tree.
//
// A try block is a fenced code block whose info string is a language tag
// immediately followed by a {try} marker, optionally carrying an id:
//
//	```js{try id=hello}
//	console.log("hi")
//	```
package trycode

// Block is a try block extracted from a Markdown file.
type Block struct {
	ID        string `json:"id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
	FilePath  string `json:"filePath"`
	StartLine int    `json:"-"`
	EndLine   int    `json:"-"`
}
