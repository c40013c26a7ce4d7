package workflow

import (
	"path"
	"strings"
)

// Marker is the substring that identifies already-annotated output objects.
const Marker = "__boxed"

// outputSuffix is appended to an input's base name to form its output name.
const outputSuffix = Marker + ".png"

// imageExtensions is the allow-list of input extensions, lower-case.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// IsOutput reports whether the object name denotes an annotated output.
func IsOutput(name string) bool {
	return strings.Contains(name, Marker)
}

// OutputName derives the annotated-output object name for an input object.
func OutputName(input string) string {
	return baseName(input) + outputSuffix
}

// baseName strips the marker suffix from an output name, or the extension
// from an input name, so the two sides of the naming relation compare equal.
func baseName(name string) string {
	if i := strings.Index(name, Marker); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

func hasImageExtension(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Partition splits a bucket listing into existing annotated outputs and
// candidate inputs, both in listing order. An object is a candidate only if
// its extension is on the image allow-list and no output with the same base
// name exists in the listing. Names matching neither category are ignored,
// so the function is total over arbitrary strings.
func Partition(names []string) (outputs, candidates []string) {
	annotated := make(map[string]bool)
	for _, name := range names {
		if IsOutput(name) {
			annotated[baseName(name)] = true
		}
	}

	for _, name := range names {
		switch {
		case IsOutput(name):
			outputs = append(outputs, name)
		case hasImageExtension(name) && !annotated[baseName(name)]:
			candidates = append(candidates, name)
		}
	}
	return outputs, candidates
}
