package raw

import "strings"

// Paths in this module follow one convention everywhere: absolute paths are
// slash-separated, directories end with "/", and the root is "/". Services
// translate to their native representation at the edge.

// NormalizeRoot forces a root into absolute, slash-terminated form.
// "" and "/" both normalize to "/".
func NormalizeRoot(root string) string {
	if root == "" {
		return "/"
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root
}

// IsDirPath reports whether path addresses a directory.
func IsDirPath(path string) bool {
	return path == "" || path == "/" || strings.HasSuffix(path, "/")
}

// BuildAbsPath joins a normalized root with a relative path.
func BuildAbsPath(root, path string) string {
	root = NormalizeRoot(root)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return root
	}
	return root + path
}

// BuildRelPath strips the root prefix from an absolute path.
func BuildRelPath(root, absPath string) string {
	root = NormalizeRoot(root)
	return strings.TrimPrefix(absPath, root)
}

// ParentDir returns the slash-terminated parent directory of path.
// The parent of a root-level path is "/".
func ParentDir(path string) string {
	p := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx+1]
}

// BaseName returns the final segment of path. Directory paths keep their
// trailing slash so that mode stays recoverable from the name.
func BaseName(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	name := trimmed[idx+1:]
	if strings.HasSuffix(path, "/") {
		name += "/"
	}
	return name
}
