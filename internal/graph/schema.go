package graph

import (
	"path/filepath"
	"strings"
)

// --- Enums ---

// ContainsKind names the endpoint pairing of a containment edge. The graph
// keeps one CONTAINS relationship table with multiple FROM/TO pairs, so the
// kind picks which pair a merge targets.
type ContainsKind string

const (
	ContainsRepoFolder   ContainsKind = "repo_folder"
	ContainsRepoFile     ContainsKind = "repo_file"
	ContainsFolderFolder ContainsKind = "folder_folder"
	ContainsFolderFile   ContainsKind = "folder_file"
)

// Language identifies the language tag stored on a File node.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangMarkdown   Language = "markdown"
	LangYAML       Language = "yaml"
	LangJSON       Language = "json"
)

var extLanguages = map[string]Language{
	".go":   LangGo,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".py":   LangPython,
	".rs":   LangRust,
	".md":   LangMarkdown,
	".yml":  LangYAML,
	".yaml": LangYAML,
	".json": LangJSON,
}

// LanguageForPath derives the language tag for a file from its extension.
// Extensions without a named language fall back to the bare suffix
// ("toml" for config.toml); extensionless files get an empty tag.
func LanguageForPath(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	return Language(strings.TrimPrefix(ext, "."))
}

// --- Models ---

// RepoNode represents one scanned repository. RootPath is the natural key;
// ID is the surrogate assigned by the store on first insert.
type RepoNode struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	RootPath string `json:"rootPath"`
}

// FolderNode represents a directory inside a repository. Path is the
// canonical absolute path and acts as the natural key.
type FolderNode struct {
	Path   string `json:"path"`
	Depth  int    `json:"depth"` // path segments below the repository root
	RepoID int64  `json:"repoId"`
}

// FileNode represents a regular file inside a repository. Path is the
// canonical absolute path and acts as the natural key.
type FileNode struct {
	Path   string   `json:"path"`
	Lang   Language `json:"lang"`
	Digest string   `json:"sha256"` // hex SHA-256 of the file contents
	Size   int64    `json:"size"`
	RepoID int64    `json:"repoId"`
}

// ContainsEdge represents one containment relationship, addressed by the
// natural keys of its endpoints.
type ContainsEdge struct {
	Kind       ContainsKind `json:"kind"`
	ParentPath string       `json:"parentPath"` // repository root path for repo_* kinds
	ChildPath  string       `json:"childPath"`
}

// GraphStats summarizes the repository graph.
type GraphStats struct {
	RepositoryCount int `json:"repositoryCount"`
	FolderCount     int `json:"folderCount"`
	FileCount       int `json:"fileCount"`
	EdgeCount       int `json:"edgeCount"`
}
