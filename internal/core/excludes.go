package core

// IndexDirName is the sidecar directory created at the search root.
const IndexDirName = ".ck"

// IgnoreFileName is the root-level ignore file whose syntax mirrors gitignore.
const IgnoreFileName = ".ckignore"

// DefaultExcludePatterns returns the directory names skipped when gitignore
// handling is off. These are cache, build, and system directories that rarely
// contain user code.
func DefaultExcludePatterns() []string {
	return []string{
		IndexDirName,

		".fastembed_cache",
		".cache",
		"__pycache__",

		".git",
		".svn",
		".hg",

		"target",
		"build",
		"dist",
		"node_modules",
		".gradle",
		".mvn",
		"bin",
		"obj",

		".vscode",
		".idea",
		".eclipse",

		"tmp",
		"temp",
		".tmp",
	}
}

// DefaultCkignoreTemplate is the template served by the MCP default_ckignore
// tool and written by `ck index --init-ignore`.
const DefaultCkignoreTemplate = `# ck ignore file. Syntax mirrors .gitignore.
# Lines here are applied in addition to .gitignore when gitignore handling
# is enabled; with gitignore handling off this file is not read.

# Dependency and build output
node_modules/
target/
dist/
build/

# Editor state
.vscode/
.idea/

# Large generated artifacts
*.min.js
*.map
*.lock
`
