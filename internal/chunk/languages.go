package chunk

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/semcs/ck/internal/core"
)

// LanguageConfig names a language and the tree-sitter node kinds that produce
// structural chunks.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// Node kinds mapped to chunk types.
	FunctionKinds []string
	MethodKinds   []string
	ClassKinds    []string
	ModuleKinds   []string
}

// Registry maps extensions to language configs and tree-sitter grammars.
// Languages without a grammar (haskell, zig, ...) are detected by name for
// result tagging but chunked generically.
type Registry struct {
	mu        sync.RWMutex
	configs   map[string]*LanguageConfig
	extToLang map[string]string
	grammars  map[string]*sitter.Language
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry, built once.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = newRegistry()
	})
	return defaultRegistry
}

func newRegistry() *Registry {
	r := &Registry{
		configs:   make(map[string]*LanguageConfig),
		extToLang: make(map[string]string),
		grammars:  make(map[string]*sitter.Language),
	}

	r.register(&LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionKinds: []string{"function_declaration"},
		MethodKinds:   []string{"method_declaration"},
		ClassKinds:    []string{"type_declaration"},
	}, golang.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "python",
		Extensions:    []string{".py", ".pyi"},
		FunctionKinds: []string{"function_definition"},
		ClassKinds:    []string{"class_definition"},
	}, python.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "javascript",
		Extensions:    []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionKinds: []string{"function_declaration", "generator_function_declaration"},
		MethodKinds:   []string{"method_definition"},
		ClassKinds:    []string{"class_declaration"},
	}, javascript.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "typescript",
		Extensions:    []string{".ts", ".mts", ".cts"},
		FunctionKinds: []string{"function_declaration", "generator_function_declaration"},
		MethodKinds:   []string{"method_definition"},
		ClassKinds:    []string{"class_declaration", "interface_declaration", "enum_declaration"},
		ModuleKinds:   []string{"module"},
	}, typescript.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "tsx",
		Extensions:    []string{".tsx"},
		FunctionKinds: []string{"function_declaration"},
		MethodKinds:   []string{"method_definition"},
		ClassKinds:    []string{"class_declaration", "interface_declaration"},
	}, tsx.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "rust",
		Extensions:    []string{".rs"},
		FunctionKinds: []string{"function_item"},
		ClassKinds:    []string{"struct_item", "enum_item", "trait_item", "impl_item"},
		ModuleKinds:   []string{"mod_item"},
	}, rust.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "ruby",
		Extensions:    []string{".rb", ".rake"},
		FunctionKinds: []string{"method"},
		MethodKinds:   []string{"singleton_method"},
		ClassKinds:    []string{"class"},
		ModuleKinds:   []string{"module"},
	}, ruby.GetLanguage())

	r.register(&LanguageConfig{
		Name:          "csharp",
		Extensions:    []string{".cs"},
		FunctionKinds: []string{"local_function_statement"},
		MethodKinds:   []string{"method_declaration", "constructor_declaration"},
		ClassKinds:    []string{"class_declaration", "struct_declaration", "interface_declaration", "enum_declaration", "record_declaration"},
		ModuleKinds:   []string{"namespace_declaration"},
	}, csharp.GetLanguage())

	// Detected for tagging only; no grammar, generic chunking.
	r.registerNameOnly("haskell", ".hs", ".lhs")
	r.registerNameOnly("zig", ".zig")
	r.registerNameOnly("c", ".c", ".h")
	r.registerNameOnly("markdown", ".md", ".markdown")
	r.registerNameOnly("yaml", ".yaml", ".yml")
	r.registerNameOnly("json", ".json")
	r.registerNameOnly("shell", ".sh", ".bash")

	return r
}

func (r *Registry) register(cfg *LanguageConfig, grammar *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Name] = cfg
	r.grammars[cfg.Name] = grammar
	for _, ext := range cfg.Extensions {
		r.extToLang[ext] = cfg.Name
	}
}

func (r *Registry) registerNameOnly(name string, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.extToLang[ext] = name
	}
}

// DetectLanguage returns the language name for a file path, or "" when the
// extension is unknown.
func (r *Registry) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extToLang[ext]
}

// Config returns the structural config for a language, when a grammar exists.
func (r *Registry) Config(lang string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[lang]
	return cfg, ok
}

// Grammar returns the tree-sitter grammar for a language.
func (r *Registry) Grammar(lang string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[lang]
	return g, ok
}

// chunkTypeFor maps a node kind to its chunk type under cfg.
func (cfg *LanguageConfig) chunkTypeFor(kind string) (core.ChunkType, bool) {
	for _, k := range cfg.FunctionKinds {
		if k == kind {
			return core.ChunkTypeFunction, true
		}
	}
	for _, k := range cfg.MethodKinds {
		if k == kind {
			return core.ChunkTypeMethod, true
		}
	}
	for _, k := range cfg.ClassKinds {
		if k == kind {
			return core.ChunkTypeClass, true
		}
	}
	for _, k := range cfg.ModuleKinds {
		if k == kind {
			return core.ChunkTypeModule, true
		}
	}
	return "", false
}
