package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Language represents a supported source language.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangUnknown    Language = "unknown"
)

var (
	// ErrSyntax is wrapped by every error reporting source that does not parse.
	ErrSyntax = errors.New("syntax error")

	// ErrFileTooLarge is returned when a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// SyntaxError locates the first error or missing node in a parsed tree.
// Line and Column are 1-based.
type SyntaxError struct {
	Path   string
	Line   uint32
	Column uint32
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("syntax error at %d:%d", e.Line, e.Column)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

// Unwrap lets errors.Is match ErrSyntax.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parser wraps tree-sitter configured for JavaScript.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// Root returns the root node of the tree, or nil.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	return p.ParseFileWithLimit(path, 0)
}

// ParseFileWithLimit parses a source file, refusing files larger than
// maxSize bytes. A maxSize of 0 disables the check.
func (p *Parser) ParseFileWithLimit(path string, maxSize int64) (*ParseResult, error) {
	source, err := ReadSource(path, maxSize)
	if err != nil {
		return nil, err
	}
	return p.Parse(source, path)
}

// ReadSource reads a file, returning ErrFileTooLarge for files over maxSize
// bytes. A maxSize of 0 disables the check.
func ReadSource(path string, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("%w: %s (%s, limit %s)", ErrFileTooLarge, path,
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(maxSize)))
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return source, nil
}

// Parse parses JavaScript source. path is only used for error messages
// and may be empty.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	return p.ParseContext(context.Background(), source, path)
}

// ParseContext is Parse with cancellation.
func (p *Parser) ParseContext(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root, path)
	}

	return &ParseResult{
		Tree:   tree,
		Source: source,
		Path:   path,
	}, nil
}

// firstError finds the earliest ERROR or MISSING node below root.
func firstError(root *sitter.Node, path string) *SyntaxError {
	bad := root
	Walk(root, nil, func(node *sitter.Node, _ []byte) bool {
		if bad != root {
			return false
		}
		if node.IsError() || node.IsMissing() {
			bad = node
			return false
		}
		// Only descend into subtrees that contain the error.
		return node.HasError()
	})

	pos := bad.StartPoint()
	return &SyntaxError{
		Path:   path,
		Line:   pos.Row + 1,
		Column: pos.Column + 1,
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	default:
		return LangUnknown
	}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node. Returning false
// skips the node's children.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodesByType returns all nodes of a specific type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	WalkTyped(root, source, func(node *sitter.Node, t string, _ []byte) bool {
		if t == nodeType {
			results = append(results, node)
		}
		return true
	})
	return results
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
