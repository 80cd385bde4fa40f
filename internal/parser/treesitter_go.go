// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
)

// parseGoTreeSitter is the Tree-sitter-backed alternative to parseCFamily
// for Go, used when a Registry's mode prefers AST accuracy over the regex
// pipeline. It walks function_declaration and method_declaration nodes and
// extracts call edges from call_expression nodes within each function body,
// mirroring the teacher's walkGoAST/extractGoCallsFromNodeV2 two-pass
// strategy but folded into this package's uniform Symbol/CallEdge model.
func parseGoTreeSitter(path string, content []byte, _ string) (*model.ParseResult, error) {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	lines := strings.Split(string(content), "\n")
	rec := model.FileRecord{Path: path, Language: langdetect.Go, LineCount: len(lines)}
	var calls []model.CallEdge
	var deps []string

	funcNodes := map[string]*sitter.Node{}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_declaration":
			if sym, ok := goFuncDeclSymbol(n, content, false); ok {
				rec.Symbols = append(rec.Symbols, sym)
				funcNodes[sym.Name] = n
			}
		case "method_declaration":
			if sym, ok := goFuncDeclSymbol(n, content, true); ok {
				rec.Symbols = append(rec.Symbols, sym)
				funcNodes[sym.Name] = n
			}
		case "type_spec":
			if sym, ok := goTypeSpecSymbol(n, content); ok {
				rec.Symbols = append(rec.Symbols, sym)
			}
		case "import_spec":
			if path, ok := goImportPath(n, content); ok {
				deps = append(deps, path)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	for name, n := range funcNodes {
		body := n.ChildByFieldName("body")
		if body == nil {
			continue
		}
		calls = append(calls, goCallsFromNode(body, content, name)...)
	}

	return &model.ParseResult{File: rec, Calls: calls, Dependencies: deps}, nil
}

func goFuncDeclSymbol(n *sitter.Node, content []byte, isMethod bool) (model.Symbol, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return model.Symbol{}, false
	}
	name := nameNode.Content(content)
	typ := model.Function
	scope := model.ScopeGlobal
	if isMethod {
		typ = model.Method
		scope = model.ScopeMember
	}
	var params, ret string
	if p := n.ChildByFieldName("parameters"); p != nil {
		params = p.Content(content)
	}
	if r := n.ChildByFieldName("result"); r != nil {
		ret = r.Content(content)
	}
	return model.Symbol{
		Name: name, Type: typ, Line: int(n.StartPoint().Row) + 1,
		Params: params, ReturnType: ret, Scope: scope,
		Signature: headerLine(content, n),
	}, true
}

func goTypeSpecSymbol(n *sitter.Node, content []byte) (model.Symbol, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return model.Symbol{}, false
	}
	typeNode := n.ChildByFieldName("type")
	typ := model.Typedef
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			typ = model.Struct
		case "interface_type":
			typ = model.Interface
		}
	}
	return model.Symbol{
		Name: nameNode.Content(content), Type: typ,
		Line: int(n.StartPoint().Row) + 1, Scope: model.ScopeGlobal,
	}, true
}

func goImportPath(n *sitter.Node, content []byte) (string, bool) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return "", false
	}
	return strings.Trim(pathNode.Content(content), `"`), true
}

func goCallsFromNode(n *sitter.Node, content []byte, caller string) []model.CallEdge {
	var edges []model.CallEdge
	seen := map[string]bool{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := calleeName(fn, content)
				if name != "" && name != caller && !seen[name] {
					seen[name] = true
					edges = append(edges, model.CallEdge{
						Caller: caller, Callee: name, Line: int(n.StartPoint().Row) + 1,
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(n)
	return edges
}

func calleeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return n.Content(content)
	case "selector_expression":
		if f := n.ChildByFieldName("field"); f != nil {
			return f.Content(content)
		}
	}
	return ""
}

func headerLine(content []byte, n *sitter.Node) string {
	lines := strings.Split(string(content), "\n")
	row := int(n.StartPoint().Row)
	if row < 0 || row >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[row])
}
