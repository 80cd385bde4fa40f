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

package toolregistry

import (
	"context"

	"github.com/kraklabs/astra/pkg/llm"
)

func registerGenerateTools(reg *Registry, res *Resources) {
	reg.register(&Tool{
		Name:        "generate_code",
		Description: "Generate new code from a natural-language description.",
		Parameters: []Param{
			{Name: "description", Type: "string", Required: true},
			{Name: "language", Type: "string"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			description := stringParam(params, "description")
			if description == "" {
				return Fail("description is required"), nil
			}
			language := stringParam(params, "language")
			prompt := llm.CodePrompt{Task: description, Language: language}.Build()
			resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: llm.SystemPrompts.CodeGenerate + "\n\n" + prompt})
			if err != nil {
				return Fail("generate_code: %v", err), nil
			}
			return Ok(resp.Text), nil
		},
	})

	reg.register(&Tool{
		Name:        "create_from_example",
		Description: "Generate new code modeled on an existing example file or function.",
		Parameters: []Param{
			{Name: "exampleFile", Type: "string", Required: true},
			{Name: "description", Type: "string", Required: true},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			exampleFile := stringParam(params, "exampleFile")
			description := stringParam(params, "description")
			if exampleFile == "" || description == "" {
				return Fail("exampleFile and description are required"), nil
			}
			example, ok := res.Content(exampleFile)
			if !ok {
				return Fail("example file %q not found", exampleFile), nil
			}
			prompt := llm.CodePrompt{
				Task:    description,
				Code:    example,
				Context: "Use the example above as a structural and stylistic template.",
			}.Build()
			resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: llm.SystemPrompts.CodeGenerate + "\n\n" + prompt})
			if err != nil {
				return Fail("create_from_example: %v", err), nil
			}
			return Ok(resp.Text), nil
		},
	})
}
