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

package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/astra/pkg/llm"
)

// validationPassMarker is what the judge model emits verbatim when an
// answer needs no changes (spec §4.12 "Judge").
const validationPassMarker = "VALIDATION: PASS"

const judgePromptTemplate = `You are reviewing a generated answer for accuracy against its source context. Question:
%s

Answer:
%s

Source context:
%s

If the answer is accurate and complete, respond with exactly:
VALIDATION: PASS

Otherwise respond with:
## 🧐 Critique
<what is wrong or missing>

## 🔍 Additional Findings
<corrections or additions, citing files/functions from the source context>`

// ValidateAndRefineAnswer asks the model to either confirm the answer or
// append a critique and additional findings section (spec §4.12 "Judge").
// On any provider error the original answer is returned unchanged rather
// than surfaced as a failure — a failed judge pass should never block a
// perfectly good answer.
func ValidateAndRefineAnswer(ctx context.Context, provider llm.Provider, modelName, question, answer, fullContext string) (string, error) {
	prompt := fmt.Sprintf(judgePromptTemplate, question, answer, fullContext)
	resp, err := provider.Generate(ctx, llm.GenerateRequest{
		Model:  modelName,
		Prompt: prompt,
	})
	if err != nil {
		return answer, nil
	}

	verdict := strings.TrimSpace(resp.Text)
	if strings.Contains(strings.ToUpper(verdict), validationPassMarker) {
		return answer, nil
	}
	if verdict == "" {
		return answer, nil
	}
	return answer + "\n\n" + verdict, nil
}
