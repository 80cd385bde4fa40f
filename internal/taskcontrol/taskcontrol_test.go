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

package taskcontrol

import "testing"

func TestStartAssignsFreshTaskID(t *testing.T) {
	c := New()
	if c.TaskID() != "" {
		t.Fatalf("expected idle controller to have no TaskID, got %q", c.TaskID())
	}

	c.Start("index")
	id1 := c.TaskID()
	if id1 == "" {
		t.Fatalf("expected Start to assign a TaskID")
	}

	c.Finish()
	if c.TaskID() != "" {
		t.Fatalf("expected Finish to clear TaskID")
	}

	c.Start("index")
	id2 := c.TaskID()
	if id2 == "" || id2 == id1 {
		t.Fatalf("expected a distinct TaskID per Start call, got %q and %q", id1, id2)
	}
}

func TestCheckPointReportsCurrentTask(t *testing.T) {
	c := New()
	c.Start("translate")
	c.Cancel()

	err := c.CheckPoint()
	if err == nil {
		t.Fatalf("expected CheckPoint to error after Cancel")
	}
	var cancelled *Cancelled
	if ce, ok := err.(*Cancelled); !ok {
		t.Fatalf("expected *Cancelled, got %T", err)
	} else {
		cancelled = ce
	}
	if cancelled.Task != "translate" {
		t.Fatalf("expected cancelled error to name the current task, got %q", cancelled.Task)
	}
}
