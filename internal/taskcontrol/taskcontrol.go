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

// Package taskcontrol implements the cooperative cancellation primitive
// every long-running core operation checks at its suspension points (spec
// §5: "a TaskController holds {isCancelled, currentTask, startTime}").
package taskcontrol

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Cancelled is the sentinel error surfaced when a suspension-point check
// finds the controller cancelled (spec §5 "TaskCancelled").
type Cancelled struct{ Task string }

func (e *Cancelled) Error() string {
	return "task cancelled by user: " + e.Task
}

// Controller tracks the single in-flight long-running task (indexing,
// summarization, plan execution, translation) and lets callers request and
// observe cancellation without shared OS-thread state — the core runs a
// single-threaded cooperative model, so plain fields behind atomics are
// sufficient without a mutex.
type Controller struct {
	cancelled atomic.Bool
	task      atomic.Value // string
	taskID    atomic.Value // string
	startedAt atomic.Value // time.Time
}

// New returns an idle controller.
func New() *Controller {
	c := &Controller{}
	c.task.Store("")
	c.taskID.Store("")
	c.startedAt.Store(time.Time{})
	return c
}

// Start marks task as the current operation, assigns it a fresh correlation
// ID, and clears any prior cancellation flag. The ID lets callers (progress
// events, plan/step logging) tie a run back to this specific task instance
// rather than just its name.
func (c *Controller) Start(task string) {
	c.cancelled.Store(false)
	c.task.Store(task)
	c.taskID.Store(uuid.NewString())
	c.startedAt.Store(time.Now())
}

// Cancel requests cancellation of the current task. It is idempotent and
// safe to call with no task in flight.
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
}

// Finish clears the current task, e.g. on normal completion.
func (c *Controller) Finish() {
	c.task.Store("")
	c.taskID.Store("")
	c.cancelled.Store(false)
}

// IsCancelled reports whether the current task has been asked to stop.
func (c *Controller) IsCancelled() bool {
	return c.cancelled.Load()
}

// CurrentTask returns the name of the in-flight task, or "" if idle.
func (c *Controller) CurrentTask() string {
	return c.task.Load().(string)
}

// TaskID returns the correlation ID assigned to the in-flight task by
// Start, or "" if idle.
func (c *Controller) TaskID() string {
	return c.taskID.Load().(string)
}

// StartTime returns when the current task began.
func (c *Controller) StartTime() time.Time {
	return c.startedAt.Load().(time.Time)
}

// CheckPoint is the suspension-point check every long-running loop calls:
// it returns a *Cancelled error if cancellation was requested, nil
// otherwise (spec §5: "Every long-running operation ... checks isCancelled
// at each suspension point").
func (c *Controller) CheckPoint() error {
	if c.IsCancelled() {
		return &Cancelled{Task: c.CurrentTask()}
	}
	return nil
}
