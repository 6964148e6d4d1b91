// Copyright 2024 bptf Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestSpan(t *testing.T) {
	ctx, span := Start(context.Background(), "fit", 10)
	assert.Equal(t, "fit", span.Name())
	assert.Equal(t, StatusRunning, span.status)
	span.Add(3)
	span.Add(2)
	assert.Equal(t, 5, span.Count())
	span.End()
	assert.Equal(t, StatusComplete, span.status)
	assert.Equal(t, 10, span.Count())

	// a child span registers under its parent
	_, child := Start(ctx, "sweep", 5)
	v, ok := span.children.Load("sweep")
	assert.True(t, ok)
	assert.Equal(t, child, v)
}

func TestSpanFail(t *testing.T) {
	_, span := Start(context.Background(), "fit", 10)
	span.Fail(errors.New("boom"))
	assert.Equal(t, StatusFailed, span.status)
	assert.Error(t, span.err)
}

func TestStartNilContext(t *testing.T) {
	ctx, span := Start(nil, "fit", 1)
	assert.Nil(t, ctx)
	assert.NotNil(t, span)
}
