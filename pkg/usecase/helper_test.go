package usecase_test

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/mock"
)

// letterEmbedder embeds a text as its lower-case letter histogram
type letterEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (x *letterEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	x.mu.Lock()
	x.calls++
	x.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		v[0] += 0.01 // avoid zero vectors
		vectors[i] = v
	}
	return vectors, nil
}

var _ interfaces.Embedder = &letterEmbedder{}

type fakeRunner struct {
	calls  [][]string
	output string
	err    error
}

func (x *fakeRunner) Run(ctx context.Context, args ...string) (string, error) {
	x.calls = append(x.calls, args)
	return x.output, x.err
}

type fakeHistory struct {
	commits map[string]*interfaces.Commit
	err     error
}

func (x *fakeHistory) LastCommit(ctx context.Context, path string) (*interfaces.Commit, error) {
	if x.err != nil {
		return nil, x.err
	}
	c, ok := x.commits[path]
	if !ok {
		return nil, goerr.New("unknown path")
	}
	return c, nil
}

func (x *fakeHistory) Show(ctx context.Context, rev string) (string, error) {
	return "", goerr.New("not implemented")
}

// scriptedLLM creates one session per script; each session replies with its script in order.
// Every prompt sent to any session is recorded in prompts.
func scriptedLLM(prompts *[]string, scripts ...[]string) *mock.LLMClientMock {
	var mu sync.Mutex
	session := 0
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, opts ...gollem.SessionOption) (gollem.Session, error) {
			mu.Lock()
			defer mu.Unlock()
			if session >= len(scripts) {
				return nil, goerr.New("no script for session")
			}
			replies := scripts[session]
			session++

			turn := 0
			return &mock.SessionMock{
				GenerateFunc: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
					mu.Lock()
					defer mu.Unlock()
					for _, in := range input {
						if text, ok := in.(gollem.Text); ok && prompts != nil {
							*prompts = append(*prompts, string(text))
						}
					}
					if turn >= len(replies) {
						return nil, goerr.New("script exhausted")
					}
					reply := replies[turn]
					turn++
					return &gollem.Response{Texts: []string{reply}}, nil
				},
			}, nil
		},
	}
}

const jodaDiff = `commit 3f1e2d4c5b6a7980112233445566778899aabbcc
Author: A Name <a@example.com>
Date:   Mon Jan 8 10:00:00 2024 +0900

    Bump joda-time from 2.10.13 to 2.12.7

diff --git a/build.gradle b/build.gradle
index 1111111..2222222 100644
--- a/build.gradle
+++ b/build.gradle
@@ -10,7 +10,7 @@ dependencies {
     implementation 'org.springframework.boot:spring-boot-starter-web'
-    implementation 'joda-time:joda-time:2.10.13'
+    implementation 'joda-time:joda-time:2.12.7'
     testImplementation 'org.springframework.boot:spring-boot-starter-test'
 }
`

const jodaVerdict = `{
  "riskLevel": "Low",
  "comments": "Minor upgrade with bug fixes only.",
  "usage": [
    {
      "class": "io.spring.application.DateTimeCursor",
      "path": "src/main/java/io/spring/application/DateTimeCursor.java"
    }
  ],
  "changes": {
    "groupId": "joda-time",
    "artifactId": "joda-time",
    "oldVersion": "2.10.13",
    "newVersion": "2.12.7"
  }
}`

const jodaEnriched = `{
  "riskLevel": "Low",
  "comments": "Minor upgrade with bug fixes only.",
  "usage": [
    {
      "class": "io.spring.application.DateTimeCursor",
      "path": "src/main/java/io/spring/application/DateTimeCursor.java",
      "lastCommitInfo": {
        "commitId": "7dd7cba",
        "jiraId": "XYZ-12",
        "author": "A Name"
      }
    }
  ],
  "changes": {
    "groupId": "joda-time",
    "artifactId": "joda-time",
    "oldVersion": "2.10.13",
    "newVersion": "2.12.7"
  }
}`

// finalAnswer wraps a JSON object as the Final Answer action
func finalAnswer(obj string) string {
	return `{"action": "Final Answer", "action_input": ` + obj + `}`
}

func action(tool, input string) string {
	return `{"action": "` + tool + `", "action_input": "` + input + `"}`
}
