package testkit

import (
	"context"
	"sync"

	"github.com/forgeworks/sdo/internal/llm"
)

// ScriptedLLM returns a fixed sequence of responses to successive
// Complete calls, repeating the last one for any call beyond the
// script — the same RespondWithSequence idea pkg/testkit's mock LLM
// client offers, generalized onto this module's llm.Client interface.
// Several packages (coordinator, deploy) wrote the single-response
// version of this inline as scriptedClient/scriptedLLM; ScriptedLLM
// is the shared, multi-response generalization of both.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses []llm.Response
	err       error
	calls     []llm.Request
}

// NewScriptedLLM builds a client that returns responses in order,
// holding on the last entry once the script is exhausted.
func NewScriptedLLM(responses ...llm.Response) *ScriptedLLM {
	return &ScriptedLLM{responses: responses}
}

// FailWith makes every future Complete call return err instead of a
// scripted response.
func (s *ScriptedLLM) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Complete implements llm.Client.
func (s *ScriptedLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)

	if s.err != nil {
		return llm.Response{}, s.err
	}
	if len(s.responses) == 0 {
		return llm.Response{}, nil
	}
	idx := len(s.calls) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

// Calls returns every request Complete has received so far, in order.
func (s *ScriptedLLM) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}

// CallCount reports how many times Complete has been invoked.
func (s *ScriptedLLM) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
