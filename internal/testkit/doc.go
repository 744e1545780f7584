// Package testkit provides shared test fakes and assertion helpers used
// across this module's package tests: an in-memory Redis-backed
// internal/redisx.Client (every package that needs a lock, stream, or
// kv store tests against miniredis rather than a real daemon), a
// scriptable internal/llm.Client, and assertions over proto.GraphState.
//
// Grounded on pkg/testkit's role in the teacher (shared assertions and
// message builders any package's tests can import) and internal/mocks'
// configurable-function mock style, adapted from the teacher's AgentMsg
// envelope and bespoke LLMClient interface onto this system's
// proto.GraphState/proto.Message and internal/llm.Client.
package testkit
