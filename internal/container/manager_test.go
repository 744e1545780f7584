package container

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/testkit"
)

// fakeExec is an in-memory ContainerExec used by tests in place of a
// real Docker daemon, the same substitution pkg/exec/manager_test.go
// makes against the teacher's Executor interface.
type fakeExec struct {
	mu         sync.Mutex
	nextID     int
	created    map[string]Config
	paused     map[string]bool
	removed    map[string]bool
	installLog []string
	reply      string
	replyErr   error
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		created: make(map[string]Config),
		paused:  make(map[string]bool),
		removed: make(map[string]bool),
	}
}

func (f *fakeExec) Create(ctx context.Context, name string, cfg Config, installCmds, invokeCmd []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := name
	f.created[id] = cfg
	f.installLog = append(f.installLog, installCmds...)
	return id, nil
}

func (f *fakeExec) Exec(ctx context.Context, id string, argv []string, timeout time.Duration) (string, int, error) {
	if f.replyErr != nil {
		return "", 1, f.replyErr
	}
	return f.reply, 0, nil
}

func (f *fakeExec) WriteFile(ctx context.Context, id, path string, content []byte) error { return nil }

func (f *fakeExec) Logs(ctx context.Context, id string, tail int) (string, error) { return "log output", nil }

func (f *fakeExec) Pause(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused[id] = true
	return nil
}

func (f *fakeExec) Unpause(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused[id] = false
	return nil
}

func (f *fakeExec) Stop(ctx context.Context, id string, timeout time.Duration) error { return nil }

func (f *fakeExec) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[id] = true
	return nil
}

// fakeFactory is a minimal Factory used to test the Manager without
// depending on a real CLI agent's JSON reply shape.
type fakeFactory struct {
	sendErr error
}

func (fakeFactory) InstallCommands(capabilities []string, preInstalled map[string]bool) []string {
	return []string{"install-fake"}
}
func (fakeFactory) InvokeCommand(cfg Config) []string       { return []string{"fake-agent"} }
func (fakeFactory) RequiredEnvVars(cfg Config) []string      { return []string{"FAKE_API_KEY"} }
func (fakeFactory) WriteInstructions(cfg Config) map[string]string {
	return map[string]string{"/workspace/SKILLS.md": "fake skills"}
}
func (f fakeFactory) SendMessage(ctx context.Context, exec ContainerExec, id, text string, session SessionContext) (SendResult, error) {
	if f.sendErr != nil {
		return SendResult{}, f.sendErr
	}
	return SendResult{Response: "did: " + text, UpdatedContext: SessionContext{SessionID: "sess-1"}}, nil
}

func newTestManager(t *testing.T, exec *fakeExec, factory Factory) *Manager {
	t.Helper()
	rdb := testkit.NewRedis(t)

	registry := NewRegistry()
	registry.Register("fake", factory)
	registry.Seal()

	caps := NewKnownCapabilities()
	caps.Add("git")
	caps.Seal()

	return NewManager(registry, caps, exec, rdb)
}

func TestCreateRejectsUnknownAgentType(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	_, err := m.Create(context.Background(), Config{Agent: "nope"})
	require.Error(t, err)
}

func TestCreateRejectsUnknownCapability(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	_, err := m.Create(context.Background(), Config{
		Agent:        "fake",
		Capabilities: []string{"telepathy"},
		EnvVars:      map[string]string{"FAKE_API_KEY": "x"},
	})
	require.Error(t, err)
}

func TestCreateRejectsMissingRequiredEnvVar(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	_, err := m.Create(context.Background(), Config{Agent: "fake"})
	require.Error(t, err)
}

func TestCreateAndSendMessageRoundTrip(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	ctx := context.Background()

	agentID, err := m.Create(ctx, Config{
		Agent:   "fake",
		EnvVars: map[string]string{"FAKE_API_KEY": "x"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, agentID)

	info, err := m.Status(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, StateIdle, info.State)

	result, err := m.SendMessage(ctx, agentID, "hello")
	require.NoError(t, err)
	require.Equal(t, "did: hello", result.Response)

	// Session context persisted for the next ephemeral container instance.
	sc, err := m.loadSession(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, "sess-1", sc.SessionID)

	info, err = m.Status(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, StateIdle, info.State)
}

func TestSendMessageToUnknownAgentFails(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	_, err := m.SendMessage(context.Background(), "nope", "hi")
	require.Error(t, err)
}

func TestPauseAndResumeTransitionUnderlyingContainer(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	ctx := context.Background()

	agentID, err := m.Create(ctx, Config{Agent: "fake", EnvVars: map[string]string{"FAKE_API_KEY": "x"}})
	require.NoError(t, err)

	require.NoError(t, m.Resume(ctx, agentID))
	info, err := m.Status(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, StateRunning, info.State)

	require.NoError(t, m.Pause(ctx, agentID))
	info, err = m.Status(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, StateIdle, info.State)
}

func TestDeleteRemovesContainerAndSessionContext(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	ctx := context.Background()

	agentID, err := m.Create(ctx, Config{Agent: "fake", EnvVars: map[string]string{"FAKE_API_KEY": "x"}})
	require.NoError(t, err)
	_, err = m.SendMessage(ctx, agentID, "hi")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, agentID))

	_, _, err = m.rdb.Get(ctx, sessionKey(agentID))
	require.NoError(t, err)
	sc, err := m.loadSession(ctx, agentID)
	require.NoError(t, err)
	require.Empty(t, sc.SessionID)

	_, err = m.Status(ctx, agentID)
	require.Error(t, err)
}

func TestImageCacheKeyVariesWithCapabilitySetOnly(t *testing.T) {
	a := Config{Agent: "fake", Capabilities: []string{"git", "node"}}
	b := Config{Agent: "fake", Capabilities: []string{"node", "git"}}
	c := Config{Agent: "fake", Capabilities: []string{"git"}}
	require.Equal(t, a.ImageCacheKey(), b.ImageCacheKey(), "capability order must not change the cache key")
	require.NotEqual(t, a.ImageCacheKey(), c.ImageCacheKey(), "capability set must change the cache key")
}
