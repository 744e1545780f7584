package proto

import (
	"fmt"
	"time"
)

// Complexity classifies a project's estimated engineering complexity.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// EngineeringStatus tracks the Engineering Sub-pipeline's progress (§4.7).
type EngineeringStatus string

const (
	EngineeringIdle    EngineeringStatus = "idle"
	EngineeringWorking EngineeringStatus = "working"
	EngineeringDone    EngineeringStatus = "done"
	EngineeringBlocked EngineeringStatus = "blocked"
)

// DeployStatus tracks the Deployment Sub-pipeline's progress (§4.6).
type DeployStatus string

const (
	DeployPending              DeployStatus = "pending"
	DeployRunning              DeployStatus = "running"
	DeploySuccess              DeployStatus = "success"
	DeployFailed               DeployStatus = "failed"
	DeployFailedMissingSecrets DeployStatus = "failed_missing_secrets"
)

// MaxPOIterations is the Coordinator's safety cap (§4.5 "po_iterations ≥ 20").
const MaxPOIterations = 20

// MaxEngineeringIterations is the rework bound (§4.7 "engineering_iterations ≤ 3").
const MaxEngineeringIterations = 3

// GraphState is the shared, typed record carried through every node of the
// Orchestration Graph Runtime (§3 "Graph State", §9 "typed state"). Unknown
// fields simply cannot exist because this is a Go struct, not a map —
// the "unknown → reject" merge policy spec.md asks for is enforced by the
// compiler for state shape, and by Apply below for the merge semantics.
//
//nolint:govet // logical field grouping mirrors the spec's prose groupings
type GraphState struct {
	ThreadID      string
	CorrelationID string
	TelegramUserID int64
	InternalUserID string

	Messages []Message

	CurrentProject      string
	ProjectSpec         string
	ProjectIntent       string
	AllocatedResources  map[string]string
	RepositoryInfo      map[string]string
	Complexity          Complexity

	EngineeringStatus     EngineeringStatus
	ReviewFeedback        string
	EngineeringIterations int
	TestResults           map[string]any
	NeedsHumanApproval    bool

	ActiveCapabilities map[string]bool
	POIterations       int

	AwaitingUserResponse  bool
	UserConfirmedComplete bool

	DeployStatus        DeployStatus
	DeployProgress      int
	DeployLogs          []string
	DeployedURL         string
	DeployError         string
	DeployStartedAt     *time.Time
	DeployFinishedAt    *time.Time
	MissingUserSecrets  []string
}

// NewGraphState creates an empty state for a fresh thread.
func NewGraphState(threadID, correlationID string) *GraphState {
	return &GraphState{
		ThreadID:           threadID,
		CorrelationID:      correlationID,
		AllocatedResources: make(map[string]string),
		RepositoryInfo:     make(map[string]string),
		TestResults:        make(map[string]any),
		ActiveCapabilities: make(map[string]bool),
		EngineeringStatus:  EngineeringIdle,
		DeployStatus:       DeployPending,
	}
}

// Update is a partial state change returned by a node. Only non-nil /
// non-zero-valued fields are applied; see Apply for the merge rules from
// §4.4 "State merge".
//
//nolint:govet // mirrors GraphState's grouping, not a hot-path struct
type Update struct {
	AppendMessages []Message

	CurrentProject     *string
	ProjectSpec        *string
	ProjectIntent      *string
	AllocatedResources map[string]string // merged key-wise
	RepositoryInfo     map[string]string // merged key-wise
	Complexity         *Complexity

	EngineeringStatus     *EngineeringStatus
	ReviewFeedback        *string
	EngineeringIterations *int
	TestResults           map[string]any // merged key-wise
	NeedsHumanApproval    *bool

	ActiveCapabilities map[string]bool // merged key-wise (add capabilities)

	POIterations *int

	AwaitingUserResponse  *bool
	UserConfirmedComplete *bool

	DeployStatus       *DeployStatus
	DeployProgress     *int
	AppendDeployLogs   []string
	DeployedURL        *string
	DeployError        *string
	DeployStartedAt    *time.Time
	DeployFinishedAt   *time.Time
	MissingUserSecrets []string
}

// Apply merges update into s following §4.4's rules: messages are
// appended (sum), scalars/enums are overwritten, maps are merged
// key-wise with last-writer-wins, and the mutual-exclusion invariant on
// AwaitingUserResponse/UserConfirmedComplete (§3) is enforced.
func (s *GraphState) Apply(u Update) error {
	s.Messages = append(s.Messages, u.AppendMessages...)

	if u.CurrentProject != nil {
		s.CurrentProject = *u.CurrentProject
	}
	if u.ProjectSpec != nil {
		s.ProjectSpec = *u.ProjectSpec
	}
	if u.ProjectIntent != nil {
		s.ProjectIntent = *u.ProjectIntent
	}
	mergeStringMap(&s.AllocatedResources, u.AllocatedResources)
	mergeStringMap(&s.RepositoryInfo, u.RepositoryInfo)
	if u.Complexity != nil {
		s.Complexity = *u.Complexity
	}

	if u.EngineeringStatus != nil {
		s.EngineeringStatus = *u.EngineeringStatus
	}
	if u.ReviewFeedback != nil {
		s.ReviewFeedback = *u.ReviewFeedback
	}
	if u.EngineeringIterations != nil {
		if *u.EngineeringIterations < s.EngineeringIterations {
			return fmt.Errorf("invariant violation: engineering_iterations must be monotonically non-decreasing (current=%d, proposed=%d)", s.EngineeringIterations, *u.EngineeringIterations)
		}
		if *u.EngineeringIterations > MaxEngineeringIterations {
			return fmt.Errorf("invariant violation: engineering_iterations %d exceeds bound %d", *u.EngineeringIterations, MaxEngineeringIterations)
		}
		s.EngineeringIterations = *u.EngineeringIterations
	}
	if u.TestResults != nil {
		if s.TestResults == nil {
			s.TestResults = make(map[string]any)
		}
		for k, v := range u.TestResults {
			s.TestResults[k] = v
		}
	}
	if u.NeedsHumanApproval != nil {
		s.NeedsHumanApproval = *u.NeedsHumanApproval
	}

	if u.ActiveCapabilities != nil {
		if s.ActiveCapabilities == nil {
			s.ActiveCapabilities = make(map[string]bool)
		}
		for k, v := range u.ActiveCapabilities {
			s.ActiveCapabilities[k] = v
		}
	}

	if u.POIterations != nil {
		if *u.POIterations < s.POIterations {
			return fmt.Errorf("invariant violation: po_iterations must be monotonically non-decreasing (current=%d, proposed=%d)", s.POIterations, *u.POIterations)
		}
		if *u.POIterations > MaxPOIterations {
			return fmt.Errorf("invariant violation: po_iterations %d exceeds bound %d", *u.POIterations, MaxPOIterations)
		}
		s.POIterations = *u.POIterations
	}

	awaiting := s.AwaitingUserResponse
	confirmed := s.UserConfirmedComplete
	if u.AwaitingUserResponse != nil {
		awaiting = *u.AwaitingUserResponse
	}
	if u.UserConfirmedComplete != nil {
		confirmed = *u.UserConfirmedComplete
	}
	if awaiting && confirmed {
		return fmt.Errorf("invariant violation: awaiting_user_response and user_confirmed_complete are mutually exclusive")
	}
	s.AwaitingUserResponse = awaiting
	s.UserConfirmedComplete = confirmed

	if u.DeployStatus != nil {
		s.DeployStatus = *u.DeployStatus
	}
	if u.DeployProgress != nil {
		s.DeployProgress = *u.DeployProgress
	}
	s.DeployLogs = append(s.DeployLogs, u.AppendDeployLogs...)
	if u.DeployedURL != nil {
		s.DeployedURL = *u.DeployedURL
	}
	if u.DeployError != nil {
		s.DeployError = *u.DeployError
	}
	if u.DeployStartedAt != nil {
		s.DeployStartedAt = u.DeployStartedAt
	}
	if u.DeployFinishedAt != nil {
		s.DeployFinishedAt = u.DeployFinishedAt
	}
	if u.MissingUserSecrets != nil {
		s.MissingUserSecrets = u.MissingUserSecrets
	}

	return nil
}

func mergeStringMap(dst *map[string]string, src map[string]string) {
	if src == nil {
		return
	}
	if *dst == nil {
		*dst = make(map[string]string)
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}

// Clone returns a deep-enough copy of s for checkpoint persistence so
// later mutation of the live state cannot corrupt a stored checkpoint.
func (s *GraphState) Clone() *GraphState {
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	cp.AllocatedResources = cloneStringMap(s.AllocatedResources)
	cp.RepositoryInfo = cloneStringMap(s.RepositoryInfo)
	cp.ActiveCapabilities = make(map[string]bool, len(s.ActiveCapabilities))
	for k, v := range s.ActiveCapabilities {
		cp.ActiveCapabilities[k] = v
	}
	cp.TestResults = make(map[string]any, len(s.TestResults))
	for k, v := range s.TestResults {
		cp.TestResults[k] = v
	}
	cp.DeployLogs = append([]string(nil), s.DeployLogs...)
	cp.MissingUserSecrets = append([]string(nil), s.MissingUserSecrets...)
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
