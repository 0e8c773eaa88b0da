package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/msomdec/decision-log/internal/domain"
)

// keyAllDecisions is the storage key for the full decision collection.
const keyAllDecisions = "all_decisions"

// DecisionService owns the canonical decision collection. The collection is
// held in memory, most recent first, and re-serialized wholesale to the
// key-value store after every successful mutation. Mutations commit to
// memory only after the save succeeds, so memory and the durable copy never
// diverge.
//
// Not-found and not-owner conditions are reported as a false result, never
// as an error; callers must check the returned bool.
type DecisionService struct {
	mu        sync.RWMutex
	kv        domain.KeyValueStore
	decisions []domain.Decision
	lastID    int64
}

// NewDecisionService creates a DecisionService backed by the given store.
// Call Load before serving requests.
func NewDecisionService(kv domain.KeyValueStore) *DecisionService {
	return &DecisionService{kv: kv}
}

// DecisionInput carries the caller-supplied fields for a new decision.
type DecisionInput struct {
	Title       string
	Type        domain.DecisionType
	Situation   string
	Options     []domain.Option
	FinalChoice string
	Criteria    domain.Criteria
}

// DecisionPatch is a field-level partial update. Nil fields are left
// untouched. The owner, id, timestamps, and retrospective are not patchable;
// retrospectives have their own operation.
type DecisionPatch struct {
	Title       *string
	Type        *domain.DecisionType
	Situation   *string
	Options     *[]domain.Option
	FinalChoice *string
	Criteria    *domain.Criteria
}

// RetrospectiveInput carries the caller-supplied fields for a retrospective.
type RetrospectiveInput struct {
	ActualResult string
	WasCorrect   domain.WasCorrect
	Improvements string
}

// Load restores the collection from the key-value store. An absent key
// means no decisions have been recorded yet.
func (s *DecisionService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Load(ctx, keyAllDecisions)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.decisions = nil
			return nil
		}
		return fmt.Errorf("load decisions: %w", err)
	}

	var decisions []domain.Decision
	if err := json.Unmarshal(raw, &decisions); err != nil {
		return fmt.Errorf("decode decisions: %w", err)
	}

	s.decisions = decisions
	for _, d := range decisions {
		if d.ID > s.lastID {
			s.lastID = d.ID
		}
	}
	return nil
}

// Create validates the input, assigns a fresh id and timestamps, prepends
// the new decision to the collection, and persists it. The store trusts the
// passed userID; authentication is the caller's concern.
func (s *DecisionService) Create(ctx context.Context, input DecisionInput, userID int64, userName string) (*domain.Decision, error) {
	if err := validateInput(input.Title, input.Type, input.Criteria); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	decision := domain.Decision{
		ID:           s.nextID(now),
		UserID:       userID,
		UserName:     userName,
		Title:        input.Title,
		Type:         input.Type,
		Situation:    input.Situation,
		Options:      input.Options,
		FinalChoice:  input.FinalChoice,
		Criteria:     input.Criteria,
		DecisionDate: now,
		CreatedAt:    now,
	}

	next := make([]domain.Decision, 0, len(s.decisions)+1)
	next = append(next, decision)
	next = append(next, s.decisions...)

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.decisions = next

	created := decision
	return &created, nil
}

// Delete removes a decision. Returns false without side effects when the
// decision does not exist or the caller is not its owner.
func (s *DecisionService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 || s.decisions[idx].UserID != userID {
		return false, nil
	}

	next := make([]domain.Decision, 0, len(s.decisions)-1)
	next = append(next, s.decisions[:idx]...)
	next = append(next, s.decisions[idx+1:]...)

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.decisions = next
	return true, nil
}

// Update merges the patch into an existing decision. Timestamps are never
// bumped by a general edit; decisionDate always reflects creation time.
func (s *DecisionService) Update(ctx context.Context, id int64, patch DecisionPatch, userID int64) (bool, error) {
	if err := validatePatch(patch); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 || s.decisions[idx].UserID != userID {
		return false, nil
	}

	next := slices.Clone(s.decisions)
	d := &next[idx]
	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.Type != nil {
		d.Type = *patch.Type
	}
	if patch.Situation != nil {
		d.Situation = *patch.Situation
	}
	if patch.Options != nil {
		d.Options = *patch.Options
	}
	if patch.FinalChoice != nil {
		d.FinalChoice = *patch.FinalChoice
	}
	if patch.Criteria != nil {
		d.Criteria = *patch.Criteria
	}

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.decisions = next
	return true, nil
}

// AddRetrospective sets a decision's retrospective, replacing any prior one
// wholesale. Only updatedAt inside the retrospective is timestamped; the
// decision's own timestamps are untouched.
func (s *DecisionService) AddRetrospective(ctx context.Context, id int64, input RetrospectiveInput, userID int64) (bool, error) {
	if input.ActualResult == "" {
		return false, fmt.Errorf("%w: actual result is required", domain.ErrInvalidInput)
	}
	if input.WasCorrect != domain.WasCorrectYes && input.WasCorrect != domain.WasCorrectNo {
		return false, fmt.Errorf("%w: wasCorrect must be 'yes' or 'no'", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 || s.decisions[idx].UserID != userID {
		return false, nil
	}

	next := slices.Clone(s.decisions)
	next[idx].Retrospective = &domain.Retrospective{
		ActualResult: input.ActualResult,
		WasCorrect:   input.WasCorrect,
		Improvements: input.Improvements,
		UpdatedAt:    time.Now().UTC(),
	}

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.decisions = next
	return true, nil
}

// GetByID returns a copy of the decision with the given id. Reads are
// public; there is no ownership check.
func (s *DecisionService) GetByID(id int64) (*domain.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	d := s.decisions[idx]
	return &d, true
}

// List returns the full collection, most recent first.
func (s *DecisionService) List() []domain.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.decisions)
}

// GetByUser returns all decisions owned by the given user, preserving
// collection order.
func (s *DecisionService) GetByUser(userID int64) []domain.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Decision
	for _, d := range s.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

// IsOwner reports whether a decision with the given id exists and is owned
// by the given user.
func (s *DecisionService) IsOwner(id, userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	return idx >= 0 && s.decisions[idx].UserID == userID
}

// Stats summarizes the full collection.
func (s *DecisionService) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return computeStats(s.decisions, nil)
}

// StatsByUser summarizes one user's subset of the collection.
func (s *DecisionService) StatsByUser(userID int64) domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return computeStats(s.decisions, &userID)
}

func computeStats(decisions []domain.Decision, userID *int64) domain.Stats {
	var stats domain.Stats
	for _, d := range decisions {
		if userID != nil && d.UserID != *userID {
			continue
		}
		stats.Total++
		switch d.Type {
		case domain.DecisionTypePersonal:
			stats.Personal++
		case domain.DecisionTypeTeam:
			stats.Team++
		}
		if d.Retrospective != nil {
			stats.WithRetrospective++
		}
	}
	return stats
}

func validateInput(title string, typ domain.DecisionType, criteria domain.Criteria) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if typ != domain.DecisionTypePersonal && typ != domain.DecisionTypeTeam {
		return fmt.Errorf("%w: type must be 'personal' or 'team'", domain.ErrInvalidInput)
	}
	for _, score := range []int{criteria.Speed, criteria.Cost, criteria.Scalability, criteria.TeamCapability} {
		if score < 0 || score > 5 {
			return fmt.Errorf("%w: criteria scores must be between 0 and 5", domain.ErrInvalidInput)
		}
	}
	return nil
}

func validatePatch(patch DecisionPatch) error {
	if patch.Title != nil && *patch.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if patch.Type != nil && *patch.Type != domain.DecisionTypePersonal && *patch.Type != domain.DecisionTypeTeam {
		return fmt.Errorf("%w: type must be 'personal' or 'team'", domain.ErrInvalidInput)
	}
	if patch.Criteria != nil {
		c := *patch.Criteria
		for _, score := range []int{c.Speed, c.Cost, c.Scalability, c.TeamCapability} {
			if score < 0 || score > 5 {
				return fmt.Errorf("%w: criteria scores must be between 0 and 5", domain.ErrInvalidInput)
			}
		}
	}
	return nil
}

// nextID returns a time-based id, bumped monotonically so that two
// creations in the same millisecond stay unique. Caller must hold the lock.
func (s *DecisionService) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// indexOf returns the position of the decision with the given id, or -1.
// Caller must hold the lock.
func (s *DecisionService) indexOf(id int64) int {
	for i := range s.decisions {
		if s.decisions[i].ID == id {
			return i
		}
	}
	return -1
}

// persist serializes the candidate collection and writes it through the
// key-value store. On failure the in-memory collection is left unchanged.
func (s *DecisionService) persist(ctx context.Context, decisions []domain.Decision) error {
	raw, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	if err := s.kv.Save(ctx, keyAllDecisions, raw); err != nil {
		return fmt.Errorf("persist decisions: %w", err)
	}
	return nil
}
