package service

import (
	"context"
	"fmt"

	"github.com/riobizsols/assetledger/internal/metrics"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

// Groups wraps the group store with metrics and events.
type Groups struct {
	store  *store.GroupStore
	events *Dispatcher
}

// NewGroups returns a group service backed by gs.
func NewGroups(gs *store.GroupStore, events *Dispatcher) *Groups {
	return &Groups{store: gs, events: events}
}

// CreateGroup creates a group holding assetIDs.
func (s *Groups) CreateGroup(ctx context.Context, orgID, name string, assetIDs []string, actor string) (g *model.Group, err error) {
	defer func() { s.record("create", err) }()

	g, err = s.store.CreateGroup(ctx, orgID, name, assetIDs, actor)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, Event{Op: "group_create", Step: "group created", Actor: actor,
		Attrs: []any{"assetgroup_h_id", g.ID, "org_id", orgID, "members", len(g.Members)}})
	return g, nil
}

// UpdateGroup renames a group and replaces its membership.
func (s *Groups) UpdateGroup(ctx context.Context, id, name string, assetIDs []string, actor string) (g *model.Group, err error) {
	defer func() { s.record("update", err) }()

	g, err = s.store.UpdateGroup(ctx, id, name, assetIDs, actor)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, Event{Op: "group_update", Step: "group updated", Actor: actor,
		Attrs: []any{"assetgroup_h_id", id, "members", len(g.Members)}})
	return g, nil
}

// DeleteGroup deletes a group and ungroups its members.
func (s *Groups) DeleteGroup(ctx context.Context, id, actor string) (err error) {
	defer func() { s.record("delete", err) }()

	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.events.Emit(ctx, Event{Op: "group_delete", Step: "group deleted", Actor: actor,
		Attrs: []any{"assetgroup_h_id", id}})
	return nil
}

// GetGroup returns a group or ErrNotFound.
func (s *Groups) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("group %s: %w", id, store.ErrNotFound)
	}
	return g, nil
}

// ListGroups returns an organization's groups with member counts.
func (s *Groups) ListGroups(ctx context.Context, orgID string) ([]model.GroupHeader, error) {
	return s.store.ListGroups(ctx, orgID)
}

func (s *Groups) record(op string, err error) {
	if err == nil {
		metrics.RecordGroupWrite(op, "")
		return
	}
	metrics.RecordGroupWrite(op, store.ClassName(err))
}
